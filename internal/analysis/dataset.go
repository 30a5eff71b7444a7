package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindDatetime    Kind = "datetime"
	KindCategorical Kind = "categorical"
	KindText        Kind = "text"
	KindUnknown     Kind = "unknown"
)

var (
	// ErrEmptyDataset is returned when the CSV has no header or no data rows.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrNoNumericColumns is returned when statistics need at least one numeric column.
	ErrNoNumericColumns = errors.New("dataset has no numeric columns")
)

// Options controls CSV parsing.
type Options struct {
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picked from the file name (',' or '\t').
	Delimiter rune
	// Numeric parsing locale. When either separator is set, values like
	// "1.234,5" or "12 %" parse as numbers; otherwise only plain decimal
	// literals do.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// DefaultOptions returns reasonable defaults for dataset parsing.
func DefaultOptions() Options {
	return Options{MaxRows: 1_000_000}
}

func (o Options) localized() bool { return o.DecimalSeparator != 0 || o.ThousandsSeparator != 0 }

// Dataset is a parsed CSV held in memory as raw cells.
type Dataset struct {
	Name   string
	Header []string
	Rows   [][]string
	Kinds  []Kind
	Units  []string
	// Truncated is set when MaxRows dropped trailing rows.
	Truncated bool

	opt     Options
	numeric [][]float64
}

// ParseFile opens path and parses it as CSV.
func ParseFile(path string, opt Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return Parse(filepath.Base(path), f, opt)
}

// Parse reads a CSV with a header row from r. name is used for delimiter
// detection and reporting only.
func Parse(name string, r io.Reader, opt Options) (*Dataset, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if header[i] == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	ncol := len(header)

	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	ds := &Dataset{Name: name, Header: header, opt: opt}
	line := 1
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++
		if blankRecord(rec) {
			continue
		}
		if len(ds.Rows) >= maxRows {
			ds.Truncated = true
			continue
		}
		row := make([]string, ncol)
		copy(row, rec)
		for j := range row {
			row[j] = strings.TrimSpace(row[j])
		}
		ds.Rows = append(ds.Rows, row)
	}
	if len(ds.Rows) == 0 {
		return nil, ErrEmptyDataset
	}
	ds.infer()
	return ds, nil
}

// NumRows returns the number of data rows.
func (d *Dataset) NumRows() int { return len(d.Rows) }

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int { return len(d.Header) }

// ColumnIndex returns the index of the named column or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, h := range d.Header {
		if h == name {
			return i
		}
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range d.Header {
		if strings.ToLower(h) == want {
			return i
		}
	}
	return -1
}

// NumericColumns returns the indices of numeric columns in header order.
func (d *Dataset) NumericColumns() []int {
	var out []int
	for j, k := range d.Kinds {
		if k == KindNumeric {
			out = append(out, j)
		}
	}
	return out
}

// Float64s returns column j as floats with NaN for missing cells. It is only
// meaningful for numeric columns. The slice is shared; do not modify it.
func (d *Dataset) Float64s(j int) []float64 { return d.numeric[j] }

// Values returns the non-missing raw cells of column j.
func (d *Dataset) Values(j int) []string {
	out := make([]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		if !IsMissing(row[j]) {
			out = append(out, row[j])
		}
	}
	return out
}

// ParseNumber parses a cell with the dataset's numeric rules.
func (d *Dataset) ParseNumber(s string) (float64, bool) { return parseCell(s, d.opt) }

func (d *Dataset) infer() {
	ncol := len(d.Header)
	d.Kinds = make([]Kind, ncol)
	d.Units = make([]string, ncol)
	d.numeric = make([][]float64, ncol)
	for j := 0; j < ncol; j++ {
		_, d.Units[j] = splitUnits(d.Header[j])
		var present, nums, dates int
		vals := make([]float64, len(d.Rows))
		distinct := map[string]struct{}{}
		longest := 0
		for i, row := range d.Rows {
			v := row[j]
			if IsMissing(v) {
				vals[i] = math.NaN()
				continue
			}
			present++
			if x, ok := parseCell(v, d.opt); ok {
				nums++
				vals[i] = x
			} else {
				vals[i] = math.NaN()
			}
			if _, ok := ParseTime(v); ok {
				dates++
			}
			if len(distinct) <= 10000 {
				distinct[v] = struct{}{}
			}
			if len(v) > longest {
				longest = len(v)
			}
		}
		switch {
		case present == 0:
			d.Kinds[j] = KindUnknown
		case nums == present:
			d.Kinds[j] = KindNumeric
			d.numeric[j] = vals
		case dates == present:
			d.Kinds[j] = KindDatetime
		case longest <= 32 && (len(distinct) <= 50 || 2*len(distinct) <= present):
			d.Kinds[j] = KindCategorical
		default:
			d.Kinds[j] = KindText
		}
	}
}

var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a raw cell counts as a missing value.
func IsMissing(s string) bool {
	_, ok := naTokens[strings.TrimSpace(s)]
	return ok
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseCell(s string, opt Options) (float64, bool) {
	var (
		x  float64
		ok bool
	)
	if opt.localized() {
		x, ok = parseNumeric(s, opt)
	} else {
		var err error
		x, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		ok = err == nil
	}
	if !ok || math.IsInf(x, 0) || math.IsNaN(x) {
		return 0, false
	}
	return x, true
}

func sniffDelimiter(name string) rune {
	n := strings.ToLower(name)
	if strings.HasSuffix(n, ".tsv") || strings.HasSuffix(n, ".tab") {
		return '\t'
	}
	return ','
}

// ParseTime recognises the date and timestamp layouts used for datetime columns.
func ParseTime(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0 && thou != ',':
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`),  // Alpha (%)
	regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), // Mass [mg/L]
	regexp.MustCompile(`^(.*?)[_\s-]+(mg/L|g/L|ug/L|°[CF]|kg|km|USD|EUR|%|ppm|ppb)$`),
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[2])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
