package analysis

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustParse(t *testing.T, name, body string, opt Options) *Dataset {
	t.Helper()
	ds, err := Parse(name, strings.NewReader(body), opt)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ds
}

func TestParseInfersKinds(t *testing.T) {
	body := strings.Join([]string{
		"id,price (USD),when,city,notes,empty",
		"1,10.5,2024-01-02,Paris,a long free-form comment that is unique,",
		"2,NA,2024-01-03,Berlin,another unique piece of text here,",
		"3,7,2024-01-04,Paris,yet another distinct description,NA",
	}, "\n")
	ds := mustParse(t, "sales.csv", body, DefaultOptions())

	want := []Kind{KindNumeric, KindNumeric, KindDatetime, KindCategorical, KindText, KindUnknown}
	for j, k := range want {
		if ds.Kinds[j] != k {
			t.Errorf("column %q kind = %s, want %s", ds.Header[j], ds.Kinds[j], k)
		}
	}
	if ds.Units[1] != "USD" {
		t.Errorf("unit = %q, want USD", ds.Units[1])
	}
	price := ds.Float64s(1)
	if price[0] != 10.5 || !math.IsNaN(price[1]) || price[2] != 7 {
		t.Errorf("price values = %v", price)
	}
	if got := ds.ColumnIndex("CITY"); got != 3 {
		t.Errorf("ColumnIndex case-insensitive = %d", got)
	}
}

func TestParseMixedColumnIsNotNumeric(t *testing.T) {
	ds := mustParse(t, "x.csv", "a,b\n1,2\nx,3\n", DefaultOptions())
	if ds.Kinds[0] == KindNumeric {
		t.Fatalf("column with a non-numeric cell must not be numeric")
	}
	if ds.Kinds[1] != KindNumeric {
		t.Fatalf("b should be numeric, got %s", ds.Kinds[1])
	}
}

func TestParseLocaleNumbers(t *testing.T) {
	body := "group;value\nA;1.000,5\nB;2.000,5\n"
	opt := DefaultOptions()
	opt.Delimiter = ';'
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'
	ds := mustParse(t, "eu.csv", body, opt)
	vals := ds.Float64s(1)
	if vals[0] != 1000.5 || vals[1] != 2000.5 {
		t.Fatalf("locale values = %v", vals)
	}
	// Without locale options the same cells are text.
	opt = DefaultOptions()
	opt.Delimiter = ';'
	ds = mustParse(t, "eu.csv", body, opt)
	if ds.Kinds[1] == KindNumeric {
		t.Fatalf("locale-formatted cells parsed without locale options")
	}
}

func TestParseTSVByName(t *testing.T) {
	ds := mustParse(t, "data.tsv", "a\tb\n1\t2\n", DefaultOptions())
	if ds.NumCols() != 2 {
		t.Fatalf("tsv columns = %d", ds.NumCols())
	}
}

func TestParseEmpty(t *testing.T) {
	for _, body := range []string{"", "a,b\n", "a,b\n,\n"} {
		_, err := Parse("e.csv", strings.NewReader(body), DefaultOptions())
		if !errors.Is(err, ErrEmptyDataset) {
			t.Errorf("body %q: err = %v, want ErrEmptyDataset", body, err)
		}
	}
}

func TestParseMaxRowsAndShortRows(t *testing.T) {
	opt := DefaultOptions()
	opt.MaxRows = 2
	ds := mustParse(t, "m.csv", "a,b,c\n1,2\n3,4,5\n6,7,8\n", opt)
	if ds.NumRows() != 2 || !ds.Truncated {
		t.Fatalf("rows=%d truncated=%v", ds.NumRows(), ds.Truncated)
	}
	if ds.Rows[0][2] != "" {
		t.Fatalf("short row not padded: %v", ds.Rows[0])
	}
}

func TestParseFileAndBOM(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bom.csv")
	if err := os.WriteFile(p, []byte("\ufeffx,y\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, err := ParseFile(p, DefaultOptions())
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if ds.Header[0] != "x" || ds.Name != "bom.csv" {
		t.Fatalf("header=%v name=%s", ds.Header, ds.Name)
	}
}

func TestDatasetMarkdown(t *testing.T) {
	ds := mustParse(t, "m.csv", "a,b\n1,x|y\n2,z\n", DefaultOptions())
	md := ds.Markdown(1)
	for _, want := range []string{"File: m.csv", "- a: numeric", "[HEAD]", "x/y"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "| 2 |") {
		t.Errorf("markdown includes more rows than requested:\n%s", md)
	}
}

func TestFramePreview(t *testing.T) {
	ds, err := Parse("p.csv", strings.NewReader("city,temp\nOslo,3.5\nRome,\nLima,18\n"), DefaultOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	df := ds.Frame(2)
	if df.NRows() != 2 || len(df.Series) != 2 {
		t.Fatalf("frame %d rows, %d series", df.NRows(), len(df.Series))
	}
	out := ds.Preview(0)
	for _, want := range []string{"CITY", "TEMP", "Oslo", "Lima"} {
		if !strings.Contains(out, want) {
			t.Fatalf("preview missing %q:\n%s", want, out)
		}
	}
}
