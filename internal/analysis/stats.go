package analysis

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// ColumnStats is the describe() row of one numeric column.
type ColumnStats struct {
	Name   string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// ModeValue is the first modal value of a column. Value is empty when the
// column has no non-missing cells.
type ModeValue struct {
	Column string
	Value  string
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
// Undefined entries are NaN.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Stats is the full statistics view of a dataset.
type Stats struct {
	Name     string
	Rows     int
	Describe []ColumnStats
	Mode     []ModeValue
	Corr     *CorrMatrix
}

// Describe computes summary statistics, per-column mean, median and mode,
// and the correlation matrix of the numeric columns.
func Describe(ds *Dataset) (*Stats, error) {
	if ds == nil || ds.NumRows() == 0 {
		return nil, ErrEmptyDataset
	}
	numCols := ds.NumericColumns()
	if len(numCols) == 0 {
		return nil, ErrNoNumericColumns
	}
	st := &Stats{Name: ds.Name, Rows: ds.NumRows()}
	for _, j := range numCols {
		st.Describe = append(st.Describe, describeColumn(ds.Header[j], ds.Float64s(j)))
	}
	for j := range ds.Header {
		st.Mode = append(st.Mode, ModeValue{Column: ds.Header[j], Value: Mode(ds, j)})
	}
	st.Corr = Correlation(ds)
	return st, nil
}

// Means returns the mean of every numeric column keyed by name.
func (s *Stats) Means() map[string]float64 {
	out := make(map[string]float64, len(s.Describe))
	for _, c := range s.Describe {
		out[c.Name] = c.Mean
	}
	return out
}

// Medians returns the median of every numeric column.
func (s *Stats) Medians() map[string]float64 {
	out := make(map[string]float64, len(s.Describe))
	for _, c := range s.Describe {
		out[c.Name] = c.Median
	}
	return out
}

func describeColumn(name string, vals []float64) ColumnStats {
	x := present(vals)
	cs := ColumnStats{Name: name, Count: len(x)}
	nan := math.NaN()
	if len(x) == 0 {
		cs.Mean, cs.Std, cs.Min, cs.Q1, cs.Median, cs.Q3, cs.Max = nan, nan, nan, nan, nan, nan, nan
		return cs
	}
	cs.Mean = stat.Mean(x, nil)
	cs.Std = nan
	if len(x) > 1 {
		cs.Std = stat.StdDev(x, nil)
	}
	sort.Float64s(x)
	cs.Min = x[0]
	cs.Max = x[len(x)-1]
	cs.Q1 = quantile(x, 0.25)
	cs.Median = quantile(x, 0.5)
	cs.Q3 = quantile(x, 0.75)
	return cs
}

// Mean of the non-missing values; NaN when there are none.
func Mean(vals []float64) float64 {
	x := present(vals)
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// Median of the non-missing values; NaN when there are none.
func Median(vals []float64) float64 {
	x := present(vals)
	if len(x) == 0 {
		return math.NaN()
	}
	sort.Float64s(x)
	return quantile(x, 0.5)
}

// Mode returns the most frequent value of column j. Ties resolve to the
// smallest value, compared numerically for numeric columns and as strings
// otherwise.
func Mode(ds *Dataset, j int) string {
	if ds.Kinds[j] == KindNumeric {
		counts := map[float64]int{}
		for _, v := range ds.Float64s(j) {
			if !math.IsNaN(v) {
				counts[v]++
			}
		}
		if len(counts) == 0 {
			return ""
		}
		best, bestN := 0.0, -1
		for v, n := range counts {
			if n > bestN || (n == bestN && v < best) {
				best, bestN = v, n
			}
		}
		return FormatFloat(best)
	}
	counts := map[string]int{}
	for _, v := range ds.Values(j) {
		counts[v]++
	}
	best, bestN := "", -1
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

// Correlation computes Pearson coefficients between numeric columns using
// pairwise complete observations. The diagonal is 1 for columns with at
// least two distinct values and NaN otherwise.
func Correlation(ds *Dataset) *CorrMatrix {
	numCols := ds.NumericColumns()
	n := len(numCols)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for a, j := range numCols {
		m.Columns[a] = ds.Header[j]
		m.Values[a] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		xa := ds.Float64s(numCols[a])
		if r := pearson(xa, xa); math.IsNaN(r) {
			m.Values[a][a] = math.NaN()
		} else {
			m.Values[a][a] = 1
		}
		for b := a + 1; b < n; b++ {
			r := pearson(xa, ds.Float64s(numCols[b]))
			m.Values[a][b] = r
			m.Values[b][a] = r
		}
	}
	return m
}

func pearson(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	switch {
	case math.IsNaN(r) || math.IsInf(r, 0):
		return math.NaN()
	case r > 1:
		return 1
	case r < -1:
		return -1
	}
	return r
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

func present(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// quantile uses linear interpolation between closest ranks on sorted input.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// FormatFloat prints integers without a fractional part and everything else
// in the shortest round-tripping form.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
