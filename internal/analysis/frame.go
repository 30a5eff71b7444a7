package analysis

import (
	"math"

	dataframe "github.com/rocketlaunchr/dataframe-go"
)

// Frame converts the first n rows (all rows when n <= 0) to a dataframe.
// Numeric columns become float64 series; everything else stays string.
// Missing cells are nil.
func (d *Dataset) Frame(n int) *dataframe.DataFrame {
	if n <= 0 || n > d.NumRows() {
		n = d.NumRows()
	}
	series := make([]dataframe.Series, 0, d.NumCols())
	for j, name := range d.Header {
		if d.Kinds[j] == KindNumeric {
			vals := make([]float64, n)
			copy(vals, d.Float64s(j)[:n])
			for i, v := range vals {
				if math.IsInf(v, 0) {
					vals[i] = math.NaN()
				}
			}
			series = append(series, dataframe.NewSeriesFloat64(name, nil, vals))
			continue
		}
		vals := make([]interface{}, n)
		for i := 0; i < n; i++ {
			if cell := d.Rows[i][j]; !IsMissing(cell) {
				vals[i] = cell
			}
		}
		series = append(series, dataframe.NewSeriesString(name, nil, vals...))
	}
	return dataframe.NewDataFrame(series...)
}

// Preview renders the first n rows as a text table. The table writer
// upper-cases column headers.
func (d *Dataset) Preview(n int) string {
	return d.Frame(n).Table()
}
