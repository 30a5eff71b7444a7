package viz

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/AyushAagrwal/DataStatX/internal/analysis"
)

// defaultCategoryLimit caps bars and pie slices when the spec sets no limit.
const defaultCategoryLimit = 30

type category struct {
	Label string
	Value float64
}

type xyPoint struct {
	X    float64
	T    time.Time
	Y    float64
	Name string
}

// categories groups rows by the X column and folds Y with the spec's aggregation.
func categories(ds *analysis.Dataset, s Spec) ([]category, error) {
	xi := ds.ColumnIndex(s.X)
	yi := -1
	if s.Y != "" {
		yi = ds.ColumnIndex(s.Y)
	}
	type acc struct {
		sum   float64
		n     int
		order int
	}
	var out []category
	groups := map[string]*acc{}
	var keys []string
	for _, row := range ds.Rows {
		x := row[xi]
		if analysis.IsMissing(x) {
			continue
		}
		y := math.NaN()
		if yi >= 0 {
			if v, ok := ds.ParseNumber(row[yi]); ok && !analysis.IsMissing(row[yi]) {
				y = v
			}
		}
		if s.Aggregation == AggNone {
			if finite(y) {
				out = append(out, category{Label: x, Value: y})
			}
			continue
		}
		g := groups[x]
		if g == nil {
			g = &acc{order: len(keys)}
			groups[x] = g
			keys = append(keys, x)
		}
		if s.Aggregation == AggCount {
			g.n++
			continue
		}
		if !math.IsNaN(y) {
			g.sum += y
			g.n++
		}
	}
	if s.Aggregation != AggNone {
		for _, k := range keys {
			g := groups[k]
			var v float64
			switch s.Aggregation {
			case AggCount:
				v = float64(g.n)
			case AggMean:
				if g.n == 0 {
					continue
				}
				v = g.sum / float64(g.n)
			default:
				v = g.sum
			}
			if !finite(v) {
				return nil, fmt.Errorf("%s of %q for %q is out of range", s.Aggregation, s.Y, k)
			}
			out = append(out, category{Label: k, Value: v})
		}
		if ds.Kinds[xi] == analysis.KindNumeric || ds.Kinds[xi] == analysis.KindDatetime {
			sortByX(ds, xi, out)
		}
	}
	switch s.Sort {
	case "asc":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	case "desc":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	}
	limit := s.Limit
	if limit <= 0 {
		limit = defaultCategoryLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no rows to plot for %q", s.X)
	}
	return out, nil
}

func sortByX(ds *analysis.Dataset, xi int, cats []category) {
	key := func(label string) float64 {
		if ds.Kinds[xi] == analysis.KindDatetime {
			if t, ok := analysis.ParseTime(label); ok {
				return float64(t.UnixNano())
			}
			return math.Inf(1)
		}
		v, _ := ds.ParseNumber(label)
		return v
	}
	sort.SliceStable(cats, func(i, j int) bool { return key(cats[i].Label) < key(cats[j].Label) })
}

// points builds an ordered XY series. Line charts fold duplicate X values;
// scatter charts keep every complete row.
func points(ds *analysis.Dataset, s Spec) ([]xyPoint, error) {
	xi := ds.ColumnIndex(s.X)
	switch {
	case s.Type == Scatter:
		xs, ys := ds.Float64s(xi), ds.Float64s(ds.ColumnIndex(s.Y))
		var out []xyPoint
		for i := range xs {
			if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
				continue
			}
			out = append(out, xyPoint{X: xs[i], Y: ys[i]})
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no complete rows for %q and %q", s.X, s.Y)
		}
		return out, nil
	default:
		folded := s
		folded.Sort, folded.Limit = "", math.MaxInt
		cats, err := categories(ds, folded)
		if err != nil {
			return nil, err
		}
		out := make([]xyPoint, len(cats))
		for i, c := range cats {
			p := xyPoint{X: float64(i), Y: c.Value, Name: c.Label}
			switch ds.Kinds[xi] {
			case analysis.KindNumeric:
				p.X, _ = ds.ParseNumber(c.Label)
			case analysis.KindDatetime:
				p.T, _ = analysis.ParseTime(c.Label)
			}
			out[i] = p
		}
		switch ds.Kinds[xi] {
		case analysis.KindNumeric:
			sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })
		case analysis.KindDatetime:
			sort.SliceStable(out, func(i, j int) bool { return out[i].T.Before(out[j].T) })
		}
		return out, nil
	}
}

type bin struct {
	Lo, Hi float64
	Count  int
}

// histogram bins a numeric column using Sturges' rule.
func histogram(vals []float64) ([]bin, error) {
	x := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("no values to bin")
	}
	sort.Float64s(x)
	lo, hi := x[0], x[len(x)-1]
	if !finite(hi - lo) {
		return nil, fmt.Errorf("value range of %s to %s is too wide to bin", short(lo), short(hi))
	}
	if lo == hi {
		return []bin{{Lo: lo, Hi: hi, Count: len(x)}}, nil
	}
	k := int(math.Ceil(math.Log2(float64(len(x))))) + 1
	width := (hi - lo) / float64(k)
	bins := make([]bin, k)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	bins[k-1].Hi = hi
	for _, v := range x {
		i := int((v - lo) / width)
		if i >= k {
			i = k - 1
		}
		bins[i].Count++
	}
	return bins, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
