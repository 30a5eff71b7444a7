package server

import (
	"math"

	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/viz"
)

// num maps NaN to JSON null.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type columnDTO struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Unit string `json:"unit,omitempty"`
}

type datasetResponse struct {
	SessionID string      `json:"session_id"`
	FileName  string      `json:"file_name"`
	Rows      int         `json:"rows"`
	Truncated bool        `json:"truncated,omitempty"`
	Columns   []columnDTO `json:"columns"`
}

func newDatasetResponse(sessionID string, ds *analysis.Dataset) datasetResponse {
	out := datasetResponse{SessionID: sessionID, FileName: ds.Name, Rows: ds.NumRows(), Truncated: ds.Truncated}
	for j, name := range ds.Header {
		out.Columns = append(out.Columns, columnDTO{Name: name, Kind: string(ds.Kinds[j]), Unit: ds.Units[j]})
	}
	return out
}

type describeDTO struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q1     *float64 `json:"25%"`
	Median *float64 `json:"50%"`
	Q3     *float64 `json:"75%"`
	Max    *float64 `json:"max"`
}

type modeDTO struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

type corrDTO struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

type statsResponse struct {
	Name        string              `json:"name"`
	Rows        int                 `json:"rows"`
	Describe    []describeDTO       `json:"describe"`
	Mean        map[string]*float64 `json:"mean"`
	Median      map[string]*float64 `json:"median"`
	Mode        []modeDTO           `json:"mode"`
	Correlation corrDTO             `json:"correlation"`
}

func newStatsResponse(st *analysis.Stats) statsResponse {
	out := statsResponse{
		Name:   st.Name,
		Rows:   st.Rows,
		Mean:   map[string]*float64{},
		Median: map[string]*float64{},
	}
	for _, c := range st.Describe {
		out.Describe = append(out.Describe, describeDTO{
			Column: c.Name, Count: c.Count,
			Mean: num(c.Mean), Std: num(c.Std), Min: num(c.Min),
			Q1: num(c.Q1), Median: num(c.Median), Q3: num(c.Q3), Max: num(c.Max),
		})
	}
	for name, v := range st.Means() {
		out.Mean[name] = num(v)
	}
	for name, v := range st.Medians() {
		out.Median[name] = num(v)
	}
	for _, m := range st.Mode {
		out.Mode = append(out.Mode, modeDTO{Column: m.Column, Value: m.Value})
	}
	out.Correlation.Columns = st.Corr.Columns
	for _, row := range st.Corr.Values {
		r := make([]*float64, len(row))
		for i, v := range row {
			r[i] = num(v)
		}
		out.Correlation.Values = append(out.Correlation.Values, r)
	}
	return out
}

type chartRequest struct {
	Query string `json:"query"`
}

type chartDTO struct {
	Spec    viz.Spec `json:"spec"`
	Library string   `json:"library"`
	// Raster is the display-sized PNG, base64 encoded.
	Raster string `json:"raster"`
}

type chartResponse struct {
	Query     string   `json:"query"`
	Chart     chartDTO `json:"chart"`
	ElapsedMs int64    `json:"elapsed_ms"`
}
