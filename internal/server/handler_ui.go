package server

import (
	"encoding/base64"
	"html/template"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/apperr"
)

const (
	modeAnalysis = "analysis"
	modeQuery    = "query"
)

type tableRow struct {
	Label string
	Cells []string
}

type tableView struct {
	Title   string
	Headers []string
	Rows    []tableRow
}

type pageView struct {
	Mode       string
	FileName   string
	Query      string
	Tables     []tableView
	Heatmap    template.URL
	Chart      template.URL
	ChartTitle string
	Error      string
	Hint       string
}

func pngURL(b []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(b))
}

func (h *handler) page(c *gin.Context, mode string) pageView {
	v := pageView{Mode: mode}
	if s, err := h.deps.Sessions.Get(c.Request.Context(), sessionID(c)); err == nil {
		v.FileName = s.FileName
	}
	return v
}

func (h *handler) renderError(c *gin.Context, v pageView, err error) {
	e := apperr.Classify(err)
	h.entry(c).WithError(err).WithField("kind", e.Kind.String()).Error("UI request failed")
	v.Error = apperr.UserMessage(e)
	if e.Kind == apperr.LocalProcessing {
		v.Hint = apperr.RetryHint
	}
	c.HTML(apperr.HTTPStatus(e), "index.html", v)
}

func (h *handler) index(c *gin.Context) {
	mode := c.DefaultQuery("mode", modeAnalysis)
	if mode != modeQuery {
		mode = modeAnalysis
	}
	c.HTML(http.StatusOK, "index.html", h.page(c, mode))
}

func (h *handler) uiAnalysis(c *gin.Context) {
	ds, ok, err := h.readUpload(c)
	v := h.page(c, modeAnalysis)
	if err != nil {
		h.renderError(c, v, err)
		return
	}
	if !ok {
		h.renderError(c, v, apperr.Local(apperr.CodeNoUpload, "please upload a CSV file", nil))
		return
	}
	v.FileName = ds.Name
	res, err := h.analyze(ds, true)
	if err != nil {
		h.renderError(c, v, err)
		return
	}
	v.Tables = statsTables(res.stats)
	v.Heatmap = pngURL(res.heatmap)
	c.HTML(http.StatusOK, "index.html", v)
}

func (h *handler) uiQuery(c *gin.Context) {
	v := h.page(c, modeQuery)
	ds, err := h.dataset(c)
	if err != nil {
		h.renderError(c, v, err)
		return
	}
	v.FileName = ds.Name
	v.Query = c.PostForm("query")
	res, err := h.generate(c.Request.Context(), ds, v.Query)
	if err != nil {
		h.renderError(c, v, err)
		return
	}
	v.Chart = pngURL(res.PNG)
	v.ChartTitle = res.Chart.Spec.Title
	c.HTML(http.StatusOK, "index.html", v)
}

// statsTables lays out the statistics the way they are shown on the page:
// describe with one column per numeric field, then mean/median, mode and
// the correlation matrix.
func statsTables(st *analysis.Stats) []tableView {
	describe := tableView{Title: "Summary Statistics", Headers: []string{""}}
	labels := []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	rows := make([]tableRow, len(labels))
	for i, l := range labels {
		rows[i].Label = l
	}
	for _, c := range st.Describe {
		describe.Headers = append(describe.Headers, c.Name)
		vals := []float64{float64(c.Count), c.Mean, c.Std, c.Min, c.Q1, c.Median, c.Q3, c.Max}
		for i, v := range vals {
			cell := cellText(v)
			if i == 0 {
				cell = analysis.FormatFloat(v)
			}
			rows[i].Cells = append(rows[i].Cells, cell)
		}
	}
	describe.Rows = rows

	central := tableView{Title: "Mean / Median", Headers: []string{"", "mean", "median"}}
	means, medians := st.Means(), st.Medians()
	for _, c := range st.Describe {
		central.Rows = append(central.Rows, tableRow{Label: c.Name, Cells: []string{cellText(means[c.Name]), cellText(medians[c.Name])}})
	}

	mode := tableView{Title: "Mode", Headers: []string{"", "mode"}}
	for _, m := range st.Mode {
		mode.Rows = append(mode.Rows, tableRow{Label: m.Column, Cells: []string{m.Value}})
	}

	corr := tableView{Title: "Correlation Matrix", Headers: append([]string{""}, st.Corr.Columns...)}
	for i, name := range st.Corr.Columns {
		r := tableRow{Label: name}
		for _, v := range st.Corr.Values[i] {
			r.Cells = append(r.Cells, cellText(v))
		}
		corr.Rows = append(corr.Rows, r)
	}
	return []tableView{describe, central, mode, corr}
}

func cellText(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return analysis.Round3(v)
}
