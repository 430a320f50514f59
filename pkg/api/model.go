package api

import (
	"embed"
	"fmt"
	"html/template"

	"rfqdash/pkg/dashboard"
	"rfqdash/pkg/rfq"
)

//go:embed templates/*.html
var templateFS embed.FS

const csrfField = "csrf_token"

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"percent": func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
	"selected": func(list []string, v string) bool {
		for _, s := range list {
			if s == v {
				return true
			}
		}
		return false
	},
}).ParseFS(templateFS, "templates/*.html"))

// bar is one row of a CSS bar chart; Width is relative to the largest bar.
type bar struct {
	Label string
	Count int
	Width float64
}

type pageData struct {
	CSRFField   template.HTML
	LoginNeeded bool
	Error       string
	Notice      string
	View        *dashboard.View
	StatusBars  []bar
	TrendBars   []bar
}

func newPageData(csrfField template.HTML) *pageData {
	return &pageData{CSRFField: csrfField}
}

func (p *pageData) withView(v dashboard.View) *pageData {
	p.View = &v
	p.StatusBars = statusBars(v.Result.StatusBreakdown)
	p.TrendBars = trendBars(v.Result.MonthlyTrend)
	return p
}

func statusBars(counts []rfq.StatusCount) []bar {
	bars := make([]bar, 0, len(counts))
	for _, c := range counts {
		bars = append(bars, bar{Label: c.Status, Count: c.Count})
	}
	return scale(bars)
}

func trendBars(months []rfq.MonthCount) []bar {
	bars := make([]bar, 0, len(months))
	for _, m := range months {
		bars = append(bars, bar{Label: m.Month, Count: m.Count})
	}
	return scale(bars)
}

func scale(bars []bar) []bar {
	top := 0
	for _, b := range bars {
		if b.Count > top {
			top = b.Count
		}
	}
	if top == 0 {
		return bars
	}
	for i := range bars {
		bars[i].Width = float64(bars[i].Count) / float64(top) * 100
	}
	return bars
}

var notices = map[string]string{
	"replace":   "Data replaced.",
	"append":    "Rows appended.",
	"refreshed": "Data reloaded from the record store.",
}
