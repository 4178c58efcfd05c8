package journal

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/rustyeddy/magnet/backtest"
)

// OrgReport is the data behind an Org-mode run report.
type OrgReport struct {
	Run         Run
	Params      map[string]string
	Notes       []string
	NextActions []string
}

var orgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"pct": func(s backtest.Stat) string {
		if !s.Valid {
			return "undefined"
		}
		return fmt.Sprintf("%.1f%%", 100*s.Value)
	},
	"money": func(s backtest.Stat) string { return s.Format("%.2f") },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var orgTemplate = template.Must(template.New("run").Funcs(orgFuncs).Parse(RunOrgTemplate))

// WriteOrg renders r as an Org-mode heading.
func (r OrgReport) WriteOrg(w io.Writer) error {
	return orgTemplate.Execute(w, r)
}

const RunOrgTemplate = `* BACKTEST: Price Magnet {{.Run.Source}} {{.Run.Days}}d
:PROPERTIES:
:RUN_ID:      {{.Run.Summary.RunID}}
:STRATEGY:    price_magnet
:SOURCE:      {{.Run.Source}}
:SEED:        {{.Run.Seed}}
:START_DATE:  {{.Run.Summary.Start.Format "2006-01-02"}}
:END_DATE:    {{.Run.Summary.End.Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .Run.Summary.InitialBalance}}
:END_BAL:     {{printf "%.2f" .Run.Summary.FinalBalance}}
:NET_PL:      {{printf "%.2f" .Run.Summary.TotalPnL}}
:MAX_DD_PCT:  {{printf "%.2f" (mul100 .Run.Summary.MaxDrawdownPct)}}
:TRADES:      {{.Run.Summary.TotalTrades}}
:WINS:        {{.Run.Summary.Wins}}
:LOSSES:      {{.Run.Summary.Losses}}
:WIN_RATE:    {{pct .Run.Summary.WinRate}}
:EDGE:        {{pct .Run.Summary.Edge}}
:EDGE_GRADE:  {{.Run.Summary.EdgeGrade}}
:CREATED:     [{{(orTime .Run.Created).Format "2006-01-02 Mon 15:04"}}]
:END:
{{- if .Params }}

** Parameters
| Parameter | Value |
|-----------+-------|
{{- range $k, $v := .Params }}
| {{$k}} | {{$v}} |
{{- end }}
{{- end }}

** Performance Summary
- Net P/L:        *{{printf "%.2f" .Run.Summary.TotalPnL}}*
- Avg Win:        *{{money .Run.Summary.AvgWin}}*
- Avg Loss:       *{{money .Run.Summary.AvgLoss}}*
- Profit Factor:  *{{printf "%.2f" .Run.Summary.ProfitFactor}}*
- Max Drawdown:   *{{printf "%.2f" .Run.Summary.MaxDrawdown}}*
- Faulted steps:  {{.Run.Summary.Faults}}

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Run.Summary.Wins}} |
| Losses  | {{.Run.Summary.Losses}} |
| Total   | {{.Run.Summary.TotalTrades}} |
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
{{- if .NextActions }}

** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
