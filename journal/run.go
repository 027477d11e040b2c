package journal

import (
	"io"
	"math"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/stats"
)

// Run is the summary row of one backtest or live session.
type Run struct {
	RunID   string
	Created time.Time
	Mode    string // backtest or live
	Dataset string

	Instrument string
	Strategy   string
	Config     []byte // strategy params as JSON

	Start time.Time
	End   time.Time
	Ticks int

	Trades int
	Wins   int
	Losses int

	StartCash float64
	EndEquity float64

	TotalReturn    float64
	MaxDrawdown    float64
	Sharpe         float64
	WinRate        float64
	ProfitFactor   float64
	MaxMarginUsage float64
	Ruined         bool

	Notes []string
}

// Apply copies the headline figures of a report and the win/loss split of
// the closed trades into r.
func (r *Run) Apply(rep stats.Report, trades []broker.Trade, startCash float64) {
	r.Start = rep.Start
	r.End = rep.End
	r.Ticks = rep.Ticks
	r.StartCash = startCash
	r.EndEquity = rep.EquityFinal
	r.TotalReturn = rep.TotalReturn
	r.MaxDrawdown = rep.MaxDrawdown
	r.Sharpe = rep.Sharpe
	r.WinRate = rep.WinRate
	r.ProfitFactor = rep.ProfitFactor
	r.MaxMarginUsage = rep.MaxMarginUsage

	r.Trades, r.Wins, r.Losses = 0, 0, 0
	for _, t := range trades {
		if t.Open {
			continue
		}
		r.Trades++
		switch pnl := t.PnL(); {
		case pnl > 0:
			r.Wins++
		case pnl < 0:
			r.Losses++
		}
	}
}

func (r Run) NetPL() float64 { return r.EndEquity - r.StartCash }

var runOrgFuncs = template.FuncMap{
	"pct": func(x float64) string {
		if math.IsNaN(x) {
			return "n/a"
		}
		return formatFixed(x*100, 2)
	},
	"num": func(x float64) string {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "n/a"
		}
		return formatFixed(x, 2)
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// WriteOrg renders the run as an Org-mode entry.
func (r Run) WriteOrg(w io.Writer) error {
	return runOrg.Execute(w, r)
}

// WriteOrgFile renders the run into path.
func (r Run) WriteOrgFile(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteOrg(fh); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

const RunOrgTemplate = `* {{if eq .Mode "live"}}LIVE{{else}}BACKTEST{{end}}: {{.Strategy}} {{.Instrument}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:STRATEGY:    {{.Strategy}}
:INSTRUMENT:  {{.Instrument}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:TICKS:       {{.Ticks}}
:START_CASH:  {{printf "%.2f" .StartCash}}
:END_EQUITY:  {{printf "%.2f" .EndEquity}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{pct .TotalReturn}}
:MAX_DD_PCT:  {{pct .MaxDrawdown}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{pct .WinRate}}
:PROFIT_FAC:  {{num .ProfitFactor}}
:RUINED:      {{.Ruined}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
{{if .Config}}#+begin_src json
{{printf "%s" .Config}}
#+end_src{{else}}(defaults){{end}}

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{pct .TotalReturn}}%*
- Max Drawdown:     *{{pct .MaxDrawdown}}%*
- Sharpe:           *{{num .Sharpe}}*
- Win Rate:         *{{pct .WinRate}}%*
- Profit Factor:    *{{num .ProfitFactor}}*
- Max Margin Usage: *{{pct .MaxMarginUsage}}%*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
