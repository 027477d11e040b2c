package stats

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"text/template"
	"time"
)

var reportFuncs = template.FuncMap{
	"pct": func(x float64) float64 { return x * 100 },
	"num": func(x float64) string {
		if math.IsNaN(x) {
			return "NaN"
		}
		return fmt.Sprintf("%.2f", x)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
}

const reportTemplate = `Backtest Statistics
====================
{{printf "%-28s %20s" "Start" (date .Start)}}
{{printf "%-28s %20s" "End" (date .End)}}
{{printf "%-28s %20s" "Duration" .Duration.String}}
{{printf "%-28s %20.2f" "Exposure Time [%]" (pct .ExposureTime)}}
{{printf "%-28s %20.2f" "Equity Final [$]" .EquityFinal}}
{{printf "%-28s %20.2f" "Equity Peak [$]" .EquityPeak}}
{{printf "%-28s %20.2f" "Total Return [%]" (pct .TotalReturn)}}
{{printf "%-28s %20.2f" "Buy & Hold Return [%]" (pct .BuyHoldReturn)}}
{{printf "%-28s %20.2f" "Return Ann [%]" (pct .AnnualReturn)}}
{{printf "%-28s %20.2f" "Volatility Ann [%]" (pct .AnnualVolatility)}}
{{printf "%-28s %20.2f" "Sharpe Ratio" .Sharpe}}
{{printf "%-28s %20.2f" "Calmar Ratio" .Calmar}}
{{printf "%-28s %20.2f" "Max Drawdown [%]" (pct .MaxDrawdown)}}
{{printf "%-28s %20.2f" "Alpha [%]" (pct .Alpha)}}
{{printf "%-28s %20.2f" "Beta" .Beta}}
{{printf "%-28s %20d" "Total Trades" .Trades}}
{{printf "%-28s %20.2f" "Win Rate [%]" (pct .WinRate)}}
{{printf "%-28s %20.2f" "Best Trade [$]" .BestTrade}}
{{printf "%-28s %20.2f" "Worst Trade [$]" .WorstTrade}}
{{printf "%-28s %20.2f" "Avg. Win [$]" .AvgWin}}
{{printf "%-28s %20.2f" "Avg. Loss [$]" .AvgLoss}}
{{printf "%-28s %20s" "Profit Factor" (num .ProfitFactor)}}
{{printf "%-28s %20.2f" "Max Margin Usage [%]" (pct .MaxMarginUsage)}}
{{printf "%-28s %20d" "Max Concurrent Trades" .MaxConcurrentTrades}}
====================
`

var reportTmpl = template.Must(template.New("report").Funcs(reportFuncs).Parse(reportTemplate))

// Print writes the report as an aligned table with ratios in percent.
func (r Report) Print(w io.Writer) error {
	return reportTmpl.Execute(w, r)
}

func (r Report) String() string {
	var buf bytes.Buffer
	_ = r.Print(&buf)
	return buf.String()
}
