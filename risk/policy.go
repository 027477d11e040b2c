package risk

import (
	"fmt"

	"github.com/rustyeddy/ticksim/broker"
)

// Policy holds pre-trade limits a strategy applies before submitting an
// order. Zero fields are not checked.
type Policy struct {
	MaxRiskPct     float64 // 0.01
	MaxOpenTrades  int     // 3
	MaxMarginUsage float64 // 0.5
	MinRR          float64 // 1.5
}

type TradeIntent struct {
	Instrument string
	Units      float64
	Entry      float64
	Stop       float64
	TakeProfit float64
}

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    float64
	PlannedRiskPct float64
	PlannedRR      float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Evaluate checks intent against the policy and the current account.
func Evaluate(p Policy, intent TradeIntent, acct broker.Account) Decision {
	d := Decision{Allowed: true}

	if intent.Units == 0 {
		d.add("NO_UNITS", "units must be non-zero")
		return d
	}

	if intent.Stop != 0 {
		d.PlannedRisk = PlannedRisk(intent.Units, intent.Entry, intent.Stop)
		d.PlannedRiskPct = RiskPct(d.PlannedRisk, acct.Equity)
		if p.MaxRiskPct > 0 && d.PlannedRiskPct > p.MaxRiskPct {
			d.add("RISK_TOO_HIGH",
				fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
					100*d.PlannedRiskPct, 100*p.MaxRiskPct))
		}
	}

	if intent.Stop != 0 && intent.TakeProfit != 0 {
		d.PlannedRR = RR(intent.Entry, intent.Stop, intent.TakeProfit)
		if p.MinRR > 0 && d.PlannedRR < p.MinRR {
			d.add("RR_TOO_LOW",
				fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
		}
	}

	if p.MaxOpenTrades > 0 && acct.OpenTrades >= p.MaxOpenTrades {
		d.add("TOO_MANY_OPEN_TRADES",
			fmt.Sprintf("open trades %d >= max %d", acct.OpenTrades, p.MaxOpenTrades))
	}

	if p.MaxMarginUsage > 0 && acct.MarginUsage > p.MaxMarginUsage {
		d.add("MARGIN_TOO_HIGH",
			fmt.Sprintf("margin usage %.2f%% exceeds max %.2f%%",
				100*acct.MarginUsage, 100*p.MaxMarginUsage))
	}

	return d
}
