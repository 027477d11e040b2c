package risk

import "math"

type Inputs struct {
	Equity     float64
	RiskPct    float64 // 0.005
	EntryPrice float64
	StopPrice  float64
	// Lot rounds units down to a multiple of Lot. Zero means whole units.
	Lot float64
}

type Result struct {
	Units        float64
	StopDistance float64
	RiskAmount   float64
}

// Calculate sizes a position so that hitting the stop loses RiskPct of
// Equity. Units are unsigned; the caller applies the direction.
func Calculate(in Inputs) Result {
	dist := math.Abs(in.EntryPrice - in.StopPrice)
	riskAmt := in.Equity * in.RiskPct

	res := Result{StopDistance: dist, RiskAmount: riskAmt}
	if dist == 0 || riskAmt <= 0 {
		return res
	}

	lot := in.Lot
	if lot <= 0 {
		lot = 1
	}
	res.Units = math.Floor(riskAmt/dist/lot) * lot
	return res
}
