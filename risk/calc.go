package risk

import "math"

// PlannedRisk is the absolute loss if the stop is hit.
func PlannedRisk(units, entry, stop float64) float64 {
	return math.Abs(units) * math.Abs(entry-stop)
}

// RR is the reward to risk ratio of a bracket.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}
