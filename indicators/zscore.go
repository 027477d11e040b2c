package indicators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

const flatTolerance = 1e-12

// ZScore is a streaming z-score of the latest value against a rolling window
// of the last period values, using the sample standard deviation.
type ZScore struct {
	period int
	window []float64
}

func NewZScore(period int) *ZScore {
	return &ZScore{period: period, window: make([]float64, 0, period)}
}

func (z *ZScore) Name() string { return fmt.Sprintf("Z(%d)", z.period) }

func (z *ZScore) Warmup() int { return z.period }

func (z *ZScore) Reset() { z.window = z.window[:0] }

func (z *ZScore) Add(v float64) {
	z.window = append(z.window, v)
	if len(z.window) > z.period {
		z.window = z.window[1:]
	}
}

func (z *ZScore) Ready() bool { return z.period > 1 && len(z.window) >= z.period }

// Value is (last-mean)/std over the window, 0 when the window is flat to
// within rounding.
func (z *ZScore) Value() float64 {
	if !z.Ready() {
		return 0
	}
	mean, std := stat.MeanStdDev(z.window, nil)
	if std <= flatTolerance*math.Max(1, math.Abs(mean)) {
		return 0
	}
	return (z.window[len(z.window)-1] - mean) / std
}
