package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/ticksim/market"
)

// ADX computes the Average Directional Index (Wilder) over candle OHLC.
//
// It needs N periods to build the smoothed TR/+DM/-DM and N DX values to
// seed the ADX, so about 2N candles after the first.
type ADX struct {
	n int

	prev    market.Candle
	hasPrev bool
	periods int
	ready   bool

	adx     float64
	plusDI  float64
	minusDI float64
	lastDX  float64

	sumTR, sumPlusDM, sumMinusDM float64
	smTR, smPlusDM, smMinusDM    float64

	dxSum   float64
	dxCount int
}

func NewADX(period int) *ADX {
	return &ADX{n: period}
}

func (a *ADX) Name() string { return fmt.Sprintf("ADX(%d)", a.n) }
func (a *ADX) Warmup() int  { return 2 * a.n }
func (a *ADX) Ready() bool  { return a.ready }

func (a *ADX) Value() float64 {
	if !a.ready {
		return 0
	}
	return a.adx
}

func (a *ADX) Reset() { *a = ADX{n: a.n} }

// Update consumes the next closed candle.
func (a *ADX) Update(c market.Candle) {
	if a.n <= 0 {
		return
	}
	if !a.hasPrev {
		a.prev = c
		a.hasPrev = true
		return
	}

	tr := trueRange(c, a.prev.Close)

	upMove := c.High - a.prev.High
	downMove := a.prev.Low - c.Low
	var plusDM, minusDM float64
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}
	a.prev = c
	a.periods++

	if a.periods <= a.n {
		a.sumTR += tr
		a.sumPlusDM += plusDM
		a.sumMinusDM += minusDM

		if a.periods == a.n {
			a.smTR, a.smPlusDM, a.smMinusDM = a.sumTR, a.sumPlusDM, a.sumMinusDM
			a.plusDI, a.minusDI = di(a.smPlusDM, a.smMinusDM, a.smTR)
			a.lastDX = dx(a.plusDI, a.minusDI)
			a.dxSum = a.lastDX
			a.dxCount = 1
		}
		return
	}

	// smoothed = prior - prior/N + current
	nf := float64(a.n)
	a.smTR = a.smTR - a.smTR/nf + tr
	a.smPlusDM = a.smPlusDM - a.smPlusDM/nf + plusDM
	a.smMinusDM = a.smMinusDM - a.smMinusDM/nf + minusDM

	a.plusDI, a.minusDI = di(a.smPlusDM, a.smMinusDM, a.smTR)
	a.lastDX = dx(a.plusDI, a.minusDI)

	if !a.ready {
		a.dxSum += a.lastDX
		a.dxCount++
		if a.dxCount >= a.n {
			a.adx = a.dxSum / nf
			a.ready = true
		}
		return
	}
	a.adx = (a.adx*(nf-1) + a.lastDX) / nf
}

func (a *ADX) PlusDI() float64  { return a.plusDI }
func (a *ADX) MinusDI() float64 { return a.minusDI }
func (a *ADX) DX() float64      { return a.lastDX }

func di(smPlusDM, smMinusDM, smTR float64) (plusDI, minusDI float64) {
	if smTR <= 0 {
		return 0, 0
	}
	return 100 * smPlusDM / smTR, 100 * smMinusDM / smTR
}

func dx(plusDI, minusDI float64) float64 {
	den := plusDI + minusDI
	if den <= 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / den
}
