package sim

import "sort"

// PositionManager counts open long and short trades per instrument and
// enforces a per-side cap. It holds no prices; the broker keeps it in step
// with its open trades.
type PositionManager struct {
	maxPerSide int
	counts     map[string]*sideCount
}

type sideCount struct {
	long  int
	short int
}

func NewPositionManager(maxPerSide int) *PositionManager {
	return &PositionManager{
		maxPerSide: maxPerSide,
		counts:     make(map[string]*sideCount),
	}
}

func (p *PositionManager) MaxPerSide() int { return p.maxPerSide }

func (p *PositionManager) get(instrument string) *sideCount {
	c, ok := p.counts[instrument]
	if !ok {
		c = &sideCount{}
		p.counts[instrument] = c
	}
	return c
}

func (p *PositionManager) CanOpenLong(instrument string) bool {
	return p.Count(instrument, true) < p.maxPerSide
}

func (p *PositionManager) CanOpenShort(instrument string) bool {
	return p.Count(instrument, false) < p.maxPerSide
}

// Register records a newly opened trade of the given signed size.
func (p *PositionManager) Register(instrument string, size float64) {
	c := p.get(instrument)
	if size > 0 {
		c.long++
	} else {
		c.short++
	}
}

// Close records a closed trade. Counts never go below zero.
func (p *PositionManager) Close(instrument string, size float64) {
	c := p.get(instrument)
	if size > 0 {
		if c.long > 0 {
			c.long--
		}
	} else if c.short > 0 {
		c.short--
	}
}

func (p *PositionManager) Count(instrument string, long bool) int {
	c, ok := p.counts[instrument]
	if !ok {
		return 0
	}
	if long {
		return c.long
	}
	return c.short
}

// Total is the number of open trades across all instruments and sides.
func (p *PositionManager) Total() int {
	n := 0
	for _, c := range p.counts {
		n += c.long + c.short
	}
	return n
}

// Instruments lists instruments with at least one open trade.
func (p *PositionManager) Instruments() []string {
	var out []string
	for k, c := range p.counts {
		if c.long+c.short > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (p *PositionManager) Reset() {
	p.counts = make(map[string]*sideCount)
}
