// Package telemetry exposes live account state to observers outside the
// simulation loop. Observers only ever see copies published by the loop.
package telemetry

import (
	"sync"
	"time"

	"github.com/rustyeddy/ticksim/broker"
)

// Snapshot is the account state after one processed tick.
type Snapshot struct {
	Tick           int       `json:"tick"`
	Time           time.Time `json:"time"`
	Cash           float64   `json:"cash"`
	Equity         float64   `json:"equity"`
	MarginUsage    float64   `json:"margin_usage"`
	MaxMarginUsage float64   `json:"max_margin_usage"`
	OpenTrades     int       `json:"open_trades"`
	ClosedTrades   int       `json:"closed_trades"`
	Ruined         bool      `json:"ruined"`
}

// FromAccount builds the snapshot of tick at time t.
func FromAccount(tick int, t time.Time, a broker.Account) Snapshot {
	return Snapshot{
		Tick:           tick,
		Time:           t,
		Cash:           a.Cash,
		Equity:         a.Equity,
		MarginUsage:    a.MarginUsage,
		MaxMarginUsage: a.MaxMarginUsage,
		OpenTrades:     a.OpenTrades,
		ClosedTrades:   a.ClosedTrades,
		Ruined:         a.Ruined,
	}
}

// Publisher keeps the latest snapshot and fans new ones out to subscribers.
// Slow subscribers miss snapshots rather than block the publisher.
type Publisher struct {
	mu     sync.RWMutex
	latest Snapshot
	have   bool
	subs   map[int]chan Snapshot
	nextID int
}

func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[int]chan Snapshot)}
}

func (p *Publisher) Publish(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.latest, p.have = s, true
	for _, ch := range p.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Latest returns the most recent snapshot, if any was published.
func (p *Publisher) Latest() (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.have
}

// Subscribe returns a channel of future snapshots and a cancel function that
// closes it.
func (p *Publisher) Subscribe(buffer int) (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan Snapshot, buffer)
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers is the number of active subscriptions.
func (p *Publisher) Subscribers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}
