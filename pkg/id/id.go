// Package id hands out time-sortable identifiers for trades and runs.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces strictly increasing ULID strings. Timestamps never move
// backwards, even when the clock does, so the string order of two ids is the
// order in which they were created.
type Generator struct {
	mu   sync.Mutex
	now  func() time.Time
	mono io.Reader
	last uint64
}

// NewGenerator returns a Generator reading time from now. A nil now uses
// time.Now.
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}

	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		now:  now,
		mono: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
}

// Next returns the next identifier.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := ulid.Timestamp(g.now().UTC())
	if ms < g.last {
		ms = g.last
	}
	g.last = ms

	id, err := ulid.New(ms, g.mono)
	if err != nil {
		// Only reachable when the monotonic entropy overflows within one ms.
		panic(err)
	}
	return id.String()
}

var std = NewGenerator(nil)

// New returns a ULID string from the process-wide generator.
func New() string {
	return std.Next()
}

// Time reports the creation time encoded in an id.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
