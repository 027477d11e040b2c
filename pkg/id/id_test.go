package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsIncreasing(t *testing.T) {
	t.Parallel()

	prev := New()
	for i := 0; i < 1000; i++ {
		next := New()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestGeneratorClockGoingBackwards(t *testing.T) {
	t.Parallel()

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(func() time.Time { return clock })

	a := g.Next()
	clock = clock.Add(-time.Hour)
	b := g.Next()

	assert.Less(t, a, b)
}

func TestTime(t *testing.T) {
	t.Parallel()

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(func() time.Time { return clock })

	got, err := Time(g.Next())
	require.NoError(t, err)
	assert.True(t, got.Equal(clock))

	_, err = Time("not-an-id")
	assert.Error(t, err)
}
