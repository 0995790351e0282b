package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPacerDelayWithinBounds(t *testing.T) {
	p := NewPacer(700*time.Millisecond, 1500*time.Millisecond)

	for i := 0; i < 500; i++ {
		d := p.Delay()
		assert.GreaterOrEqual(t, d, 700*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestPacerFixedDelay(t *testing.T) {
	p := NewPacer(time.Second, time.Second)
	assert.Equal(t, time.Second, p.Delay())

	inverted := NewPacer(2*time.Second, time.Second)
	assert.Equal(t, 2*time.Second, inverted.Delay())
}

func TestPacerPauseSleeps(t *testing.T) {
	var slept []time.Duration
	p := NewPacer(10*time.Millisecond, 20*time.Millisecond)
	p.sleep = func(d time.Duration) { slept = append(slept, d) }

	d := p.Pause()
	assert.Equal(t, []time.Duration{d}, slept)

	zero := NewPacer(0, 0)
	zero.sleep = func(d time.Duration) { t.Fatal("zero delay must not sleep") }
	assert.Equal(t, time.Duration(0), zero.Pause())
}
