package ratelimit

import (
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces out sequential requests by a random delay drawn uniformly
// from [minDelay, maxDelay]
type Pacer struct {
	minDelay, maxDelay time.Duration

	mu    sync.Mutex
	rng   *rand.Rand
	sleep func(time.Duration)
}

// NewPacer creates a Pacer. A maxDelay below minDelay is raised to it.
func NewPacer(minDelay, maxDelay time.Duration) *Pacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Pacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:    time.Sleep,
	}
}

// Delay returns the next delay without sleeping
func (p *Pacer) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	span := p.maxDelay - p.minDelay
	if span <= 0 {
		return p.minDelay
	}
	return p.minDelay + time.Duration(p.rng.Int63n(int64(span)+1))
}

// Pause sleeps for the next delay and returns it
func (p *Pacer) Pause() time.Duration {
	d := p.Delay()
	if d > 0 {
		p.sleep(d)
	}
	return d
}
