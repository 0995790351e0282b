// Package ratelimit paces outbound requests.
//
// Pacer inserts a jittered delay between sequential profile fetches so a
// run does not hammer a mirror at a fixed cadence. TokenBucket caps asset
// downloads to a number of requests per period across all workers.
//
// Usage:
//
//	pacer := ratelimit.NewPacer(700*time.Millisecond, 1500*time.Millisecond)
//	for _, id := range ids {
//	    fetch(id)
//	    pacer.Pause()
//	}
//
//	limiter := ratelimit.PerMinute(120)
//	limiter.Wait()
package ratelimit
