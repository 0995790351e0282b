package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StatusTracker counts accounts handled against the input total. A resumed
// run starts from the number already stored.
type StatusTracker struct {
	Total     int
	Done      int
	Failed    int
	StartTime time.Time
}

// NewStatusTracker creates a tracker for total accounts, done of which are
// already complete
func NewStatusTracker(total, done int) *StatusTracker {
	return &StatusTracker{
		Total:     total,
		Done:      done,
		StartTime: time.Now(),
	}
}

// IncrementDone records one more successful account
func (st *StatusTracker) IncrementDone() {
	st.Done++
}

// IncrementFailed records one failed account
func (st *StatusTracker) IncrementFailed() {
	st.Failed++
}

// Position returns the 1-based index of the account about to be handled
func (st *StatusTracker) Position() int {
	return st.Done + st.Failed + 1
}

// GetProgress returns a formatted progress bar
func (st *StatusTracker) GetProgress() string {
	filled := 0
	if st.Total > 0 {
		filled = (st.Done * barWidth) / st.Total
	}
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, barWidth-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.Done, st.Total)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetRate returns accounts handled per minute
func (st *StatusTracker) GetRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Done+st.Failed) / elapsed
}
