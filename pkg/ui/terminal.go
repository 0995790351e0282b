// Package ui prints run progress for a person watching the terminal. Logs
// go through pkg/logger; this package only writes status lines.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"followsync/pkg/models"
)

// Terminal writes styled status lines. It is safe for concurrent use since
// download results arrive from the pool while the fetch loop prints.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	quiet   bool
	tracker *StatusTracker

	info    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	dim     lipgloss.Style
	label   lipgloss.Style
}

// NewTerminal creates a Terminal writing to out. Quiet suppresses per-item
// lines but keeps warnings and the final summary.
func NewTerminal(out io.Writer, quiet bool) *Terminal {
	if out == nil {
		out = os.Stdout
	}
	r := lipgloss.NewRenderer(out)

	return &Terminal{
		out:     out,
		quiet:   quiet,
		info:    r.NewStyle().Foreground(lipgloss.Color("#00FFFF")),
		success: r.NewStyle().Foreground(lipgloss.Color("#39FF14")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("#FF3333")).Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("#808080")),
		label:   r.NewStyle().Foreground(lipgloss.Color("#FF00FF")).Bold(true),
	}
}

// Track attaches a progress tracker used to number status lines
func (t *Terminal) Track(tracker *StatusTracker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracker = tracker
}

func (t *Terminal) println(s string) {
	fmt.Fprintln(t.out, s)
}

func (t *Terminal) counter() string {
	if t.tracker == nil {
		return ""
	}
	return t.dim.Render(fmt.Sprintf("[%d/%d] ", t.tracker.Position(), t.tracker.Total))
}

// Info prints a labelled informational line
func (t *Terminal) Info(label, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(t.label.Render(label+":") + " " + t.info.Render(value))
}

// Warn prints a warning line, even in quiet mode
func (t *Terminal) Warn(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(t.warn.Render(msg))
}

// Fetching announces the account about to be fetched
func (t *Terminal) Fetching(id models.AccountID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quiet {
		return
	}
	t.println(t.counter() + t.info.Render("[FETCH] ") + id)
}

// FetchOK reports a stored profile
func (t *Terminal) FetchOK(id models.AccountID, screenName, mirror string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tracker != nil {
		t.tracker.IncrementDone()
	}
	if t.quiet {
		return
	}
	t.println(t.success.Render("[OK] ") + fmt.Sprintf("%s @%s ", id, screenName) + t.dim.Render("via "+mirror))
}

// FetchFailed reports an account no mirror could serve
func (t *Terminal) FetchFailed(id models.AccountID, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tracker != nil {
		t.tracker.IncrementFailed()
	}
	t.println(t.fail.Render("[FAIL] ") + fmt.Sprintf("%s: %v", id, err))
}

// AssetSaved reports a stored image version
func (t *Terminal) AssetSaved(id models.AccountID, kind models.AssetKind, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quiet {
		return
	}
	t.println(t.success.Render("[IMG] ") + fmt.Sprintf("%s %s ", id, kind) + t.dim.Render(path))
}

// AssetFailed reports an image that could not be downloaded
func (t *Terminal) AssetFailed(id models.AccountID, kind models.AssetKind, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(t.fail.Render("[IMG FAIL] ") + fmt.Sprintf("%s %s: %v", id, kind, err))
}

// Progress prints the tracker's bar
func (t *Terminal) Progress() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tracker == nil || t.quiet {
		return
	}
	t.println(t.label.Render("[PROGRESS] ") + t.info.Render(t.tracker.GetProgress()))
}

// Line prints s unstyled, for listings meant to be piped
func (t *Terminal) Line(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(s)
}

// Interrupted tells the user the run stopped early and can be resumed
func (t *Terminal) Interrupted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(t.warn.Render("[INFO] Interrupted. You can resume safely."))
}

// Done prints the completion line
func (t *Terminal) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(t.success.Render("Done!"))
}
