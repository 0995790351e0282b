package ingest

import (
	"fmt"
	"strings"

	"go.uber.org/atomic"
)

// Mode selects what a run does. Exactly one mode is active.
type Mode int

const (
	ModeDefault Mode = iota
	ModeResume
	ModeForce
	ModeExportOnly
	ModeValidate
	ModeValidateImages
	ModeFetchMissingImages
)

func (m Mode) String() string {
	switch m {
	case ModeResume:
		return "resume"
	case ModeForce:
		return "force"
	case ModeExportOnly:
		return "export-only"
	case ModeValidate:
		return "validate"
	case ModeValidateImages:
		return "validate-images"
	case ModeFetchMissingImages:
		return "fetch-missing-images"
	default:
		return "default"
	}
}

// fetches reports whether the mode contacts mirrors
func (m Mode) fetches() bool {
	switch m {
	case ModeDefault, ModeResume, ModeForce, ModeFetchMissingImages:
		return true
	}
	return false
}

// Flags mirrors the command line switches
type Flags struct {
	Resume             bool
	Force              bool
	Single             bool
	ExportOnly         bool
	Validate           bool
	ValidateImages     bool
	FetchMissingImages bool
}

// Options is a validated mode selection
type Options struct {
	Mode   Mode
	Single bool
}

// ParseFlags turns switches into Options. More than one mode, or single
// combined with a read-only mode, is a conflict.
func ParseFlags(f Flags) (Options, error) {
	set := []struct {
		on   bool
		mode Mode
	}{
		{f.Resume, ModeResume},
		{f.Force, ModeForce},
		{f.ExportOnly, ModeExportOnly},
		{f.Validate, ModeValidate},
		{f.ValidateImages, ModeValidateImages},
		{f.FetchMissingImages, ModeFetchMissingImages},
	}

	opts := Options{Mode: ModeDefault, Single: f.Single}
	var chosen []string
	for _, s := range set {
		if s.on {
			opts.Mode = s.mode
			chosen = append(chosen, "--"+s.mode.String())
		}
	}

	if len(chosen) > 1 {
		return Options{}, fmt.Errorf("conflicting modes: %s", strings.Join(chosen, ", "))
	}
	if opts.Single && !opts.Mode.fetches() {
		return Options{}, fmt.Errorf("--single cannot be combined with --%s", opts.Mode)
	}
	return opts, nil
}

// StopFlag is set once by a signal handler and polled between accounts
type StopFlag struct {
	stopped *atomic.Bool
}

// NewStopFlag returns a cleared flag
func NewStopFlag() *StopFlag {
	return &StopFlag{stopped: atomic.NewBool(false)}
}

// Cancel sets the flag. It reports whether this call was the one that set it.
func (s *StopFlag) Cancel() bool {
	return s.stopped.CompareAndSwap(false, true)
}

// Canceled reports whether Cancel has been called
func (s *StopFlag) Canceled() bool {
	return s.stopped.Load()
}
