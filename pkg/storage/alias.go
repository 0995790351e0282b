package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LatestAlias points a fixed path at the newest version of an asset
type LatestAlias interface {
	// Point makes alias resolve to target. Both live on the same filesystem.
	Point(alias, target string) error
	Name() string
}

// NewAlias returns the strategy named by mode: auto, symlink or copy
func NewAlias(mode string) (LatestAlias, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return AutoAlias{}, nil
	case "symlink":
		return SymlinkAlias{}, nil
	case "copy":
		return CopyAlias{}, nil
	default:
		return nil, fmt.Errorf("unknown latest alias mode %q", mode)
	}
}

// SymlinkAlias replaces alias with a relative symlink to target. The link is
// created under a temporary name and renamed into place.
type SymlinkAlias struct{}

func (SymlinkAlias) Name() string { return "symlink" }

func (SymlinkAlias) Point(alias, target string) error {
	rel, err := filepath.Rel(filepath.Dir(alias), target)
	if err != nil {
		return fmt.Errorf("failed to relativize %s: %w", target, err)
	}

	tmp := tempName(alias)
	if err := os.Symlink(rel, tmp); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	if err := os.Rename(tmp, alias); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace alias: %w", err)
	}
	return nil
}

// CopyAlias replaces alias with a full copy of target
type CopyAlias struct{}

func (CopyAlias) Name() string { return "copy" }

func (CopyAlias) Point(alias, target string) error {
	src, err := os.Open(target)
	if err != nil {
		return fmt.Errorf("failed to open version: %w", err)
	}
	defer src.Close()

	return writeAtomic(alias, src)
}

// AutoAlias prefers a symlink and falls back to a copy where links are not
// supported
type AutoAlias struct{}

func (AutoAlias) Name() string { return "auto" }

func (AutoAlias) Point(alias, target string) error {
	if err := (SymlinkAlias{}).Point(alias, target); err == nil {
		return nil
	}
	return CopyAlias{}.Point(alias, target)
}

func tempName(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
}

// writeAtomic writes r to a temporary file next to path, syncs it and renames
// it over path
func writeAtomic(path string, r io.Reader) error {
	tmp := tempName(path)
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	if err == nil {
		err = out.Sync()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
