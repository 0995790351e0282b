package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"followsync/pkg/models"
)

// VersionLayout is the timestamp prefix of every stored version, in JST
const VersionLayout = "20060102-150405"

// Manager lays out versioned asset files under a base directory:
//
//	<base>/<id>/<kind>/<timestamp>_<filename>
//	<base>/<id>/<kind>.jpg
type Manager struct {
	baseDir string
	alias   LatestAlias
	now     func() time.Time
}

// NewManager creates a storage manager rooted at baseDir
func NewManager(baseDir string, alias LatestAlias) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}
	if alias == nil {
		alias = AutoAlias{}
	}

	return &Manager{
		baseDir: baseDir,
		alias:   alias,
		now:     models.Now,
	}, nil
}

// SaveVersion writes r as a new timestamped version of kind for id and then
// moves the latest alias to it. Existing versions are never overwritten by
// a partial write.
func (m *Manager) SaveVersion(id models.AccountID, kind models.AssetKind, filename string, r io.Reader) (string, error) {
	if err := checkSegment(id); err != nil {
		return "", err
	}
	if err := checkSegment(filename); err != nil {
		return "", err
	}

	dir := m.KindDir(id, kind)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	path := filepath.Join(dir, m.now().In(models.JST).Format(VersionLayout)+"_"+filename)
	if err := writeAtomic(path, r); err != nil {
		return "", err
	}

	if err := m.alias.Point(m.AliasPath(id, kind), path); err != nil {
		return path, fmt.Errorf("failed to update %s alias: %w", m.alias.Name(), err)
	}

	return path, nil
}

// KindDir returns the directory holding every version of kind for id
func (m *Manager) KindDir(id models.AccountID, kind models.AssetKind) string {
	return filepath.Join(m.baseDir, id, string(kind))
}

// AliasPath returns the fixed path that resolves to the latest version
func (m *Manager) AliasPath(id models.AccountID, kind models.AssetKind) string {
	return filepath.Join(m.baseDir, id, string(kind)+".jpg")
}

// Versions lists stored versions of kind for id, oldest first
func (m *Manager) Versions(id models.AccountID, kind models.AssetKind) ([]string, error) {
	entries, err := os.ReadDir(m.KindDir(id, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		out = append(out, filepath.Join(m.KindDir(id, kind), name))
	}
	sort.Strings(out)
	return out, nil
}

// BaseDir returns the images root
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// checkSegment rejects values that would escape their directory
func checkSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid path segment %q", s)
	}
	return nil
}
