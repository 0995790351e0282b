package store

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	errs "followsync/pkg/errors"
	"followsync/pkg/logger"
	"followsync/pkg/models"
)

// Store is an append-only newline-delimited JSON log of profile records
type Store struct {
	path   string
	mu     sync.Mutex
	file   *os.File
	logger logger.Logger
}

// Open prepares the log at path, creating its directory. Failing to create
// the directory is a fatal startup condition for the caller.
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, err, "failed to create store directory")
	}

	return &Store{
		path:   path,
		logger: log.WithField("component", "store"),
	}, nil
}

// Path returns the log file location
func (s *Store) Path() string {
	return s.path
}

// Load replays the log front to back. Later lines win; lines that do not
// decode into a record with an account id are skipped.
func (s *Store) Load() (*Results, error) {
	results := NewResults()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return results, nil
		}
		return nil, errs.Wrap(errs.ErrorTypeStorage, err, "failed to open store")
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	lineNo, skipped := 0, 0
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if rec, ok := decodeLine(line); ok {
				results.Put(rec)
			} else if len(bytes.TrimSpace(line)) > 0 {
				skipped++
				s.logger.DebugWithFields("Skipping malformed store line", map[string]interface{}{
					"line": lineNo,
				})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, errs.Wrap(errs.ErrorTypeStorage, readErr, "failed to read store")
		}
	}

	s.logger.InfoWithFields("Store loaded", map[string]interface{}{
		"path":     s.path,
		"lines":    lineNo,
		"accounts": results.Len(),
		"skipped":  skipped,
	})

	return results, nil
}

func decodeLine(line []byte) (*models.ProfileRecord, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, false
	}
	var rec models.ProfileRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, false
	}
	if rec.AccountID == "" {
		return nil, false
	}
	return &rec, true
}

// Append writes rec as one line and forces it to disk before returning.
// Existing lines are never rewritten.
func (s *Store) Append(rec *models.ProfileRecord) error {
	line, err := encodeLine(rec)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, err, "failed to encode record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		if err := s.openForAppend(); err != nil {
			return err
		}
	}

	if _, err := s.file.Write(line); err != nil {
		s.dropHandle()
		return errs.Wrap(errs.ErrorTypeStorage, err, "failed to append record")
	}
	if err := s.file.Sync(); err != nil {
		s.dropHandle()
		return errs.Wrap(errs.ErrorTypeStorage, err, "failed to sync store")
	}

	s.logger.DebugWithFields("Record appended", map[string]interface{}{
		"account_id": rec.AccountID,
		"bytes":      len(line),
	})
	return nil
}

// dropHandle discards the append handle after a failed write. The next
// Append reopens the log and terminates whatever fragment was left behind.
func (s *Store) dropHandle() {
	s.file.Close()
	s.file = nil
}

// openForAppend opens the log and terminates a trailing partial line left
// by an earlier crash so the next record starts on its own line.
func (s *Store) openForAppend() error {
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, err, "failed to open store for append")
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return errs.Wrap(errs.ErrorTypeStorage, err, "failed to stat store")
	}
	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := file.ReadAt(last, size-1); err != nil {
			file.Close()
			return errs.Wrap(errs.ErrorTypeStorage, err, "failed to inspect store tail")
		}
		if last[0] != '\n' {
			if _, err := file.Write([]byte{'\n'}); err != nil {
				file.Close()
				return errs.Wrap(errs.ErrorTypeStorage, err, "failed to terminate partial line")
			}
		}
	}

	s.file = file
	return nil
}

func encodeLine(rec *models.ProfileRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	line := buf.Bytes()
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	return line, nil
}

// Close releases the append handle
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
