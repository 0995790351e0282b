// Package following reads the exported account list the run iterates over.
package following

import (
	"bytes"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"followsync/pkg/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type entry struct {
	Following struct {
		AccountID string `json:"accountId"`
	} `json:"following"`
}

// Load returns the account ids listed in path, in file order. The file may
// start with a UTF-8 BOM and a JavaScript assignment prefix; the JSON array
// begins at the first '['. Entries without an id are skipped.
func Load(path string) ([]models.AccountID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read following list: %w", err)
	}
	return Parse(data)
}

// Parse extracts account ids from the raw file contents
func Parse(data []byte) ([]models.AccountID, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	start := bytes.IndexByte(data, '[')
	if start < 0 {
		return nil, fmt.Errorf("following list has no JSON array")
	}

	var entries []entry
	if err := json.Unmarshal(bytes.TrimRight(data[start:], " \t\r\n;"), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse following list: %w", err)
	}

	ids := make([]models.AccountID, 0, len(entries))
	for _, e := range entries {
		if e.Following.AccountID == "" {
			continue
		}
		ids = append(ids, e.Following.AccountID)
	}
	return ids, nil
}

// Dedupe drops repeated ids, keeping the first occurrence
func Dedupe(ids []models.AccountID) []models.AccountID {
	seen := make(map[models.AccountID]struct{}, len(ids))
	out := make([]models.AccountID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
