// Package export renders stored profiles as a Cosense page import.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"followsync/pkg/canonical"
	"followsync/pkg/models"
)

const unknown = "<unknown>"

// Document is the top level of a Cosense import file
type Document struct {
	Pages []Page `json:"pages"`
}

// Page is one imported page
type Page struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// Build renders one page per record that has a screen name, in the given
// order. Image links are passed through Repair.
func Build(records []*models.ProfileRecord, canon *canonical.Canonicalizer) Document {
	doc := Document{Pages: make([]Page, 0, len(records))}

	for _, rec := range records {
		if rec == nil || rec.ScreenName == nil || *rec.ScreenName == "" {
			continue
		}
		sn := *rec.ScreenName

		lines := []string{
			"@" + sn,
			"",
			fmt.Sprintf("[/icons/x.icon] [@%s https://x.com/%s]", sn, sn),
			"",
			"Name: " + orNone(rec.DisplayName),
			"Bio: " + orNone(rec.Bio),
			"Location: " + orNone(rec.Location),
			"Joined: " + orNone(rec.Joined),
			"",
			"Profile Image: [" + repaired(canon, rec.ProfilePic) + "]",
			"Profile Banner: [" + repaired(canon, rec.ProfileBanner) + "]",
			"",
			"Last Updated: " + fetchedAt(rec.FetchedAt),
			"Fetched From: " + orUnknown(rec.FetchedFrom),
			"",
		}

		doc.Pages = append(doc.Pages, Page{Title: "@" + sn, Lines: lines})
	}

	return doc
}

// Write renders records and replaces path with the result. It returns the
// number of pages written.
func Write(path string, records []*models.ProfileRecord, canon *canonical.Canonicalizer) (int, error) {
	doc := Build(records, canon)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to replace export: %w", err)
	}

	return len(doc.Pages), nil
}

func orNone(p *string) string {
	if p == nil {
		return "None"
	}
	return *p
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func repaired(canon *canonical.Canonicalizer, p *string) string {
	if p == nil || *p == "" {
		return ""
	}
	return canon.Repair(*p)
}

func fetchedAt(t time.Time) string {
	if t.IsZero() {
		return unknown
	}
	return t.Format(time.RFC3339)
}
