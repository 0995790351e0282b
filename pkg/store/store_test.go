package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "followsync/pkg/errors"
	"followsync/pkg/logger"
	"followsync/pkg/models"
)

func newRecord(id, screenName, mirror string) *models.ProfileRecord {
	return &models.ProfileRecord{
		AccountID:   id,
		ScreenName:  models.String(screenName),
		FetchedFrom: mirror,
		FetchedAt:   time.Date(2026, 10, 14, 12, 0, 0, 0, models.JST),
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "logs", "success.jsonl"), logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := openTestStore(t)

	results, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, results.Len())
}

func TestAppendThenLoad(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Append(newRecord("A", "alice", "https://m1")))
	require.NoError(t, s.Append(newRecord("B", "bob", "https://m2")))

	lines := readLines(t, s.Path())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"account_id":"A"`)
	assert.Contains(t, lines[1], `"account_id":"B"`)

	results, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, results.Keys())
	assert.Equal(t, "https://m2", results.Get("B").FetchedFrom)
}

func TestLoadLastWriteWins(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Append(newRecord("A", "old", "https://m1")))
	require.NoError(t, s.Append(newRecord("B", "bob", "https://m1")))
	require.NoError(t, s.Append(newRecord("A", "new", "https://m2")))

	results, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, results.Len())
	assert.Equal(t, "new", *results.Get("A").ScreenName)
	// first-seen order is kept even though A was rewritten last
	assert.Equal(t, []string{"A", "B"}, results.Keys())
	assert.Len(t, readLines(t, s.Path()), 3, "append-only: nothing is compacted")
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	s := openTestStore(t)

	content := strings.Join([]string{
		`{"account_id":"A","screen_name":"alice","fetched_from":"m","fetched_at":"2026-10-14T12:00:00+09:00"}`,
		`not json at all`,
		``,
		`{"screen_name":"no id"}`,
		`{"account_id":"B","screen_name":"bob","fetched_from":"m","fetched_at":"2026-10-14T12:00:00+09:00"}`,
		`{"account_id":"C","screen_na`,
	}, "\n")
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0644))

	results, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, results.Keys())
}

func TestAppendTerminatesPartialTrailingLine(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"account_id":"A","screen_name":"al`), 0644))

	require.NoError(t, s.Append(newRecord("B", "bob", "https://m1")))

	lines := readLines(t, s.Path())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"account_id":"B"`)

	results, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, results.Keys())
}

func TestAppendAfterFailedWriteStartsNewLine(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Append(newRecord("A", "alice", "https://m1")))

	// simulate a write that died halfway: a fragment on disk and a dead handle
	f, err := os.OpenFile(s.Path(), os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"account_id":"B","screen_na`)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, s.file.Close())

	err = s.Append(newRecord("B", "bob", "https://m1"))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeStorage))
	assert.Nil(t, s.file, "failed handle is dropped")

	require.NoError(t, s.Append(newRecord("C", "carol", "https://m2")))

	results, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, results.Keys())
}

func TestAppendDoesNotEscapeHTML(t *testing.T) {
	s := openTestStore(t)

	rec := newRecord("A", "alice", "https://m1")
	rec.Bio = models.String("cats & <dogs> 猫")
	require.NoError(t, s.Append(rec))

	lines := readLines(t, s.Path())
	assert.Contains(t, lines[0], "cats & <dogs> 猫")
}

func TestAppendFailureIsClassified(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "success.jsonl")
	require.NoError(t, os.Mkdir(path, 0755))

	s, err := Open(path, logger.NewNopLogger())
	require.NoError(t, err)

	err = s.Append(newRecord("A", "alice", "https://m1"))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeStorage))
}

func TestOpenFailsWhenDirectoryCannotBeCreated(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "logs")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not dir"), 0644))

	_, err := Open(filepath.Join(blocker, "success.jsonl"), logger.NewNopLogger())
	assert.Error(t, err)
}

func TestResultsOrderAndReplace(t *testing.T) {
	r := NewResults()
	r.Put(newRecord("B", "b", "m"))
	r.Put(newRecord("A", "a", "m"))
	r.Put(newRecord("B", "b2", "m"))

	assert.True(t, r.Has("A"))
	assert.False(t, r.Has("Z"))
	assert.Nil(t, r.Get("Z"))
	assert.Equal(t, []string{"B", "A"}, r.Keys())

	records := r.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "b2", *records[0].ScreenName)
}
