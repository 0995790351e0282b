package following

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWithPrefixAndBOM(t *testing.T) {
	data := "\xEF\xBB\xBFwindow.YTD.following.part0 = [\n" +
		`{"following":{"accountId":"11","userLink":"https://x"}},` +
		`{"following":{}},` +
		`{"other":{"accountId":"99"}},` +
		`{"following":{"accountId":"22"}}` +
		"\n];\n"

	ids, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"11", "22"}, ids)
}

func TestParsePlainArray(t *testing.T) {
	ids, err := Parse([]byte(`[{"following":{"accountId":"1"}}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`window.x = {}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`[{"following":`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.js"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "following.js")
	require.NoError(t, os.WriteFile(path, []byte(`x = [{"following":{"accountId":"5"}}]`), 0644))

	ids, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, ids)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, Dedupe([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, Dedupe(nil))
}
