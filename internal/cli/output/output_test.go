package output

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/contentanonymity/backend/internal/cli/config"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, format string) *bytes.Buffer {
	t.Helper()
	require.NoError(t, config.Init(filepath.Join(t.TempDir(), "config.toml")))
	config.Set("output.format", format)
	color.NoColor = true

	buf := &bytes.Buffer{}
	prev := Out
	Out = buf
	t.Cleanup(func() { Out = prev })
	return buf
}

func TestValidFormat(t *testing.T) {
	assert.True(t, ValidFormat("json"))
	assert.True(t, ValidFormat("table"))
	assert.True(t, ValidFormat("text"))
	assert.False(t, ValidFormat("yaml"))
}

func TestPrintListTable(t *testing.T) {
	buf := capture(t, "table")
	require.NoError(t, PrintList([]string{"SLUG", "TITLE"}, [][]string{{"a-post", "A Post"}}, nil))
	assert.Contains(t, buf.String(), "SLUG")
	assert.Contains(t, buf.String(), "a-post  A Post")
}

func TestPrintListJSONUsesRaw(t *testing.T) {
	buf := capture(t, "json")
	raw := []map[string]string{{"slug": "a-post"}}
	require.NoError(t, PrintList([]string{"SLUG"}, [][]string{{"ignored"}}, raw))
	assert.JSONEq(t, `[{"slug":"a-post"}]`, buf.String())
}

func TestPrintListText(t *testing.T) {
	buf := capture(t, "text")
	require.NoError(t, PrintList([]string{"Slug", "Title"}, [][]string{{"one", "One"}, {"two", "Two"}}, nil))
	assert.Equal(t, "Slug: one\nTitle: One\n\nSlug: two\nTitle: Two\n", buf.String())
}

func TestPrintRecordSortsKeys(t *testing.T) {
	buf := capture(t, "text")
	require.NoError(t, PrintRecord(map[string]interface{}{"rows": 3, "inserted": 2}))
	assert.Equal(t, "inserted: 2\nrows: 3\n", buf.String())
}

func TestMessages(t *testing.T) {
	buf := capture(t, "text")
	PrintSuccess("saved %d", 2)
	PrintWarning("careful")
	assert.Equal(t, "✓ saved 2\nWarning: careful\n", buf.String())
}
