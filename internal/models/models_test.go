package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringArrayRoundTrip(t *testing.T) {
	v, err := StringArray{"a", "b c"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b c"]`, v)

	var out StringArray
	require.NoError(t, out.Scan([]byte(`["x","y"]`)))
	assert.Equal(t, StringArray{"x", "y"}, out)

	require.NoError(t, out.Scan("{one,two}"))
	assert.Equal(t, StringArray{"one", "two"}, out)

	require.NoError(t, out.Scan(nil))
	assert.Nil(t, out)

	nilValue, err := StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", nilValue)
}

func TestImportRowErrorsColumn(t *testing.T) {
	v, err := ImportRowErrors{{Row: 3, Message: "name: required"}}.Value()
	require.NoError(t, err)
	assert.Equal(t, `[{"row":3,"message":"name: required"}]`, v)

	var out ImportRowErrors
	require.NoError(t, out.Scan([]byte(`[{"row":4,"message":"pricing: unknown"}]`)))
	require.Len(t, out, 1)
	assert.Equal(t, 4, out[0].Row)

	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
	assert.Error(t, out.Scan(`"not a list"`))

	body, err := json.Marshal(ImportRun{Entity: "tools"})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"errors":[]`)
}

func TestTagPattern(t *testing.T) {
	assert.Equal(t, `%"youtube"%`, TagPattern(" YouTube "))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, StringArray{"ai", "voiceover"}, NormalizeTags([]string{"AI", " voiceover", "ai", ""}))
}

func TestReadingMinutes(t *testing.T) {
	assert.Equal(t, 1, ReadingMinutes(""))
	assert.Equal(t, 1, ReadingMinutes(strings.Repeat("word ", 200)))
	assert.Equal(t, 2, ReadingMinutes(strings.Repeat("word ", 201)))
	assert.Equal(t, 5, ReadingMinutes(strings.Repeat("word ", 1000)))
}

func TestArticlePublishStampsOnce(t *testing.T) {
	a := &Article{}
	first := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	a.Publish(first)
	a.Publish(first.Add(time.Hour))

	require.NotNil(t, a.PublishedAt)
	assert.True(t, a.Published)
	assert.Equal(t, first, *a.PublishedAt)
}

func TestEnums(t *testing.T) {
	assert.True(t, PricingFreemium.Valid())
	assert.False(t, Pricing("cheap").Valid())
	assert.True(t, FormatCanva.Valid())
	assert.False(t, Platform("myspace").Valid())
	assert.True(t, CompetitionHigh.Valid())
	assert.True(t, ForumMonetization.Valid())
	assert.False(t, ForumCategory("random").Valid())
	assert.True(t, RoleEditor.CanEdit())
	assert.False(t, RoleMember.CanEdit())
	assert.True(t, KindForumPost.Valid())
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, ProgressPercent(0, 0))
	assert.Equal(t, 33, ProgressPercent(1, 3))
	assert.Equal(t, 66, ProgressPercent(2, 3))
	assert.Equal(t, 100, ProgressPercent(5, 3))
}
