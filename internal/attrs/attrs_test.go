package attrs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmpty(t *testing.T) {
	m := Parse(nil)
	require.True(t, m.IsEmpty())
}

func TestParseRecognizesEveryKey(t *testing.T) {
	m := Parse([]RawAttribute{
		{Key: "readonly", Value: "true"},
		{Key: "ignored", Value: "true"},
		{Key: "onset", Value: "customSet"},
		{Key: "onget", Value: "customGet"},
		{Key: "onclear", Value: "customClear"},
		{Key: "onchange", Value: "customChange"},
		{Key: "default", Value: "7"},
		{Key: "lowerborder", Value: "0"},
		{Key: "upperborder", Value: "100"},
	})
	require.False(t, m.IsEmpty())
	require.NotNil(t, m.ReadOnly)
	require.True(t, *m.ReadOnly)
	require.NotNil(t, m.Ignored)
	require.True(t, *m.Ignored)
	require.Equal(t, "customSet", *m.OnSet)
	require.Equal(t, "customGet", *m.OnGet)
	require.Equal(t, "customClear", *m.OnClear)
	require.Equal(t, "customChange", *m.OnChange)
	require.Equal(t, "7", *m.Default)
	require.Equal(t, "0", *m.LowerBorder)
	require.Equal(t, "100", *m.UpperBorder)
}

func TestParseReadonlySetsTrueRegardlessOfLiteralValue(t *testing.T) {
	m := Parse([]RawAttribute{{Key: "readonly", Value: "false"}})
	require.NotNil(t, m.ReadOnly)
	require.True(t, *m.ReadOnly, "the mere presence of readonly sets it, the value string is not consulted")
}

func TestParseIsCaseInsensitiveAndTrimsWhitespace(t *testing.T) {
	m := Parse([]RawAttribute{{Key: "  ReadOnly  ", Value: "true"}})
	require.NotNil(t, m.ReadOnly)
	require.True(t, *m.ReadOnly)
}

func TestParseUnknownKeyIgnoredSilently(t *testing.T) {
	m := Parse([]RawAttribute{{Key: "notARealAttribute", Value: "x"}})
	require.True(t, m.IsEmpty())
}

func TestParseLastEntryWins(t *testing.T) {
	m := Parse([]RawAttribute{
		{Key: "default", Value: "1"},
		{Key: "default", Value: "2"},
	})
	require.Equal(t, "2", *m.Default)
}

func TestFoldMatchesCaseInsensitively(t *testing.T) {
	require.Equal(t, Fold("MAIN.Value"), Fold("main.value"))
	require.NotEqual(t, Fold("MAIN.Value"), Fold("MAIN.Other"))
}
