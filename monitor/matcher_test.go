package monitor

import (
	"context"
	"testing"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchCaseInsensitiveSearch(t *testing.T) {
	m := NewMatcher([]model.KeywordRule{{ID: 2, Label: "ransomware", Pattern: "ransom"}})

	matches := m.Match("New RANSOMware campaign")

	require.Len(t, matches, 1)
	assert.Equal(t, int64(2), matches[0].ID)
	assert.False(t, m.MatchAll())
}

func TestMatchReturnsEveryRuleInOrder(t *testing.T) {
	m := NewMatcher([]model.KeywordRule{
		{ID: 2, Label: "leak", Pattern: "leak"},
		{ID: 3, Label: "none", Pattern: "absent"},
		{ID: 4, Label: "data", Pattern: `data\s+\w+`},
	})

	matches := m.Match("huge data leak reported")

	require.Len(t, matches, 2)
	assert.Equal(t, "leak", matches[0].Label)
	assert.Equal(t, "data", matches[1].Label)
}

func TestMatchEmptyRules(t *testing.T) {
	m := NewMatcher(nil)

	assert.Empty(t, m.Match("anything at all"))
	assert.True(t, m.MatchAll())
}

func TestInvalidPatternIsSkipped(t *testing.T) {
	m := NewMatcher([]model.KeywordRule{
		{ID: 2, Label: "broken", Pattern: "([unclosed"},
		{ID: 3, Label: "ok", Pattern: "ok"},
	})

	assert.Equal(t, 1, m.Len())
	require.Len(t, m.Match("ok then"), 1)
}

func TestInvalidRulesDisableCatchAll(t *testing.T) {
	m := NewMatcher([]model.KeywordRule{{ID: 2, Label: "broken", Pattern: "(unclosed"}})

	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Match("selling shoes"))
	assert.False(t, m.MatchAll())
}

func TestPatternAlreadyCaseInsensitive(t *testing.T) {
	m := NewMatcher([]model.KeywordRule{{ID: 2, Pattern: "(?i)Zero Day"}})

	assert.Len(t, m.Match("a zero day was found"), 1)
}

func TestRefreshKeepsRules(t *testing.T) {
	m := NewMatcher([]model.KeywordRule{{ID: 2, Pattern: "x"}})

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, 1, m.Len())
}

func TestMatchDrugsScenario(t *testing.T) {
	m := NewMatcher([]model.KeywordRule{{ID: 1, Label: "drugs", Pattern: "(?i)xanax"}})

	matches := m.Match("selling Xanax cheap")
	require.Len(t, matches, 1)
	assert.Equal(t, int64(1), matches[0].ID)

	assert.Empty(t, m.Match("selling shoes"))
	assert.False(t, m.MatchAll())
}
