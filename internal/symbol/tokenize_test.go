package symbol

import (
	"errors"
	"strings"
	"testing"

	"govarnam/internal/result"
	"govarnam/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mlStore builds a small Malayalam-flavoured scheme.
func mlStore(t *testing.T) *Store {
	t.Helper()
	s := testStore(t)

	rows := []struct {
		pattern, v1, v2 string
		kind            token.Kind
		match           token.MatchType
	}{
		{"a", "അ", "", token.Vowel, token.MatchExact},
		{"aa", "ആ", "ാ", token.Vowel, token.MatchExact},
		{"A", "ആ", "ാ", token.Vowel, token.MatchPossibility},
		{"k", "ക", "", token.Consonant, token.MatchExact},
		{"kh", "ഖ", "", token.Consonant, token.MatchExact},
		{"v", "വ", "", token.Consonant, token.MatchExact},
		{"n", "ൻ", "", token.Consonant, token.MatchExact},
		{"~", "്", "", token.Virama, token.MatchExact},
	}
	for _, r := range rows {
		require.NoError(t, s.PersistToken(r.pattern, r.v1, r.v2, "", "", r.kind, r.match))
	}
	require.NoError(t, s.StampPrefixFlags())
	return s
}

func TestTokenizeLongestMatch(t *testing.T) {
	s := mlStore(t)
	pool := token.NewPool(64)

	groups, err := s.Tokenize("kaa", ModePattern, token.MatchExact, pool)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "k", groups[0][0].Pattern)
	// "aa" wins over "a": greedy longest match.
	assert.Equal(t, "aa", groups[1][0].Pattern)
}

func TestTokenizeEmptyInput(t *testing.T) {
	s := mlStore(t)
	groups, err := s.Tokenize("", ModePattern, token.MatchExact, token.NewPool(4))
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestTokenizeUnknownRuneBecomesOther(t *testing.T) {
	s := mlStore(t)
	pool := token.NewPool(64)

	groups, err := s.Tokenize("k?a", ModePattern, token.MatchExact, pool)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, token.Other, groups[1][0].Kind)
	assert.Equal(t, "?", groups[1][0].Pattern)
	assert.Equal(t, "?", groups[1][0].Value1)
}

func TestTokenizeReassembly(t *testing.T) {
	s := mlStore(t)
	pool := token.NewPool(256)

	// Concatenating first-match patterns must reproduce the input
	// byte for byte, unknown characters included.
	for _, input := range []string{"kaakha", "a", "kva?n~aa", "???", "khakhakha"} {
		pool.Reset()
		groups, err := s.Tokenize(input, ModePattern, token.MatchExact, pool)
		require.NoError(t, err)

		var sb strings.Builder
		for _, g := range groups {
			sb.WriteString(g[0].Pattern)
		}
		assert.Equal(t, input, sb.String(), "reassembly of %q", input)
	}
}

func TestTokenizeInvalidUTF8(t *testing.T) {
	s := mlStore(t)
	_, err := s.Tokenize("k\xff", ModePattern, token.MatchExact, token.NewPool(4))
	require.Error(t, err)
	assert.True(t, errors.Is(err, result.ErrEncoding), "got %v", err)
}

func TestTokenizeValueMode(t *testing.T) {
	s := mlStore(t)
	pool := token.NewPool(64)

	groups, err := s.Tokenize("അവൻ", ModeValue, token.MatchExact, pool)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "a", groups[0][0].Pattern)
	assert.Equal(t, "v", groups[1][0].Pattern)
	assert.Equal(t, "n", groups[2][0].Pattern)
}

func TestTokenizeValueModeMatchAll(t *testing.T) {
	s := mlStore(t)
	pool := token.NewPool(64)

	// "ആ" is value1 of both the exact "aa" and the possibility "A".
	groups, err := s.Tokenize("ആ", ModeValue, token.MatchAll, pool)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 2)

	// Restricted to exact, the possibility row disappears.
	pool.Reset()
	groups, err = s.Tokenize("ആ", ModeValue, token.MatchExact, pool)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 1)
	assert.Equal(t, "aa", groups[0][0].Pattern)
}

func TestTokenizePatternModeIgnoresPossibility(t *testing.T) {
	s := mlStore(t)
	pool := token.NewPool(64)

	// "A" exists only as a possibility row; pattern mode matches
	// exact rows, so it falls through to Other.
	groups, err := s.Tokenize("A", ModePattern, token.MatchExact, pool)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, token.Other, groups[0][0].Kind)
}
