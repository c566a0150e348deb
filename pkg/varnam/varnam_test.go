package varnam

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"govarnam/internal/langdetect"
	"govarnam/internal/result"
	"govarnam/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestHandle builds a handle over a small Devanagari scheme:
// a→अ, aa→आ (dependent ा), k→क, virama ~→्, and the cancellation
// character.
func newTestHandle(t *testing.T) *Varnam {
	t.Helper()

	v, err := Init(filepath.Join(t.TempDir(), "test.vst"))
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })

	require.NoError(t, v.CreateToken("~", "्", "", "", "", token.Virama, token.MatchExact, true))
	require.NoError(t, v.CreateToken("a", "अ", "", "", "", token.Vowel, token.MatchExact, true))
	require.NoError(t, v.CreateToken("aa", "आ", "ा", "", "", token.Vowel, token.MatchExact, true))
	require.NoError(t, v.CreateToken("k", "क", "", "", "", token.Consonant, token.MatchExact, true))
	require.NoError(t, v.CreateToken("_", "", "", "", "", token.NonJoiner, token.MatchExact, true))
	require.NoError(t, v.FlushBuffer())
	return v
}

func withSuggestions(t *testing.T, v *Varnam) {
	t.Helper()
	require.NoError(t, v.EnableSuggestions(filepath.Join(t.TempDir(), "learnings")))
}

func TestBasicForwardTransliteration(t *testing.T) {
	v := newTestHandle(t)

	got, err := v.Transliterate("kaaka")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "काक", got[0].Text)
	assert.Equal(t, 1, got[0].Confidence)
}

func TestCancellationCharacter(t *testing.T) {
	v := newTestHandle(t)

	got, err := v.Transliterate("aa_a")
	require.NoError(t, err)
	require.Len(t, got, 1)
	// The underscore forces the second vowel into independent form.
	assert.Equal(t, "आअ", got[0].Text)
}

func TestReverseTransliteration(t *testing.T) {
	v := newTestHandle(t)

	got, err := v.ReverseTransliterate("काक")
	require.NoError(t, err)
	assert.Equal(t, "kaak", got)
}

func TestReverseDisambiguation(t *testing.T) {
	v := newTestHandle(t)

	got, err := v.ReverseTransliterate("अअ")
	require.NoError(t, err)
	assert.Equal(t, "a_a", got)
}

func TestRoundTrip(t *testing.T) {
	v := newTestHandle(t)

	// Inputs whose rendering keeps every vowel recoverable: the bare
	// "a" has no dependent sign, so forms ending in it don't come
	// back.
	for _, input := range []string{"kaak", "aa", "a"} {
		suggestions, err := v.Transliterate(input)
		require.NoError(t, err)
		require.NotEmpty(t, suggestions)

		back, err := v.ReverseTransliterate(suggestions[0].Text)
		require.NoError(t, err)
		assert.Equal(t, input, back, "round trip of %q via %q", input, suggestions[0].Text)
	}
}

func TestDuplicateTokenRejectionAndOverride(t *testing.T) {
	v := newTestHandle(t)

	require.NoError(t, v.CreateToken("x", "X1", "", "", "", token.Symbol, token.MatchExact, false))

	err := v.CreateToken("x", "X1", "", "", "", token.Symbol, token.MatchExact, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, result.ErrDuplicateToken))
	assert.NotEmpty(t, v.LastError())

	v.SetIgnoreDuplicateTokens(true)
	require.NoError(t, v.CreateToken("x", "X1", "", "", "", token.Symbol, token.MatchExact, false))
}

func TestDeadConsonantDerivation(t *testing.T) {
	v := newTestHandle(t)

	// "ga" carries the inherent 'a': persisting it also derives the
	// dead consonant "g" -> ग ्.
	require.NoError(t, v.CreateToken("ga", "ग", "", "", "", token.Consonant, token.MatchExact, false))

	dead, err := v.GetAllTokens(token.DeadConsonant)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "g", dead[0].Pattern)
	assert.Equal(t, "ग्", dead[0].Value1)

	// A consonant already ending in the virama is reclassified.
	require.NoError(t, v.CreateToken("j", "ज्", "", "", "", token.Consonant, token.MatchExact, false))
	dead, err = v.GetAllTokens(token.DeadConsonant)
	require.NoError(t, err)
	assert.Len(t, dead, 2)
}

func TestLearnThenSuggest(t *testing.T) {
	v := newTestHandle(t)
	withSuggestions(t, v)

	require.NoError(t, v.Learn("काक"))

	got, err := v.Transliterate("kaak")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "काक", got[0].Text)
	assert.Equal(t, 1, got[0].Confidence)

	// Re-learning raises the confidence.
	require.NoError(t, v.Learn("काक"))
	got, err = v.Transliterate("kaak")
	require.NoError(t, err)
	assert.Equal(t, "काक", got[0].Text)
	assert.Equal(t, 2, got[0].Confidence)
}

func TestSuggestionMonotonicity(t *testing.T) {
	v := newTestHandle(t)
	withSuggestions(t, v)

	require.NoError(t, v.Learn("काक"))

	// "kaa" is a prefix of the stored pattern "kaak", so the learned
	// word must appear among the candidates.
	got, err := v.Transliterate("kaa")
	require.NoError(t, err)
	texts := make([]string, 0, len(got))
	for _, s := range got {
		texts = append(texts, s.Text)
	}
	assert.Contains(t, texts, "काक")
}

func TestLearnIdempotence(t *testing.T) {
	v := newTestHandle(t)
	withSuggestions(t, v)

	for i := 0; i < 5; i++ {
		require.NoError(t, v.Learn("काक"))
	}

	known, err := v.IsKnownWord("काक")
	require.NoError(t, err)
	assert.True(t, known)

	best, err := v.words.GetBestMatch("kaak")
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, 5, best[0].Confidence)
}

func TestDeletionSymmetry(t *testing.T) {
	v := newTestHandle(t)
	withSuggestions(t, v)

	require.NoError(t, v.Learn("काक"))
	require.NoError(t, v.DeleteWord("काक"))

	known, err := v.IsKnownWord("काक")
	require.NoError(t, err)
	assert.False(t, known)

	best, err := v.words.GetBestMatch("kaak")
	require.NoError(t, err)
	assert.Empty(t, best)
}

func TestLearnValidation(t *testing.T) {
	v := newTestHandle(t)
	withSuggestions(t, v)

	tests := []struct {
		name    string
		word    string
		fragment string // substring expected in the error
	}{
		{"single token", "क", "nothing to learn"},
		{"all vowels", "अआ", "only vowels"},
		{"unknown grapheme", "काQ", "Q"},
		{"repeating tokens", strings.Repeat("क", 4), "looks incorrect"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Learn(tc.word)
			require.Error(t, err)
			assert.True(t, errors.Is(err, result.ErrLearnRejected), "got %v", err)
			assert.Contains(t, err.Error(), tc.fragment)
			assert.Contains(t, v.LastError(), tc.fragment)
		})
	}

	err := v.Learn("\xff\xfe")
	require.Error(t, err)
	assert.True(t, errors.Is(err, result.ErrEncoding))
}

func TestLearnRequiresWordsStore(t *testing.T) {
	v := newTestHandle(t)
	err := v.Learn("काक")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enabled")
}

func TestLearnSanitizesSpecialCharacters(t *testing.T) {
	v := newTestHandle(t)
	withSuggestions(t, v)

	require.NoError(t, v.Learn("  (काक). "))

	known, err := v.IsKnownWord("काक")
	require.NoError(t, err)
	assert.True(t, known)
}

func TestTrain(t *testing.T) {
	v := newTestHandle(t)
	withSuggestions(t, v)

	require.NoError(t, v.Train("qaaq", "काक"))

	got, err := v.Transliterate("qaaq")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "काक", got[0].Text)
}

func TestLearnFromFile(t *testing.T) {
	v := newTestHandle(t)
	withSuggestions(t, v)

	path := filepath.Join(t.TempDir(), "words.txt")
	content := "काक\nकाका 3\nक\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	var failed []string
	status, err := v.LearnFromFile(path, func(word string, err error) {
		if err != nil {
			failed = append(failed, word)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, status.TotalWords)
	assert.Equal(t, 1, status.Failed)
	assert.Equal(t, []string{"क"}, failed)

	known, err := v.IsKnownWord("काका")
	require.NoError(t, err)
	assert.True(t, known)

	// The confidence column came from the file.
	best, err := v.words.GetBestMatch("kaakaa")
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, 3, best[0].Confidence)
}

func TestExportImportRoundTrip(t *testing.T) {
	v := newTestHandle(t)
	withSuggestions(t, v)

	for _, word := range []string{"काक", "काका", "आका"} {
		require.NoError(t, v.Learn(word))
	}

	dir := t.TempDir()
	require.NoError(t, v.ExportWords(2, dir, nil))

	files, err := filepath.Glob(filepath.Join(dir, "*.words.txt"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	fresh := newTestHandle(t)
	withSuggestions(t, fresh)
	for _, f := range files {
		require.NoError(t, fresh.ImportFromFile(f))
	}

	for _, word := range []string{"काक", "काका", "आका"} {
		known, err := fresh.IsKnownWord(word)
		require.NoError(t, err)
		assert.True(t, known, "word %q lost in the round trip", word)
	}

	got, err := fresh.Transliterate("kaak")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "काक", got[0].Text)
}

func TestSchemeDetails(t *testing.T) {
	v := newTestHandle(t)

	err := v.SetSchemeDetails(SchemeDetails{LangCode: "mal"})
	require.Error(t, err)

	require.NoError(t, v.SetSchemeDetails(SchemeDetails{
		LangCode:     "hi",
		Identifier:   "hi-itrans",
		DisplayName:  "Hindi",
		Author:       "tests",
		CompiledDate: "2026-08-01",
	}))

	assert.Equal(t, "hi", v.SchemeLanguageCode())
	assert.Equal(t, "hi-itrans", v.SchemeIdentifier())
	assert.Equal(t, "Hindi", v.SchemeDisplayName())
	assert.Equal(t, "tests", v.SchemeAuthor())
	assert.Equal(t, "2026-08-01", v.SchemeCompiledDate())
}

func TestDetectLang(t *testing.T) {
	v := newTestHandle(t)
	assert.Equal(t, langdetect.Hindi, v.DetectLang("काक"))
	assert.Equal(t, langdetect.Unknown, v.DetectLang("kaak"))
}

func TestLastErrorUntouchedOnSuccess(t *testing.T) {
	v := newTestHandle(t)
	withSuggestions(t, v)

	err := v.Learn("क")
	require.Error(t, err)
	recorded := v.LastError()
	require.NotEmpty(t, recorded)

	_, err = v.Transliterate("kaaka")
	require.NoError(t, err)
	assert.Equal(t, recorded, v.LastError(), "successful calls must not touch the last error")
}

func TestEnableSuggestionsToggle(t *testing.T) {
	v := newTestHandle(t)
	path := filepath.Join(t.TempDir(), "learnings")

	require.NoError(t, v.EnableSuggestions(path))
	assert.Equal(t, path, v.SuggestionsFile())

	// An empty path closes the store.
	require.NoError(t, v.EnableSuggestions(""))
	assert.Empty(t, v.SuggestionsFile())

	err := v.Learn("काक")
	require.Error(t, err)
}
