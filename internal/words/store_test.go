package words

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "learnings"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTryInsertWord(t *testing.T) {
	s := testStore(t)

	id, err := s.TryInsertWord("മലയാളം", 1)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	// Insert-or-ignore: the second call reports -1.
	again, err := s.TryInsertWord("മലയാളം", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), again)
}

func TestLearnWordBumpsConfidence(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.LearnWord("കാക", 1))
	require.NoError(t, s.LearnWord("കാക", 1))
	require.NoError(t, s.LearnWord("കാക", 1))

	var confidence int
	require.NoError(t, s.db.QueryRow("select confidence from words where word = 'കാക'").Scan(&confidence))
	assert.Equal(t, 3, confidence)

	var n int
	require.NoError(t, s.db.QueryRow("select count(1) from words").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestGetWordIDMemoised(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.LearnWord("കാക", 1))
	id, err := s.GetWordID("കാക")
	require.NoError(t, err)
	assert.Equal(t, s.lastLearnedWordID, id)

	missing, err := s.GetWordID("ഇല്ല")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), missing)
}

func TestPersistPatternLearnedFlag(t *testing.T) {
	s := testStore(t)

	id, err := s.TryInsertWord("കാക", 1)
	require.NoError(t, err)

	require.NoError(t, s.PersistPattern("kaa", id, true))
	require.NoError(t, s.PersistPattern("kaaka", id, false))

	var learned int
	require.NoError(t, s.db.QueryRow(
		"select learned from patterns_content where pattern = 'kaa'").Scan(&learned))
	assert.Equal(t, 0, learned)

	require.NoError(t, s.db.QueryRow(
		"select learned from patterns_content where pattern = 'kaaka'").Scan(&learned))
	assert.Equal(t, 1, learned)

	// Re-persisting the prefix as a full pattern upgrades the flag.
	require.NoError(t, s.PersistPattern("kaa", id, false))
	require.NoError(t, s.db.QueryRow(
		"select learned from patterns_content where pattern = 'kaa'").Scan(&learned))
	assert.Equal(t, 1, learned)
}

func TestPatternsStoredLowercase(t *testing.T) {
	s := testStore(t)
	id, err := s.TryInsertWord("കാക", 1)
	require.NoError(t, err)
	require.NoError(t, s.PersistPattern("KaaKa", id, false))

	var n int
	require.NoError(t, s.db.QueryRow(
		"select count(1) from patterns_content where pattern = 'kaaka'").Scan(&n))
	assert.Equal(t, 1, n)
}

func learnWithPattern(t *testing.T, s *Store, word, pattern string, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		require.NoError(t, s.LearnWord(word, 1))
	}
	id, err := s.GetWordID(word)
	require.NoError(t, err)
	require.NoError(t, s.PersistPattern(pattern, id, false))
}

func TestGetBestMatch(t *testing.T) {
	s := testStore(t)

	learnWithPattern(t, s, "കാക", "kaaka", 1)
	learnWithPattern(t, s, "കാകാ", "kaaka", 3)

	got, err := s.GetBestMatch("kaaka")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Confidence descending.
	assert.Equal(t, "കാകാ", got[0].Text)
	assert.Equal(t, 3, got[0].Confidence)
	assert.Equal(t, "കാക", got[1].Text)

	// Short inputs never hit the store.
	got, err = s.GetBestMatch("ka")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetSuggestions(t *testing.T) {
	s := testStore(t)

	learnWithPattern(t, s, "കാക", "kaaka", 1)
	learnWithPattern(t, s, "കാകാ", "kaakaa", 2)

	got, err := s.GetSuggestions("kaa")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "കാകാ", got[0].Text)

	// The exact pattern itself is out of the suggestion range.
	got, err = s.GetSuggestions("kaaka")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "കാകാ", got[0].Text)
}

func TestGetMatchesAndProbe(t *testing.T) {
	s := testStore(t)

	learnWithPattern(t, s, "കാക", "kaaka", 1)
	id, err := s.GetWordID("കാക")
	require.NoError(t, err)
	require.NoError(t, s.PersistPattern("kaa", id, true))

	// Prefix patterns count for the words tokenizer.
	matches, err := s.GetMatches("kaa")
	require.NoError(t, err)
	assert.Equal(t, []string{"കാക"}, matches)

	possible, err := s.PossibleToFindMatches("kaa")
	require.NoError(t, err)
	assert.True(t, possible)

	possible, err = s.PossibleToFindMatches("zzz")
	require.NoError(t, err)
	assert.False(t, possible)
}

func TestDeleteWord(t *testing.T) {
	s := testStore(t)

	learnWithPattern(t, s, "കാക", "kaaka", 1)
	id, err := s.GetWordID("കാക")
	require.NoError(t, err)

	require.NoError(t, s.DeleteWord("കാക"))

	known, err := s.IsKnownWord("കാക")
	require.NoError(t, err)
	assert.False(t, known)

	var n int
	require.NoError(t, s.db.QueryRow(
		"select count(1) from patterns_content where word_id = ?1", id).Scan(&n))
	assert.Zero(t, n, "patterns must not outlive their word")

	// Deleting an unknown word is a no-op.
	require.NoError(t, s.DeleteWord("ഇല്ല"))
}

func TestWordsCount(t *testing.T) {
	s := testStore(t)

	learnWithPattern(t, s, "കാക", "kaaka", 1)
	require.NoError(t, s.LearnWord("കാ", 1)) // word without a learned pattern

	all, err := s.WordsCount(false)
	require.NoError(t, err)
	assert.Equal(t, 2, all)

	learned, err := s.WordsCount(true)
	require.NoError(t, err)
	assert.Equal(t, 1, learned)
}

func TestTransactionRollback(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Begin())
	_, err := s.TryInsertWord("കാക", 1)
	require.NoError(t, err)
	s.Rollback()

	known, err := s.IsKnownWord("കാക")
	require.NoError(t, err)
	assert.False(t, known)
}

// Two stores over the same file: the journal serialises writers, and
// a reader observes a committed learn from the other handle.
func TestTwoStoresSameFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learnings")

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.LearnWord("കാക", 1))

	known, err := b.IsKnownWord("കാക")
	require.NoError(t, err)
	assert.True(t, known)
}
