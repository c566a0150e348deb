// Package words implements the learning store: confirmed words, their
// Roman patterns, and the ranked retrieval queries the suggester runs.
package words

import (
	"database/sql"

	"govarnam/internal/logging"
	"govarnam/internal/result"

	_ "github.com/mattn/go-sqlite3"
)

// MinSuggestionLength is the shortest input GetBestMatch and
// GetSuggestions accept; anything shorter returns empty without
// touching the store. GetMatches has no such limit.
const MinSuggestionLength = 3

// Word is one confirmed word with its ranking confidence.
type Word struct {
	Text       string
	Confidence int
}

// Store is one open learning store. Writes are grouped under explicit
// Begin/Commit/Rollback scopes controlled by the learner. A Store is
// not safe for concurrent use within one handle; distinct handles may
// write to the same file, serialised by the WAL journal.
type Store struct {
	db   *sql.DB
	path string

	// The last learned word is memoised to short-circuit repeated id
	// lookups during prefix enumeration.
	lastLearnedWord   string
	lastLearnedWordID int64

	learnWord         *sql.Stmt
	learnPattern      *sql.Stmt
	updateLearnedFlag *sql.Stmt
	getWord           *sql.Stmt
	updateConfidence  *sql.Stmt
	getBestMatch      *sql.Stmt
	getSuggestions    *sql.Stmt
	getMatchesForWord *sql.Stmt
	possibleMatches   *sql.Stmt
	deletePattern     *sql.Stmt
	deleteWord        *sql.Stmt
	learnedCount      *sql.Stmt
	allCount          *sql.Stmt
}

// Open opens or creates the learning store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, result.Argsf("learning store path required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, result.Storagef("can't open %s: %v", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Words("opened learning store %s", path)
	return s, nil
}

// Path returns the file this store was opened from.
func (s *Store) Path() string { return s.path }

func (s *Store) ensureSchema() error {
	pragmas := `
	pragma page_size=4096;
	pragma journal_mode=wal;`

	tables := `
	create table if not exists metadata (key TEXT UNIQUE, value TEXT);
	create table if not exists words (
		id integer primary key,
		word text unique,
		confidence integer default 1,
		learned_on integer);
	create table if not exists patterns_content (
		pattern text,
		word_id integer,
		learned integer default 0,
		primary key(pattern, word_id)) without rowid;`

	if _, err := s.db.Exec(pragmas); err != nil {
		return result.Storagef("failed to set learning store pragmas: %v", err)
	}
	if _, err := s.db.Exec(tables); err != nil {
		return result.Storagef("failed to create learning store schema: %v", err)
	}
	return nil
}

// Begin opens the write transaction the learner scopes its work in.
func (s *Store) Begin() error { return s.execSimple("BEGIN") }

// Commit ends the current write transaction.
func (s *Store) Commit() error { return s.execSimple("COMMIT") }

// Rollback discards the current write transaction. The rollback's own
// error is swallowed so it never overwrites the root failure.
func (s *Store) Rollback() {
	s.db.Exec("ROLLBACK")
}

func (s *Store) execSimple(q string) error {
	if _, err := s.db.Exec(q); err != nil {
		return result.Storagef("failed to execute %s: %v", q, err)
	}
	return nil
}

// OptimizeForBulkWrites turns synchronous off for the duration of a
// huge import; WAL still bounds the damage to the last transaction.
func (s *Store) OptimizeForBulkWrites() error {
	return s.execSimple("PRAGMA synchronous = OFF")
}

// Compact reclaims free pages.
func (s *Store) Compact() error { return s.execSimple("VACUUM") }

// TryInsertWord inserts a word if it is new and returns its id, or −1
// when the word already exists.
func (s *Store) TryInsertWord(word string, confidence int) (int64, error) {
	var err error
	if s.learnWord == nil {
		s.learnWord, err = s.db.Prepare(
			`insert or ignore into words (word, confidence, learned_on)
			 values (trim(?1), ?2, strftime('%s', datetime(), 'localtime'))`)
		if err != nil {
			return -1, result.Storagef("failed to learn word: %v", err)
		}
	}

	res, err := s.learnWord.Exec(word, confidence)
	if err != nil {
		return -1, result.Storagef("failed to learn word: %v", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return -1, result.Storagef("failed to learn word: %v", err)
	}
	if changed == 0 {
		return -1, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return -1, result.Storagef("failed to learn word: %v", err)
	}
	return id, nil
}

// BumpConfidence increments an existing word's confidence. Reports
// whether a row was updated.
func (s *Store) BumpConfidence(word string) (bool, error) {
	var err error
	if s.updateConfidence == nil {
		s.updateConfidence, err = s.db.Prepare(
			"update words set confidence = confidence + 1 where word = ?1")
		if err != nil {
			return false, result.Storagef("failed to learn word: %v", err)
		}
	}

	res, err := s.updateConfidence.Exec(word)
	if err != nil {
		return false, result.Storagef("failed to learn word: %v", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return false, result.Storagef("failed to learn word: %v", err)
	}
	return changed > 0, nil
}

// LearnWord bumps the word's confidence when it is already known and
// inserts it otherwise, memoising the (word, id) pair for the pattern
// writes that follow.
func (s *Store) LearnWord(word string, confidence int) error {
	s.lastLearnedWord = ""

	updated, err := s.BumpConfidence(word)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}

	id, err := s.TryInsertWord(word, confidence)
	if err != nil {
		return err
	}
	if id != -1 {
		s.lastLearnedWord = word
		s.lastLearnedWordID = id
	}
	return nil
}

// GetWordID returns the id for a word, or −1 when unknown. The last
// learned word is answered from the memo without a query.
func (s *Store) GetWordID(word string) (int64, error) {
	if s.lastLearnedWord != "" && s.lastLearnedWord == word {
		return s.lastLearnedWordID, nil
	}

	var err error
	if s.getWord == nil {
		s.getWord, err = s.db.Prepare(
			"select id from words where word = ?1 limit 1")
		if err != nil {
			return -1, result.Storagef("failed to get word: %v", err)
		}
	}

	var id int64
	err = s.getWord.QueryRow(word).Scan(&id)
	if err == sql.ErrNoRows {
		return -1, nil
	}
	if err != nil {
		return -1, result.Storagef("failed to get word: %v", err)
	}
	return id, nil
}

// PersistPattern records one Roman pattern for a word. Full patterns
// (isPrefix false) additionally set the row's learned flag.
func (s *Store) PersistPattern(pattern string, wordID int64, isPrefix bool) error {
	var err error
	if s.learnPattern == nil {
		s.learnPattern, err = s.db.Prepare(
			`insert or ignore into patterns_content (pattern, word_id)
			 values (trim(lower(?1)), ?2)`)
		if err != nil {
			return result.Storagef("failed to learn pattern: %v", err)
		}
	}

	if _, err := s.learnPattern.Exec(pattern, wordID); err != nil {
		return result.Storagef("failed to learn pattern: %v", err)
	}

	if isPrefix {
		return nil
	}

	if s.updateLearnedFlag == nil {
		s.updateLearnedFlag, err = s.db.Prepare(
			`update patterns_content set learned = 1
			 where pattern = trim(lower(?1)) and word_id = ?2 and learned = 0`)
		if err != nil {
			return result.Storagef("failed to learn pattern: %v", err)
		}
	}
	if _, err := s.updateLearnedFlag.Exec(pattern, wordID); err != nil {
		return result.Storagef("failed to learn pattern: %v", err)
	}
	return nil
}

// GetBestMatch returns up to five learned words whose full pattern is
// exactly the input, best confidence first.
func (s *Store) GetBestMatch(input string) ([]Word, error) {
	if len(input) < MinSuggestionLength {
		return nil, nil
	}

	var err error
	if s.getBestMatch == nil {
		s.getBestMatch, err = s.db.Prepare(
			`select word, confidence from words where rowid in
			 (select word_id from patterns_content as pc
			  where pc.pattern = lower(?1) and learned = 1 limit 5)
			 order by confidence desc`)
		if err != nil {
			return nil, result.Storagef("failed to get best matches: %v", err)
		}
	}
	return s.queryWords(s.getBestMatch, input)
}

// GetSuggestions returns up to five learned words whose patterns
// extend the input, best confidence first.
func (s *Store) GetSuggestions(input string) ([]Word, error) {
	if len(input) < MinSuggestionLength {
		return nil, nil
	}

	var err error
	if s.getSuggestions == nil {
		s.getSuggestions, err = s.db.Prepare(
			`select word, confidence from words where rowid in
			 (select distinct(word_id) from patterns_content as pc
			  where pc.pattern > lower(?1) and pc.pattern <= lower(?1) || 'z'
			  and learned = 1 limit 5)
			 order by confidence desc`)
		if err != nil {
			return nil, result.Storagef("failed to get suggestions: %v", err)
		}
	}
	return s.queryWords(s.getSuggestions, input)
}

func (s *Store) queryWords(stmt *sql.Stmt, input string) ([]Word, error) {
	rows, err := stmt.Query(input)
	if err != nil {
		return nil, result.Storagef("failed to query words: %v", err)
	}
	defer rows.Close()

	var out []Word
	for rows.Next() {
		var w Word
		if err := rows.Scan(&w.Text, &w.Confidence); err != nil {
			return nil, result.Storagef("failed to query words: %v", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, result.Storagef("failed to query words: %v", err)
	}
	return out, nil
}

// GetMatches returns up to three words any pattern of which is exactly
// the lookup; learned and prefix patterns both count.
func (s *Store) GetMatches(lookup string) ([]string, error) {
	var err error
	if s.getMatchesForWord == nil {
		s.getMatchesForWord, err = s.db.Prepare(
			`select word from words where rowid in
			 (select distinct(word_id) from patterns_content where pattern = ?1 limit 3)`)
		if err != nil {
			return nil, result.Storagef("failed to get matches: %v", err)
		}
	}

	rows, err := s.getMatchesForWord.Query(lookup)
	if err != nil {
		return nil, result.Storagef("failed to get matches: %v", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, result.Storagef("failed to get matches: %v", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, result.Storagef("failed to get matches: %v", err)
	}
	return out, nil
}

// PossibleToFindMatches probes whether any pattern extends the lookup;
// the words-table tokenizer uses it to terminate its scan early.
func (s *Store) PossibleToFindMatches(lookup string) (bool, error) {
	var err error
	if s.possibleMatches == nil {
		s.possibleMatches, err = s.db.Prepare(
			`select distinct(word_id) from patterns_content as pc
			 where pc.pattern > ?1 and pc.pattern <= ?1 || 'z' limit 1`)
		if err != nil {
			return false, result.Storagef("failed to check for possible matches: %v", err)
		}
	}

	var id int64
	err = s.possibleMatches.QueryRow(lookup).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, result.Storagef("failed to check for possible matches: %v", err)
	}
	return true, nil
}

// DeleteWord removes a word and all its patterns in one transaction.
func (s *Store) DeleteWord(word string) error {
	id, err := s.GetWordID(word)
	if err != nil {
		return err
	}
	if id == -1 {
		return nil
	}

	if s.deletePattern == nil {
		s.deletePattern, err = s.db.Prepare("delete from patterns_content where word_id = ?1")
		if err != nil {
			return result.Storagef("failed to delete word: %v", err)
		}
	}
	if s.deleteWord == nil {
		s.deleteWord, err = s.db.Prepare("delete from words where id = ?1")
		if err != nil {
			return result.Storagef("failed to delete word: %v", err)
		}
	}

	if err := s.Begin(); err != nil {
		return err
	}
	if _, err := s.deletePattern.Exec(id); err != nil {
		s.Rollback()
		return result.Storagef("failed to delete patterns: %v", err)
	}
	if _, err := s.deleteWord.Exec(id); err != nil {
		s.Rollback()
		return result.Storagef("failed to delete word: %v", err)
	}
	if s.lastLearnedWord == word {
		s.lastLearnedWord = ""
	}
	return s.Commit()
}

// IsKnownWord reports whether the word has been learned.
func (s *Store) IsKnownWord(word string) (bool, error) {
	id, err := s.GetWordID(word)
	if err != nil {
		return false, err
	}
	return id != -1, nil
}

// WordsCount counts words; with onlyLearned set, only words reachable
// through a learned pattern are counted.
func (s *Store) WordsCount(onlyLearned bool) (int, error) {
	var stmt *sql.Stmt
	var err error
	if onlyLearned {
		if s.learnedCount == nil {
			s.learnedCount, err = s.db.Prepare(
				"select count(distinct(word_id)) from patterns_content where learned = 1")
			if err != nil {
				return 0, result.Storagef("failed to get learned words count: %v", err)
			}
		}
		stmt = s.learnedCount
	} else {
		if s.allCount == nil {
			s.allCount, err = s.db.Prepare("select count(id) from words")
			if err != nil {
				return 0, result.Storagef("failed to get words count: %v", err)
			}
		}
		stmt = s.allCount
	}

	var n int
	if err := stmt.QueryRow().Scan(&n); err != nil {
		return 0, result.Storagef("failed to get words count: %v", err)
	}
	return n, nil
}

// Close releases the prepared statements and the connection.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.learnWord, s.learnPattern, s.updateLearnedFlag, s.getWord,
		s.updateConfidence, s.getBestMatch, s.getSuggestions,
		s.getMatchesForWord, s.possibleMatches, s.deletePattern,
		s.deleteWord, s.learnedCount, s.allCount,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
