// Package symbol implements the symbol store: the persistent table of
// transliteration rules one scheme compiles to, the two indexes it is
// interrogated through, and the longest-match tokenizer that runs
// against it.
package symbol

import (
	"database/sql"
	"fmt"
	"strings"

	"govarnam/internal/logging"
	"govarnam/internal/result"
	"govarnam/internal/token"

	_ "github.com/mattn/go-sqlite3"
)

// Metadata keys every scheme file carries.
const (
	MetaLangCode     = "lang-code"
	MetaSchemeID     = "scheme-id"
	MetaDisplayName  = "scheme-display-name"
	MetaAuthor       = "scheme-author"
	MetaCompiledDate = "scheme-compiled-date"
	MetaStable       = "scheme-stable"
)

// metaPrefixFlagsStamped marks a scheme whose prefix bits are valid.
const metaPrefixFlagsStamped = "prefix-flags-stamped"

const tokenColumns = "id, type, match_type, pattern, value1, value2, value3, tag, priority, accept_condition, flags"

// Store is one open scheme file. A Store is not safe for concurrent
// use; callers serialise access per handle.
type Store struct {
	db   *sql.DB
	path string

	virama       *token.Token
	viramaLoaded bool

	// IgnoreDuplicates makes PersistToken skip duplicate rows
	// instead of failing.
	IgnoreDuplicates bool

	buffering bool

	// flagsStamped records whether StampPrefixFlags has run on this
	// file; until then the tokenizer can't trust the prefix bits and
	// falls back to the lookahead probe.
	flagsStamped bool

	// Prepared once per store; these are the tokenizer hot path.
	tokenizePattern    *sql.Stmt
	tokenizeValueAll   *sql.Stmt
	tokenizeValueMatch *sql.Stmt
	morePattern        *sql.Stmt
	moreValue          *sql.Stmt
}

// Open opens or creates the scheme file at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, result.Argsf("scheme file path required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, result.Storagef("can't open %s: %v", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Get(logging.CategorySymbols).Debug("failed to set busy_timeout: %v", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	stamped, err := s.GetMetadata(metaPrefixFlagsStamped)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.flagsStamped = stamped == "1"

	logging.Symbols("opened scheme file %s", path)
	return s, nil
}

// Path returns the scheme file this store was opened from.
func (s *Store) Path() string { return s.path }

func (s *Store) ensureSchema() error {
	tables := `
	pragma page_size=4096;
	create table if not exists metadata (key TEXT UNIQUE, value TEXT);
	create table if not exists symbols (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type INTEGER, match_type INTEGER,
		pattern TEXT, value1 TEXT, value2 TEXT, value3 TEXT,
		tag TEXT, priority INTEGER DEFAULT 0,
		accept_condition INTEGER DEFAULT 0,
		flags INTEGER DEFAULT 0);`

	indexes := `
	create index if not exists index_metadata on metadata (key);
	create index if not exists index_pattern on symbols (pattern);
	create index if not exists index_value1 on symbols (value1);
	create index if not exists index_value2 on symbols (value2);
	create index if not exists index_value3 on symbols (value3);`

	if _, err := s.db.Exec(tables); err != nil {
		return result.Storagef("failed to initialize scheme file: %v", err)
	}
	if _, err := s.db.Exec(indexes); err != nil {
		return result.Storagef("failed to generate indexes: %v", err)
	}
	return nil
}

// StartBuffering opens an explicit transaction so bulk token inserts
// hit the disk once. No-op when already buffering.
func (s *Store) StartBuffering() error {
	if s.buffering {
		return nil
	}
	if _, err := s.db.Exec("BEGIN"); err != nil {
		return result.Storagef("failed to start buffering: %v", err)
	}
	s.buffering = true
	return nil
}

// Flush commits buffered token inserts, restamps the prefix flags and
// compacts the file. Stamping here keeps the flags a build-time
// artifact: the tokenizer never re-derives them.
func (s *Store) Flush() error {
	if !s.buffering {
		return nil
	}
	logging.Symbols("writing changes to %s", s.path)
	if _, err := s.db.Exec("COMMIT"); err != nil {
		return result.Storagef("failed to flush changes: %v", err)
	}
	s.buffering = false
	if err := s.StampPrefixFlags(); err != nil {
		return err
	}
	if _, err := s.db.Exec("VACUUM"); err != nil {
		return result.Storagef("failed to compact file: %v", err)
	}
	return nil
}

// Discard rolls back buffered inserts. Called on failure paths, so
// the rollback's own error is deliberately not reported; the root
// failure is already recorded.
func (s *Store) Discard() {
	if !s.buffering {
		return
	}
	s.db.Exec("ROLLBACK")
	s.buffering = false
}

func (s *Store) alreadyPersisted(pattern, value1 string, match token.MatchType) (bool, error) {
	var row *sql.Row
	if match == token.MatchExact {
		row = s.db.QueryRow(
			"select count(1) from symbols where pattern = trim(?1) and match_type = ?2",
			pattern, int(match))
	} else {
		row = s.db.QueryRow(
			"select count(1) from symbols where pattern = trim(?1) and value1 = trim(?2)",
			pattern, value1)
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return false, result.Storagef("failed to check already persisted: %v", err)
	}
	return n > 0, nil
}

// PersistToken inserts one token. Duplicate policy: Exact rows are
// unique on (pattern, match_type); Possibility rows on
// (pattern, value1). Duplicates fail unless IgnoreDuplicates is set.
func (s *Store) PersistToken(pattern, value1, value2, value3, tag string, kind token.Kind, match token.MatchType) error {
	if pattern == "" {
		return result.Argsf("pattern is required")
	}
	// Joiners legitimately render nothing; everything else needs an
	// output value.
	if value1 == "" && kind != token.NonJoiner && kind != token.Joiner {
		return result.Argsf("value1 is required")
	}
	if len(pattern) > token.SymbolMax || len(value1) > token.SymbolMax ||
		len(value2) > token.SymbolMax || len(value3) > token.SymbolMax {
		return result.Argsf("length of pattern or values exceeds %d bytes", token.SymbolMax)
	}
	if match != token.MatchExact && match != token.MatchPossibility {
		return result.Argsf("match type should be exact or possibility")
	}

	persisted, err := s.alreadyPersisted(pattern, value1, match)
	if err != nil {
		return err
	}
	if persisted {
		if s.IgnoreDuplicates {
			logging.Symbols("%s => %s is already available. Ignoring duplicate token", pattern, value1)
			return nil
		}
		return fmt.Errorf("%w: there is already a match available for '%s => %s'",
			result.ErrDuplicateToken, pattern, value1)
	}

	_, err = s.db.Exec(
		`insert into symbols (type, match_type, pattern, value1, value2, value3, tag)
		 values (?1, ?2, trim(?3), trim(?4), trim(?5), trim(?6), trim(?7))`,
		int(kind), int(match), pattern, value1, value2, value3, tag)
	if err != nil {
		return result.Storagef("failed to persist token: %v", err)
	}

	// New rows invalidate the cached virama and the prefix flags;
	// Flush restamps the flags.
	if kind == token.Virama {
		s.virama = nil
		s.viramaLoaded = false
	}
	if s.flagsStamped {
		s.flagsStamped = false
		s.db.Exec("delete from metadata where key = ?1", metaPrefixFlagsStamped)
	}
	return nil
}

// GetVirama returns the scheme's Exact virama token. The token is
// cached after the first read; every render consults it.
func (s *Store) GetVirama() (*token.Token, error) {
	if s.viramaLoaded {
		if s.virama == nil {
			return nil, fmt.Errorf("%w: scheme defines no virama", result.ErrNotFound)
		}
		return s.virama, nil
	}

	row := s.db.QueryRow(
		"select "+tokenColumns+" from symbols where type = ?1 and match_type = ?2 limit 1",
		int(token.Virama), int(token.MatchExact))
	var t token.Token
	err := scanToken(row.Scan, &t)
	if err == sql.ErrNoRows {
		s.viramaLoaded = true
		return nil, fmt.Errorf("%w: scheme defines no virama", result.ErrNotFound)
	}
	if err != nil {
		return nil, result.Storagef("failed to get virama: %v", err)
	}

	s.virama = &t
	s.viramaLoaded = true
	return s.virama, nil
}

// GetAllTokens returns every token of the given kind in storage order.
func (s *Store) GetAllTokens(kind token.Kind) ([]token.Token, error) {
	rows, err := s.db.Query(
		"select "+tokenColumns+" from symbols where type = ?1 order by id", int(kind))
	if err != nil {
		return nil, result.Storagef("failed to get all tokens: %v", err)
	}
	defer rows.Close()

	var out []token.Token
	for rows.Next() {
		var t token.Token
		if err := scanToken(rows.Scan, &t); err != nil {
			return nil, result.Storagef("failed to get all tokens: %v", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, result.Storagef("failed to get all tokens: %v", err)
	}
	return out, nil
}

func scanToken(scan func(...interface{}) error, t *token.Token) error {
	var kind, match int
	err := scan(&t.ID, &kind, &match, &t.Pattern, &t.Value1, &t.Value2, &t.Value3,
		&t.Tag, &t.Priority, &t.AcceptCondition, &t.Flags)
	if err != nil {
		return err
	}
	t.Kind = token.Kind(kind)
	t.Match = token.MatchType(match)
	return nil
}

func trimSuffix(s, suffix string) string {
	if suffix == "" {
		return s
	}
	return strings.TrimSuffix(s, suffix)
}

// GenerateCVCombinations synthesises a ConsonantVowel token for every
// (dead consonant, vowel) pair: patterns concatenate, the consonant's
// bare form combines with the vowel's dependent form. Duplicates are
// skipped without error. Requires a virama.
func (s *Store) GenerateCVCombinations() error {
	virama, err := s.GetVirama()
	if err != nil {
		return fmt.Errorf("virama needs to be set before generating consonant vowel combinations: %w", err)
	}

	vowels, err := s.GetAllTokens(token.Vowel)
	if err != nil {
		return err
	}
	consonants, err := s.GetAllTokens(token.DeadConsonant)
	if err != nil {
		return err
	}

	// Duplicates are expected here; skip them silently instead of
	// failing the whole generation.
	oldIgnore := s.IgnoreDuplicates
	s.IgnoreDuplicates = true
	defer func() { s.IgnoreDuplicates = oldIgnore }()

	if err := s.StartBuffering(); err != nil {
		return err
	}

	for i := range consonants {
		consonant := &consonants[i]
		// Dead consonants end in the virama; that has to go before
		// the vowel is appended.
		consPattern := trimSuffix(consonant.Pattern, virama.Pattern)
		consValue1 := trimSuffix(consonant.Value1, virama.Value1)
		consValue2 := ""
		if consonant.Value2 != "" {
			consValue2 = trimSuffix(consonant.Value2, virama.Value1)
		}

		for j := range vowels {
			vowel := &vowels[j]
			newPattern := consPattern + vowel.Pattern
			var newValue1, newValue2 string
			if vowel.Value2 != "" {
				newValue1 = consValue1 + vowel.Value2
				if consValue2 != "" {
					newValue2 = consValue2 + vowel.Value2
				}
			} else {
				newValue1 = consValue1
				if consValue2 != "" {
					newValue2 = consValue2
				}
			}

			match := token.MatchExact
			if consonant.Match == token.MatchPossibility || vowel.Match == token.MatchPossibility {
				match = token.MatchPossibility
			}

			if len(newPattern) > token.SymbolMax || len(newValue1) > token.SymbolMax {
				continue
			}
			if err := s.PersistToken(newPattern, newValue1, newValue2, "", "", token.ConsonantVowel, match); err != nil {
				s.Discard()
				return err
			}
		}
	}

	return s.Flush()
}

// StampPrefixFlags computes, for every row, whether another symbol
// extends it by pattern and by value, and persists the two bits. Run
// once at scheme build time; the tokenizer reads the bits instead of
// re-deriving them.
func (s *Store) StampPrefixFlags() error {
	stmts := []string{
		"update symbols set flags = 0",
		`update symbols set flags = flags | 1 where exists
		 (select 1 from symbols s2 where s2.pattern like symbols.pattern || '_%')`,
		`update symbols set flags = flags | 2 where exists
		 (select 1 from symbols s2 where
			s2.value1 like symbols.value1 || '_%' or s2.value2 like symbols.value1 || '_%'
			or (symbols.value2 != '' and
				(s2.value1 like symbols.value2 || '_%' or s2.value2 like symbols.value2 || '_%')))`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return result.Storagef("failed to stamp prefix flags: %v", err)
		}
	}
	if err := s.AddMetadata(metaPrefixFlagsStamped, "1"); err != nil {
		return err
	}
	s.flagsStamped = true
	return nil
}

// AddMetadata sets one scheme metadata key.
func (s *Store) AddMetadata(key, value string) error {
	_, err := s.db.Exec("insert or replace into metadata (key, value) values (?1, ?2)", key, value)
	if err != nil {
		return result.Storagef("failed to add metadata: %v", err)
	}
	return nil
}

// GetMetadata reads one scheme metadata key; missing keys return the
// empty string.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("select value from metadata where key = ?1", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", result.Storagef("failed to get metadata: %v", err)
	}
	return value, nil
}

// Close releases the prepared statements and the connection.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.tokenizePattern, s.tokenizeValueAll, s.tokenizeValueMatch,
		s.morePattern, s.moreValue,
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
