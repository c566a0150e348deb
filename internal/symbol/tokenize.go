package symbol

import (
	"database/sql"
	"unicode/utf8"

	"govarnam/internal/result"
	"govarnam/internal/token"
)

// Mode selects which indexed column the tokenizer queries.
type Mode int

const (
	// ModePattern matches the Roman pattern column (forward).
	ModePattern Mode = iota + 1
	// ModeValue matches the value1/value2 columns (reverse).
	ModeValue
)

// Tokenize segments input into an ordered list of match groups using
// greedy longest match with lookahead. Each group holds every token
// tied at the longest matched prefix; segments no symbol covers
// produce a single synthesised Other token, so concatenating the
// chosen patterns always reassembles the input byte for byte.
//
// matchType restricts value-mode lookups; pattern mode always matches
// Exact rows. Tokens are allocated from pool and stay valid until the
// pool is reset.
func (s *Store) Tokenize(input string, mode Mode, matchType token.MatchType, pool *token.Pool) ([]token.Group, error) {
	if input == "" {
		return nil, nil
	}

	var out []token.Group
	remaining := input
	for len(remaining) > 0 {
		group, matchPos, err := s.matchLongest(remaining, mode, matchType, pool)
		if err != nil {
			return nil, err
		}
		out = append(out, group)
		remaining = remaining[matchPos:]
	}
	return out, nil
}

// matchLongest finds the longest symbol match at the head of the
// input. It returns the winning group and how many bytes it consumed.
func (s *Store) matchLongest(input string, mode Mode, matchType token.MatchType, pool *token.Pool) (token.Group, int, error) {
	var (
		group    token.Group
		matchPos int
		read     int
	)

	for read < len(input) {
		r, size := utf8.DecodeRuneInString(input[read:])
		if r == utf8.RuneError && size <= 1 {
			return nil, 0, result.Encodingf("input is not valid UTF-8")
		}
		read += size
		lookup := input[:read]

		toks, err := s.lookupTokens(lookup, mode, matchType, pool)
		if err != nil {
			return nil, 0, err
		}

		foundNow := len(toks) > 0
		if foundNow {
			group = toks
			matchPos = read
		}

		if len(group) == 0 {
			// Nothing matches the first code point. Remember it as an
			// Other token; a longer lookup may still replace it.
			group = token.Group{pool.Put(token.MakeOther(lookup))}
			matchPos = read
		}

		if read >= len(input) {
			break
		}

		// The prefix bits stamped at build time say whether any other
		// symbol extends this match; when they are clear the lookahead
		// probe is redundant.
		if foundNow && s.flagsStamped && terminal(toks, mode) {
			break
		}

		more, err := s.canFindMoreMatches(lookup, mode)
		if err != nil {
			return nil, 0, err
		}
		if !more {
			break
		}
	}

	return group, matchPos, nil
}

func terminal(toks token.Group, mode Mode) bool {
	flag := token.FlagMorePatternMatches
	if mode == ModeValue {
		flag = token.FlagMoreValueMatches
	}
	for _, t := range toks {
		if t.Flags&flag != 0 {
			return false
		}
	}
	return true
}

func (s *Store) lookupTokens(lookup string, mode Mode, matchType token.MatchType, pool *token.Pool) (token.Group, error) {
	stmt, args, err := s.tokenizeStmt(lookup, mode, matchType)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, result.Storagef("failed to read tokens: %v", err)
	}
	defer rows.Close()

	var group token.Group
	for rows.Next() {
		t := pool.Get()
		if err := scanToken(rows.Scan, t); err != nil {
			return nil, result.Storagef("failed to read tokens: %v", err)
		}
		group = append(group, t)
	}
	if err := rows.Err(); err != nil {
		return nil, result.Storagef("failed to read tokens: %v", err)
	}
	return group, nil
}

func (s *Store) tokenizeStmt(lookup string, mode Mode, matchType token.MatchType) (*sql.Stmt, []interface{}, error) {
	var err error
	switch mode {
	case ModePattern:
		if s.tokenizePattern == nil {
			s.tokenizePattern, err = s.db.Prepare(
				"select " + tokenColumns + " from symbols where pattern = ?1 and match_type = 1")
			if err != nil {
				return nil, nil, result.Storagef("failed to prepare tokenizer: %v", err)
			}
		}
		return s.tokenizePattern, []interface{}{lookup}, nil

	case ModeValue:
		if matchType == token.MatchAll {
			if s.tokenizeValueAll == nil {
				s.tokenizeValueAll, err = s.db.Prepare(
					"select " + tokenColumns + " from symbols where value1 = ?1 or value2 = ?1")
				if err != nil {
					return nil, nil, result.Storagef("failed to prepare tokenizer: %v", err)
				}
			}
			return s.tokenizeValueAll, []interface{}{lookup}, nil
		}
		if s.tokenizeValueMatch == nil {
			s.tokenizeValueMatch, err = s.db.Prepare(
				"select " + tokenColumns + " from symbols where (value1 = ?1 or value2 = ?1) and match_type = ?2")
			if err != nil {
				return nil, nil, result.Storagef("failed to prepare tokenizer: %v", err)
			}
		}
		return s.tokenizeValueMatch, []interface{}{lookup, int(matchType)}, nil
	}
	return nil, nil, result.Argsf("unknown tokenizer mode %d", mode)
}

func (s *Store) canFindMoreMatches(lookup string, mode Mode) (bool, error) {
	var stmt *sql.Stmt
	var err error
	switch mode {
	case ModePattern:
		if s.morePattern == nil {
			s.morePattern, err = s.db.Prepare(
				"select count(pattern) from symbols where pattern like ?1")
			if err != nil {
				return false, result.Storagef("failed to prepare lookahead probe: %v", err)
			}
		}
		stmt = s.morePattern
	case ModeValue:
		if s.moreValue == nil {
			s.moreValue, err = s.db.Prepare(
				"select count(pattern) from symbols where value1 like ?1 or value2 like ?1")
			if err != nil {
				return false, result.Storagef("failed to prepare lookahead probe: %v", err)
			}
		}
		stmt = s.moreValue
	default:
		return false, result.Argsf("unknown tokenizer mode %d", mode)
	}

	var n int
	if err := stmt.QueryRow(likePattern(lookup)).Scan(&n); err != nil {
		return false, result.Storagef("failed to probe for more matches: %v", err)
	}
	return n > 0, nil
}

func likePattern(lookup string) string {
	return lookup + "%"
}
