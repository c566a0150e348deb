package varnam

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"govarnam/internal/logging"
	"govarnam/internal/result"
	"govarnam/internal/symbol"
	"govarnam/internal/token"
)

// maxPatternsToLearn caps the Cartesian product a single word expands
// into. Policy, not an algorithmic limit.
const maxPatternsToLearn = 32

// specialChars are stripped from the ends of a word before learning.
const specialChars = "\n\t\r,./<>?;':\"[]{}~`!@#$%^&*()-_+=\\| "

// LearnStatus aggregates a batch learn run.
type LearnStatus struct {
	TotalWords int
	Failed     int
}

// LearnCallback reports the outcome of each word in a batch learn.
type LearnCallback func(word string, err error)

// Learn records a confirmed word: the word itself, every way of
// writing it (the Cartesian product of its possibility tokens), and
// the prefixes of two or more tokens of those patterns for
// autocomplete. Atomic: the word
// and all its patterns commit together or not at all.
func (v *Varnam) Learn(word string) error {
	return v.LearnWithConfidence(word, 1)
}

// LearnWithConfidence is Learn with an explicit starting confidence.
func (v *Varnam) LearnWithConfidence(word string, confidence int) error {
	v.reset()
	if v.words == nil {
		return v.fail(result.Argsf("'words' store is not enabled"))
	}

	if err := v.words.Begin(); err != nil {
		return v.fail(err)
	}
	if err := v.learnInternal(word, confidence); err != nil {
		v.words.Rollback()
		return v.fail(err)
	}
	if err := v.words.Commit(); err != nil {
		v.words.Rollback()
		return v.fail(err)
	}
	return nil
}

// learnInternal does the actual learning inside the caller's
// transaction scope.
func (v *Varnam) learnInternal(word string, confidence int) error {
	if word == "" {
		return result.Argsf("word is required")
	}
	if !utf8.ValidString(word) {
		return result.Encodingf("incorrect encoding. expected UTF-8 string")
	}

	sanitized := sanitizeWord(word)
	if sanitized == "" {
		return result.Learnf("nothing to learn from '%s'", word)
	}

	groups, err := v.sym.Tokenize(sanitized, symbol.ModeValue, token.MatchAll, v.tokenPool)
	if err != nil {
		return err
	}

	if err := canLearnFromTokens(groups, sanitized); err != nil {
		return err
	}

	if err := v.words.LearnWord(sanitized, confidence); err != nil {
		return err
	}
	if err := v.learnAllPossibilities(groups, sanitized); err != nil {
		return err
	}

	logging.Learn("handle %s: learned %s", v.id, sanitized)
	return nil
}

// sanitizeWord strips leading and trailing special characters.
func sanitizeWord(word string) string {
	return strings.Trim(word, specialChars)
}

// canLearnFromTokens runs the learner's sanity checks over a
// value-mode tokenization.
func canLearnFromTokens(groups []token.Group, word string) error {
	if len(groups) < 2 {
		return result.Learnf("nothing to learn from '%s'", word)
	}

	allVowels := true
	run := 0
	var lastID int64
	for _, group := range groups {
		for _, t := range group {
			if t.Match == token.MatchPossibility {
				continue
			}

			if t.Kind != token.Vowel {
				allVowels = false
			}

			if t.Kind == token.Other {
				return result.Learnf("can't process '%s'. one or more characters in '%s' are not known", t.Pattern, word)
			}

			if t.ID == lastID {
				run++
				if run >= 3 {
					return result.Learnf("'%s' looks incorrect. not learning anything", word)
				}
			} else {
				run = 1
				lastID = t.ID
			}
		}
	}

	if allVowels {
		return result.Learnf("word contains only vowels. nothing to learn from '%s'", word)
	}
	return nil
}

// learnAllPossibilities walks the Cartesian product of the match
// groups, learning the full pattern and the prefixes of each product,
// up to maxPatternsToLearn products.
func (v *Varnam) learnAllPossibilities(groups []token.Group, word string) error {
	offsets := make([]int, len(groups))
	product := make([]*token.Token, len(groups))
	wordAlreadyLearned := false
	total := 0

	for {
		for i := range groups {
			product[i] = groups[i][offsets[i]]
		}

		if err := v.learnPattern(product, word, false); err != nil {
			return err
		}
		if err := v.learnPrefixes(product, wordAlreadyLearned); err != nil {
			return err
		}
		wordAlreadyLearned = true

		if total++; total == maxPatternsToLearn {
			return nil
		}

		// Advance the odometer.
		last := len(groups) - 1
		offsets[last]++
		for offsets[last] == len(groups[last]) {
			offsets[last] = 0
			if last--; last < 0 {
				return nil
			}
			offsets[last]++
		}
	}
}

// learnPattern persists the concatenated Roman pattern of tokens for
// word. Joiners contribute nothing to the pattern.
func (v *Varnam) learnPattern(tokens []*token.Token, word string, isPrefix bool) error {
	id, err := v.words.GetWordID(word)
	if err != nil {
		return err
	}
	if id == -1 {
		// Without a word row the pattern would dangle; skip it.
		return nil
	}

	var pattern strings.Builder
	for _, t := range tokens {
		if t.Kind == token.NonJoiner || t.Kind == token.Joiner {
			continue
		}
		pattern.WriteString(t.Pattern)
	}

	return v.words.PersistPattern(pattern.String(), id, isPrefix)
}

// learnPrefixes learns every strict prefix of two or more tokens of
// the product as a prefix pattern; one-token prefixes are not learned. The first product additionally learns each prefix's
// rendered text as a word of its own so sub-words autocomplete.
func (v *Varnam) learnPrefixes(product []*token.Token, wordAlreadyLearned bool) error {
	for n := 2; n < len(product); n++ {
		prefix := product[:n]
		text, err := v.resolve(prefix)
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}

		if !wordAlreadyLearned {
			if err := v.words.LearnWord(text, 1); err != nil {
				return err
			}
		}
		if err := v.learnPattern(prefix, text, true); err != nil {
			return err
		}
	}
	return nil
}

// Train directly associates a Roman pattern with a word, bypassing
// tokenization.
func (v *Varnam) Train(pattern, word string) error {
	v.reset()
	if v.words == nil {
		return v.fail(result.Argsf("'words' store is not enabled"))
	}
	if pattern == "" || word == "" {
		return v.fail(result.Argsf("pattern and word are required"))
	}
	if !utf8.ValidString(word) {
		return v.fail(result.Encodingf("incorrect encoding. expected UTF-8 string"))
	}

	if err := v.words.Begin(); err != nil {
		return v.fail(err)
	}

	sanitized := sanitizeWord(word)
	if err := v.words.LearnWord(sanitized, 1); err != nil {
		v.words.Rollback()
		return v.fail(err)
	}
	id, err := v.words.GetWordID(sanitized)
	if err != nil {
		v.words.Rollback()
		return v.fail(err)
	}
	if id == -1 {
		v.words.Rollback()
		return v.fail(result.Storagef("failed to train '%s': word was not persisted", word))
	}
	if err := v.words.PersistPattern(pattern, id, false); err != nil {
		v.words.Rollback()
		return v.fail(err)
	}

	if err := v.words.Commit(); err != nil {
		v.words.Rollback()
		return v.fail(err)
	}
	return nil
}

// DeleteWord removes a word and its patterns atomically.
func (v *Varnam) DeleteWord(word string) error {
	if v.words == nil {
		return v.fail(result.Argsf("'words' store is not enabled"))
	}
	return v.fail(v.words.DeleteWord(word))
}

// IsKnownWord reports whether word has been learned.
func (v *Varnam) IsKnownWord(word string) (bool, error) {
	if v.words == nil {
		return false, nil
	}
	known, err := v.words.IsKnownWord(word)
	if err != nil {
		return false, v.fail(err)
	}
	return known, nil
}

// WordsCount counts learned words.
func (v *Varnam) WordsCount(onlyLearned bool) (int, error) {
	if v.words == nil {
		return 0, nil
	}
	n, err := v.words.WordsCount(onlyLearned)
	if err != nil {
		return 0, v.fail(err)
	}
	return n, nil
}

// LearnFromFile learns one word per line from path. Lines may carry a
// trailing integer confidence. The whole file commits as a single
// transaction; per-line validation failures are counted and reported
// through the callback without aborting the run.
func (v *Varnam) LearnFromFile(path string, cb LearnCallback) (LearnStatus, error) {
	var status LearnStatus
	if v.words == nil {
		return status, v.fail(result.Argsf("'words' store is not enabled"))
	}

	f, err := os.Open(path)
	if err != nil {
		return status, v.fail(result.Storagef("couldn't open file '%s' for reading", path))
	}
	defer f.Close()

	if err := v.words.Begin(); err != nil {
		return status, v.fail(err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		v.reset()
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		word, confidence := splitWordConfidence(line)
		err := v.learnInternal(word, confidence)
		if err != nil {
			status.Failed++
		}
		status.TotalWords++
		if cb != nil {
			cb(word, err)
		}
	}
	if err := scanner.Err(); err != nil {
		v.words.Rollback()
		return status, v.fail(result.Storagef("failed reading '%s': %v", path, err))
	}

	if err := v.words.Commit(); err != nil {
		v.words.Rollback()
		return status, v.fail(err)
	}

	logging.Learn("handle %s: learned %d words from %s (%d failed)",
		v.id, status.TotalWords-status.Failed, path, status.Failed)
	return status, nil
}

// splitWordConfidence splits an optional trailing confidence off a
// learn line.
func splitWordConfidence(line string) (string, int) {
	fields := strings.Fields(line)
	if len(fields) >= 2 {
		if confidence, err := strconv.Atoi(fields[len(fields)-1]); err == nil && confidence > 0 {
			return strings.Join(fields[:len(fields)-1], " "), confidence
		}
	}
	return line, 1
}
