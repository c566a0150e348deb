package varnam

import (
	"govarnam/internal/logging"
	"govarnam/internal/render"
	"govarnam/internal/result"
	"govarnam/internal/symbol"
	"govarnam/internal/token"
	"govarnam/internal/words"
)

// Suggestion is one transliteration candidate. Learned candidates
// carry their stored confidence; the literal rendering and candidates
// derived by the words-table tokenizer carry confidence 1.
type Suggestion struct {
	Text       string
	Confidence int
}

// Transliterate converts Roman input into an ordered candidate list:
// learned exact matches first, then words-table derivations when no
// exact match exists, the literal rendering, and finally prefix
// suggestions.
func (v *Varnam) Transliterate(input string) ([]Suggestion, error) {
	if input == "" {
		return nil, v.fail(result.Argsf("input is required"))
	}
	v.reset()

	groups, err := v.sym.Tokenize(input, symbol.ModePattern, token.MatchExact, v.tokenPool)
	if err != nil {
		return nil, v.fail(err)
	}

	literal, err := v.resolve(firstOfEach(groups))
	if err != nil {
		return nil, v.fail(err)
	}

	var out []Suggestion
	if v.words != nil {
		best, err := v.words.GetBestMatch(input)
		if err != nil {
			return nil, v.fail(err)
		}
		out = appendWords(out, best)

		if len(best) == 0 && len(input) > 2 {
			// No learned exact match; do our best by tokenizing the
			// input against the words table instead of the symbols.
			candidates, err := v.tokenizePatternViaWords(input)
			if err != nil {
				return nil, v.fail(err)
			}
			for _, tokens := range candidates {
				text, err := v.resolve(tokens)
				if err != nil {
					return nil, v.fail(err)
				}
				out = appendUnique(out, Suggestion{Text: text, Confidence: 1})
			}
		}
	}

	out = appendUnique(out, Suggestion{Text: literal, Confidence: 1})

	if v.words != nil {
		more, err := v.words.GetSuggestions(input)
		if err != nil {
			return nil, v.fail(err)
		}
		out = appendWords(out, more)
	}

	logging.Get(logging.CategorySuggest).Debug("handle %s: %q -> %d candidates", v.id, input, len(out))
	return out, nil
}

// ReverseTransliterate converts script text back into its Roman form.
func (v *Varnam) ReverseTransliterate(input string) (string, error) {
	if input == "" {
		return "", v.fail(result.Argsf("input is required"))
	}
	v.reset()

	groups, err := v.sym.Tokenize(input, symbol.ModeValue, token.MatchExact, v.tokenPool)
	if err != nil {
		return "", v.fail(err)
	}

	virama, _ := v.sym.GetVirama()
	out, err := render.ResolveReverse(groups, render.Options{
		SchemeID: v.SchemeIdentifier(),
		Virama:   virama,
	}, v.bufPool.Get())
	if err != nil {
		return "", v.fail(err)
	}
	logging.Get(logging.CategoryRendering).Debug("handle %s: reverse %q -> %q", v.id, input, out)
	return out, nil
}

// resolve renders a flattened token sequence with this handle's
// options. The virama is optional here; rendering fails only when a
// virama token actually needs it.
func (v *Varnam) resolve(tokens []*token.Token) (string, error) {
	virama, _ := v.sym.GetVirama()
	return render.Resolve(tokens, render.Options{
		SchemeID:       v.SchemeIdentifier(),
		Virama:         virama,
		UseIndicDigits: v.opts.UseIndicDigits,
	}, v.bufPool.Get())
}

// firstOfEach flattens a multi-dimensional tokenization by taking the
// first candidate of every group.
func firstOfEach(groups []token.Group) []*token.Token {
	out := make([]*token.Token, 0, len(groups))
	for _, g := range groups {
		if len(g) > 0 {
			out = append(out, g[0])
		}
	}
	return out
}

func appendWords(list []Suggestion, found []words.Word) []Suggestion {
	for _, w := range found {
		list = appendUnique(list, Suggestion{Text: w.Text, Confidence: w.Confidence})
	}
	return list
}

func appendUnique(list []Suggestion, s Suggestion) []Suggestion {
	for _, existing := range list {
		if existing.Text == s.Text {
			return list
		}
	}
	return append(list, s)
}

// tokenizePatternViaWords segments input by the longest patterns the
// learning store knows, emitting the value-mode tokens of each stored
// word; stretches nothing in the store covers fall back to symbol
// tokenization. Each resolution path becomes one candidate sequence.
func (v *Varnam) tokenizePatternViaWords(pattern string) ([][]*token.Token, error) {
	var (
		resultSeqs [][]*token.Token
		unresolved []byte
	)

	logging.Get(logging.CategorySuggest).Debug("tokenizing %q with words tokenizer", pattern)

	flushUnresolved := func() error {
		if len(unresolved) == 0 {
			return nil
		}
		groups, err := v.sym.Tokenize(string(unresolved), symbol.ModePattern, token.MatchExact, v.tokenPool)
		if err != nil {
			return err
		}
		resultSeqs = v.appendTokens(firstOfEach(groups), resultSeqs)
		unresolved = unresolved[:0]
		return nil
	}

	pos := 0
	for pos < len(pattern) {
		matchPos := 0
		var matches []string

		for i := pos; i < len(pattern); i++ {
			lookup := pattern[pos : i+1]

			found, err := v.words.GetMatches(lookup)
			if err != nil {
				return nil, err
			}
			if len(found) > 0 {
				matches = found
				matchPos = i + 1 - pos
			}

			possible, err := v.words.PossibleToFindMatches(lookup)
			if err != nil {
				return nil, err
			}
			if !possible {
				break
			}
		}

		if len(matches) == 0 {
			// Remember the failed byte; a later match flushes the run
			// through symbol tokenization.
			unresolved = append(unresolved, pattern[pos])
			pos++
			continue
		}

		if err := flushUnresolved(); err != nil {
			return nil, err
		}

		if len(resultSeqs) == 0 {
			// Each match opens its own resolution path.
			for _, match := range matches {
				groups, err := v.sym.Tokenize(match, symbol.ModeValue, token.MatchExact, v.tokenPool)
				if err != nil {
					return nil, err
				}
				resultSeqs = append(resultSeqs, firstOfEach(groups))
			}
		} else {
			// Later segments extend the existing paths; only the best
			// match contributes so the paths don't explode.
			groups, err := v.sym.Tokenize(matches[0], symbol.ModeValue, token.MatchExact, v.tokenPool)
			if err != nil {
				return nil, err
			}
			resultSeqs = v.appendTokens(firstOfEach(groups), resultSeqs)
		}
		pos += matchPos
	}

	if len(resultSeqs) == 0 && len(unresolved) > 0 {
		// Nothing in the store matched anywhere; there is no path the
		// literal rendering doesn't already cover.
		return nil, nil
	}
	if err := flushUnresolved(); err != nil {
		return nil, err
	}
	return resultSeqs, nil
}

// appendTokens adds a flattened sequence to the result: the first
// sequence starts a path, later ones extend every existing path.
func (v *Varnam) appendTokens(tokens []*token.Token, seqs [][]*token.Token) [][]*token.Token {
	if len(seqs) == 0 {
		return append(seqs, tokens)
	}
	for i := range seqs {
		seqs[i] = append(seqs[i], tokens...)
	}
	return seqs
}
