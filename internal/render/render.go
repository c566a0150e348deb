// Package render assembles tokenizer output into script text (forward)
// and Roman text (reverse), enforcing virama handling, dependent
// vowel forms and zero-width joiner placement. Scheme-specific
// renderers registered by scheme id run before the default rules.
package render

import (
	"bytes"
	"errors"
	"fmt"

	"govarnam/internal/result"
	"govarnam/internal/token"
)

// Zero-width control characters.
const (
	ZWNJ = "\u200c"
	ZWJ  = "\u200d"
)

// Options configure one resolve run.
type Options struct {
	// SchemeID selects the custom renderer, when one is registered.
	SchemeID string

	// Virama is the scheme's cached virama token; nil when the
	// scheme defines none. Resolving a Virama token without one is
	// an error.
	Virama *token.Token

	// UseIndicDigits renders Number tokens through their script
	// value; off, digits pass through as typed.
	UseIndicDigits bool
}

// Resolve renders a flattened token sequence into script text.
func Resolve(tokens []*token.Token, opts Options, buf *bytes.Buffer) (string, error) {
	custom := lookup(opts.SchemeID)

	var previous *token.Token
	for _, t := range tokens {
		if custom != nil && custom.Forward != nil {
			err := custom.Forward(&Context{Virama: opts.Virama, Previous: previous}, t, buf)
			if err == nil {
				previous = t
				continue
			}
			if !errors.Is(err, result.ErrPartialRendering) {
				return "", err
			}
		}

		switch {
		case t.Kind == token.Virama:
			if opts.Virama == nil {
				return "", fmt.Errorf("%w: scheme defines no virama but input resolves one", result.ErrNotFound)
			}
			// An explicit cluster break: if the output already ends
			// with a virama only the ZWNJ is missing.
			if endsWith(buf, opts.Virama.Value1) {
				buf.WriteString(ZWNJ)
			} else {
				buf.WriteString(opts.Virama.Value1)
				buf.WriteString(ZWNJ)
			}

		case t.Kind == token.Vowel:
			if opts.Virama != nil && endsWith(buf, opts.Virama.Value1) {
				// The pending virama cancels into the dependent form.
				buf.Truncate(buf.Len() - len(opts.Virama.Value1))
				if t.Value2 != "" {
					buf.WriteString(t.Value2)
				}
			} else if previous != nil && previous.Kind != token.Other {
				buf.WriteString(t.Value2)
			} else {
				buf.WriteString(t.Value1)
			}

		case t.Kind == token.Number && !opts.UseIndicDigits:
			buf.WriteString(t.Pattern)

		case t.Kind == token.NonJoiner:
			// The cancellation character: nothing is emitted and the
			// previous slot resets so a following vowel stands
			// independent.
			buf.WriteString(t.Value1)
			previous = nil
			continue

		default:
			buf.WriteString(t.Value1)
		}

		previous = t
	}

	return buf.String(), nil
}

// ResolveReverse renders value-mode tokenizer output back into Roman
// text. Only the first token of each group matters. A vowel whose
// value matches the previous token's gets an underscore prefix so the
// Roman form round-trips without an unintended conjunct; a single
// trailing underscore is stripped.
func ResolveReverse(groups []token.Group, opts Options, buf *bytes.Buffer) (string, error) {
	custom := lookup(opts.SchemeID)

	var previous *token.Token
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		t := group[0]

		if custom != nil && custom.Reverse != nil {
			err := custom.Reverse(&Context{Virama: opts.Virama, Previous: previous}, t, buf)
			if err == nil {
				previous = t
				continue
			}
			if !errors.Is(err, result.ErrPartialRendering) {
				return "", err
			}
		}

		if t.Kind == token.Vowel && previous != nil && t.Value1 == previous.Value1 {
			buf.WriteString("_")
		}
		buf.WriteString(t.Pattern)
		previous = t
	}

	out := buf.String()
	if len(out) > 0 && out[len(out)-1] == '_' {
		out = out[:len(out)-1]
	}
	return out, nil
}

func endsWith(buf *bytes.Buffer, suffix string) bool {
	if suffix == "" {
		return false
	}
	return bytes.HasSuffix(buf.Bytes(), []byte(suffix))
}
