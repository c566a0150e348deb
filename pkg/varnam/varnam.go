// Package varnam is the public face of the transliteration engine: an
// opaque handle owning a symbol store, an optional learning store,
// the instance pools, and the configuration flags.
//
// A handle is single threaded; callers serialise operations on one
// handle. Multiple handles may run concurrently, even against the
// same scheme file.
package varnam

import (
	"strings"

	"govarnam/internal/config"
	"govarnam/internal/langdetect"
	"govarnam/internal/logging"
	"govarnam/internal/render"
	"govarnam/internal/result"
	"govarnam/internal/schemes"
	"govarnam/internal/symbol"
	"govarnam/internal/token"
	"govarnam/internal/words"

	"github.com/google/uuid"
)

// Varnam is one initialized handle over a scheme file.
type Varnam struct {
	id         string
	schemeFile string

	sym   *symbol.Store
	words *words.Store

	opts config.Options

	tokenPool *token.Pool
	bufPool   *token.BufPool

	meta map[string]string

	lastError string
}

// Init initializes a handle from a compiled scheme file.
func Init(schemeFile string) (*Varnam, error) {
	if schemeFile == "" {
		return nil, result.Argsf("scheme file is required")
	}

	sym, err := symbol.Open(schemeFile)
	if err != nil {
		return nil, err
	}

	v := &Varnam{
		id:         uuid.NewString(),
		schemeFile: schemeFile,
		sym:        sym,
		opts:       config.DefaultOptions(),
		tokenPool:  token.NewPool(256),
		bufPool:    token.NewBufPool(4, 128),
		meta:       make(map[string]string),
	}
	v.sym.IgnoreDuplicates = v.opts.IgnoreDuplicateTokens

	logging.Get(logging.CategoryBoot).Info("handle %s initialized from %s", v.id, schemeFile)
	return v, nil
}

// InitFromID resolves a scheme identifier through the registry built
// from cfg's scheme directories, opens it, and enables suggestions
// under cfg's suggestions directory.
func InitFromID(schemeID string, cfg *config.Config) (*Varnam, error) {
	if schemeID == "" {
		return nil, result.Argsf("scheme identifier is required")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	registry := schemes.NewRegistry(cfg.SchemeDirs)
	path, err := registry.Resolve(schemeID)
	if err != nil {
		return nil, result.Storagef("%v", err)
	}

	v, err := Init(path)
	if err != nil {
		return nil, err
	}
	if err := v.EnableSuggestions(cfg.SuggestionsPathFor(schemeID)); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

// ID returns the handle's instance id, used to correlate log lines.
func (v *Varnam) ID() string { return v.id }

// SchemeFile returns the scheme file this handle was opened from.
func (v *Varnam) SchemeFile() string { return v.schemeFile }

// SuggestionsFile returns the learning store path, or empty when
// suggestions are disabled.
func (v *Varnam) SuggestionsFile() string {
	if v.words == nil {
		return ""
	}
	return v.words.Path()
}

// LastError returns the message recorded by the most recent failed
// call. Successful calls never touch it.
func (v *Varnam) LastError() string { return v.lastError }

// fail records err as the handle's last error and passes it through.
func (v *Varnam) fail(err error) error {
	if err != nil {
		v.lastError = err.Error()
	}
	return err
}

// reset rewinds the instance pools. Every user-facing call starts
// here so the hot path reuses the same memory.
func (v *Varnam) reset() {
	v.tokenPool.Reset()
	v.bufPool.Reset()
}

// SetUseDeadConsonants toggles dead-consonant derivation during token
// creation.
func (v *Varnam) SetUseDeadConsonants(on bool) {
	v.opts.UseDeadConsonants = on
}

// SetUseIndicDigits routes ASCII digits through the symbol store
// during forward transliteration.
func (v *Varnam) SetUseIndicDigits(on bool) {
	v.opts.UseIndicDigits = on
}

// SetIgnoreDuplicateTokens silently skips duplicate token inserts
// instead of failing them.
func (v *Varnam) SetIgnoreDuplicateTokens(on bool) {
	v.opts.IgnoreDuplicateTokens = on
	v.sym.IgnoreDuplicates = on
}

// EnableSuggestions opens the learning store at path, closing any
// store already open. An empty path turns suggestions off.
func (v *Varnam) EnableSuggestions(path string) error {
	if v.words != nil {
		v.words.Close()
		v.words = nil
		v.opts.SuggestionsPath = ""
	}
	if path == "" {
		return nil
	}

	store, err := words.Open(path)
	if err != nil {
		return v.fail(err)
	}
	v.words = store
	v.opts.SuggestionsPath = path
	logging.Get(logging.CategoryBoot).Info("handle %s: %s will be used to store known words", v.id, path)
	return nil
}

// DetectLang guesses the language of an Indic-script string from its
// code points. Mixed-script input is Unknown.
func (v *Varnam) DetectLang(input string) langdetect.Lang {
	return langdetect.Detect(input)
}

// SchemeDetails is the metadata block of a scheme file.
type SchemeDetails struct {
	LangCode     string
	Identifier   string
	DisplayName  string
	Author       string
	CompiledDate string
}

// SetSchemeDetails writes the non-empty metadata fields. The language
// code must be an ISO 639-1 two-letter code.
func (v *Varnam) SetSchemeDetails(d SchemeDetails) error {
	if d.LangCode != "" {
		if len(d.LangCode) != 2 {
			return v.fail(result.Argsf("language code should be one of ISO 639-1 two letter codes"))
		}
		if err := v.sym.AddMetadata(symbol.MetaLangCode, d.LangCode); err != nil {
			return v.fail(err)
		}
	}
	for key, value := range map[string]string{
		symbol.MetaSchemeID:     d.Identifier,
		symbol.MetaDisplayName:  d.DisplayName,
		symbol.MetaAuthor:       d.Author,
		symbol.MetaCompiledDate: d.CompiledDate,
	} {
		if value == "" {
			continue
		}
		if err := v.sym.AddMetadata(key, value); err != nil {
			return v.fail(err)
		}
	}
	v.meta = make(map[string]string)
	return nil
}

func (v *Varnam) schemeDetail(key string) string {
	if cached, ok := v.meta[key]; ok {
		return cached
	}
	value, err := v.sym.GetMetadata(key)
	if err != nil {
		v.fail(err)
		return ""
	}
	v.meta[key] = value
	return value
}

// SchemeLanguageCode returns the scheme's ISO 639-1 language code.
func (v *Varnam) SchemeLanguageCode() string { return v.schemeDetail(symbol.MetaLangCode) }

// SchemeIdentifier returns the scheme's unique identifier.
func (v *Varnam) SchemeIdentifier() string { return v.schemeDetail(symbol.MetaSchemeID) }

// SchemeDisplayName returns the scheme's human-readable name.
func (v *Varnam) SchemeDisplayName() string { return v.schemeDetail(symbol.MetaDisplayName) }

// SchemeAuthor returns the scheme's author.
func (v *Varnam) SchemeAuthor() string { return v.schemeDetail(symbol.MetaAuthor) }

// SchemeCompiledDate returns when the scheme was compiled.
func (v *Varnam) SchemeCompiledDate() string { return v.schemeDetail(symbol.MetaCompiledDate) }

// canGenerateDeadConsonant reports whether the pattern carries an
// inherent trailing 'a' sound a dead consonant can be inferred from.
func canGenerateDeadConsonant(pattern string) bool {
	if len(pattern) <= 1 {
		return false
	}
	return pattern[len(pattern)-2] != 'a' && pattern[len(pattern)-1] == 'a'
}

// CreateToken persists one token, deriving the dead-consonant form
// for consonants when that option is on. With buffered set the insert
// joins an open transaction the caller ends with FlushBuffer.
func (v *Varnam) CreateToken(pattern, value1, value2, value3, tag string, kind token.Kind, match token.MatchType, buffered bool) error {
	if pattern == "" {
		return v.fail(result.Argsf("pattern is required"))
	}
	if value1 == "" && kind != token.NonJoiner && kind != token.Joiner {
		return v.fail(result.Argsf("value1 is required"))
	}

	if buffered {
		if err := v.sym.StartBuffering(); err != nil {
			return v.fail(err)
		}
	}

	if kind == token.Consonant && v.opts.UseDeadConsonants {
		virama, err := v.sym.GetVirama()
		if err != nil {
			return v.fail(result.Argsf("virama needs to be set before auto generating dead consonants"))
		}

		if strings.HasSuffix(value1, virama.Value1) {
			kind = token.DeadConsonant
		} else if canGenerateDeadConsonant(pattern) {
			deadPattern := pattern[:len(pattern)-1]
			deadValue1 := value1 + virama.Value1
			deadValue2 := ""
			if value2 != "" {
				deadValue2 = value2 + virama.Value1
			}
			if err := v.sym.PersistToken(deadPattern, deadValue1, deadValue2, "", tag, token.DeadConsonant, match); err != nil {
				if buffered {
					v.sym.Discard()
				}
				return v.fail(err)
			}
		}
	}

	switch kind {
	case token.NonJoiner:
		// The cancellation character renders nothing itself.
		value1, value2 = "", ""
	case token.Joiner:
		value1, value2 = render.ZWJ, render.ZWJ
	}

	if err := v.sym.PersistToken(pattern, value1, value2, value3, tag, kind, match); err != nil {
		if buffered {
			v.sym.Discard()
		}
		return v.fail(err)
	}
	return nil
}

// FlushBuffer commits buffered token inserts and finishes the scheme
// build (prefix-flag stamping, compaction).
func (v *Varnam) FlushBuffer() error {
	return v.fail(v.sym.Flush())
}

// GenerateCVCombinations synthesises consonant-vowel tokens for every
// dead consonant and vowel pair.
func (v *Varnam) GenerateCVCombinations() error {
	return v.fail(v.sym.GenerateCVCombinations())
}

// GetAllTokens returns every token of one kind in storage order.
func (v *Varnam) GetAllTokens(kind token.Kind) ([]token.Token, error) {
	toks, err := v.sym.GetAllTokens(kind)
	if err != nil {
		return nil, v.fail(err)
	}
	return toks, nil
}

// Close releases both stores. The handle must not be used afterwards.
func (v *Varnam) Close() error {
	logging.Get(logging.CategoryBoot).Info("handle %s closing", v.id)
	var first error
	if v.words != nil {
		if err := v.words.Close(); err != nil {
			first = err
		}
		v.words = nil
	}
	if v.sym != nil {
		if err := v.sym.Close(); err != nil && first == nil {
			first = err
		}
		v.sym = nil
	}
	return first
}
