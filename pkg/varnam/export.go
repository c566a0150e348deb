package varnam

import (
	"bytes"
	"encoding/json"
	"os"

	"govarnam/internal/result"
	"govarnam/internal/words"
)

// ExportWords writes every known word with its patterns as JSON
// arrays under dir, wordsPerFile words per file.
func (v *Varnam) ExportWords(wordsPerFile int, dir string, cb words.ExportCallback) error {
	if v.words == nil {
		return v.fail(result.Argsf("'words' store is not enabled"))
	}
	return v.fail(v.words.ExportFull(wordsPerFile, dir, cb))
}

// ExportLearnedWords writes learned words as plain
// "<word> <confidence>" text files under dir.
func (v *Varnam) ExportLearnedWords(wordsPerFile int, dir string, cb words.ExportCallback) error {
	if v.words == nil {
		return v.fail(result.Argsf("'words' store is not enabled"))
	}
	return v.fail(v.words.ExportLearned(wordsPerFile, dir, cb))
}

// ImportFromFile restores learnings from a file produced by
// ExportWords (JSON) or from plain "<word> <confidence>" lines.
func (v *Varnam) ImportFromFile(path string) error {
	if v.words == nil {
		return v.fail(result.Argsf("'words' store is not enabled"))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return v.fail(result.Storagef("couldn't open file '%s' for reading", path))
	}

	if isJSONExport(data) {
		var entries []words.ExportedWord
		if err := json.Unmarshal(data, &entries); err != nil {
			return v.fail(result.Storagef("failed to parse '%s': %v", path, err))
		}
		return v.fail(v.words.ImportWords(entries))
	}

	_, err = v.LearnFromFile(path, nil)
	return err
}

func isJSONExport(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Compact reclaims free pages in the learning store.
func (v *Varnam) Compact() error {
	if v.words == nil {
		return v.fail(result.Argsf("'words' store is not enabled"))
	}
	return v.fail(v.words.Compact())
}
