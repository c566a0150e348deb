package words

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"govarnam/internal/logging"
	"govarnam/internal/result"

	"golang.org/x/sync/errgroup"
)

// ExportCallback reports per-word export progress.
type ExportCallback func(total, processed int, word string)

// ExportedPattern is one pattern row in the JSON export format.
type ExportedPattern struct {
	Pattern string `json:"pattern"`
	Learned int    `json:"learned"`
}

// ExportedWord is one word in the JSON export format.
type ExportedWord struct {
	Word       string            `json:"word"`
	Confidence int               `json:"confidence"`
	Patterns   []ExportedPattern `json:"patterns"`
}

// ExportFull writes every word with its patterns as JSON arrays, one
// file per wordsPerFile words, named <n>.words.txt under dir. Words
// are ordered by confidence, best first. Rows are read on the single
// store connection; finished batches are written concurrently.
func (s *Store) ExportFull(wordsPerFile int, dir string, cb ExportCallback) error {
	if wordsPerFile <= 0 {
		return result.Argsf("words per file should be positive")
	}

	total, err := s.WordsCount(false)
	if err != nil {
		return err
	}

	// Temporary index so the per-word pattern lookups don't scan;
	// dropped before returning because export is rare and the index
	// is dead weight otherwise.
	if err := s.execSimple("create index if not exists tmp_patterns_content_word_id on patterns_content (word_id)"); err != nil {
		return err
	}
	defer s.execSimple("drop index if exists tmp_patterns_content_word_id")

	wordStmt, err := s.db.Prepare("select id, word, confidence from words order by confidence desc")
	if err != nil {
		return result.Storagef("failed to export words: %v", err)
	}
	defer wordStmt.Close()

	patternStmt, err := s.db.Prepare("select pattern, learned from patterns_content where word_id = ?1")
	if err != nil {
		return result.Storagef("failed to export words: %v", err)
	}
	defer patternStmt.Close()

	type idWord struct {
		id   int64
		word ExportedWord
	}

	rows, err := wordStmt.Query()
	if err != nil {
		return result.Storagef("failed to export words: %v", err)
	}
	var all []idWord
	for rows.Next() {
		var iw idWord
		if err := rows.Scan(&iw.id, &iw.word.Word, &iw.word.Confidence); err != nil {
			rows.Close()
			return result.Storagef("failed to export words: %v", err)
		}
		all = append(all, iw)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return result.Storagef("failed to export words: %v", err)
	}
	rows.Close()

	var g errgroup.Group
	processed := 0
	fileIndex := 0
	batch := make([]ExportedWord, 0, wordsPerFile)

	flush := func() {
		out := make([]ExportedWord, len(batch))
		copy(out, batch)
		path := filepath.Join(dir, fmt.Sprintf("%d.words.txt", fileIndex))
		fileIndex++
		batch = batch[:0]
		g.Go(func() error {
			data, err := json.Marshal(out)
			if err != nil {
				return result.Storagef("failed to serialize export: %v", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return result.Storagef("failed to write %s: %v", path, err)
			}
			return nil
		})
	}

	for i := range all {
		iw := &all[i]
		prows, err := patternStmt.Query(iw.id)
		if err != nil {
			return result.Storagef("failed to export words: %v", err)
		}
		for prows.Next() {
			var p ExportedPattern
			if err := prows.Scan(&p.Pattern, &p.Learned); err != nil {
				prows.Close()
				return result.Storagef("failed to export words: %v", err)
			}
			iw.word.Patterns = append(iw.word.Patterns, p)
		}
		if err := prows.Err(); err != nil {
			prows.Close()
			return result.Storagef("failed to export words: %v", err)
		}
		prows.Close()

		batch = append(batch, iw.word)
		processed++
		if cb != nil {
			cb(total, processed, iw.word.Word)
		}
		if len(batch) == wordsPerFile {
			flush()
		}
	}
	if len(batch) > 0 {
		flush()
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logging.Get(logging.CategoryExport).Info("exported %d words to %s", processed, dir)
	return nil
}

// ExportLearned writes learned words as plain text, one
// "<word> <confidence>" line each, wordsPerFile words per <n>.txt file.
func (s *Store) ExportLearned(wordsPerFile int, dir string, cb ExportCallback) error {
	if wordsPerFile <= 0 {
		return result.Argsf("words per file should be positive")
	}

	total, err := s.WordsCount(true)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	rows, err := s.db.Query(
		`select word, confidence from words where id in
		 (select distinct(word_id) from patterns_content where learned = 1)
		 order by confidence desc`)
	if err != nil {
		return result.Storagef("failed to export words: %v", err)
	}
	defer rows.Close()

	var (
		f         *os.File
		written   int
		fileIndex int
		processed int
	)
	closeFile := func() error {
		if f == nil {
			return nil
		}
		err := f.Close()
		f = nil
		return err
	}
	defer closeFile()

	for rows.Next() {
		var w Word
		if err := rows.Scan(&w.Text, &w.Confidence); err != nil {
			return result.Storagef("failed to export words: %v", err)
		}

		if f == nil {
			path := filepath.Join(dir, fmt.Sprintf("%d.txt", fileIndex))
			fileIndex++
			f, err = os.Create(path)
			if err != nil {
				return result.Storagef("failed to open %s: %v", path, err)
			}
		}

		if _, err := fmt.Fprintf(f, "%s %d\n", w.Text, w.Confidence); err != nil {
			return result.Storagef("failed to write export: %v", err)
		}
		processed++
		if cb != nil {
			cb(total, processed, w.Text)
		}

		if written++; written == wordsPerFile {
			written = 0
			if err := closeFile(); err != nil {
				return result.Storagef("failed to close export file: %v", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return result.Storagef("failed to export words: %v", err)
	}
	return closeFile()
}

// ImportWords restores exported words and their pattern rows inside
// one transaction. Existing words keep their row; their patterns are
// merged.
func (s *Store) ImportWords(entries []ExportedWord) error {
	if err := s.Begin(); err != nil {
		return err
	}

	for _, e := range entries {
		id, err := s.TryInsertWord(e.Word, e.Confidence)
		if err != nil {
			s.Rollback()
			return err
		}
		if id == -1 {
			if id, err = s.GetWordID(e.Word); err != nil {
				s.Rollback()
				return err
			}
			if id == -1 {
				s.Rollback()
				return result.Storagef("failed to import '%s': word vanished mid-import", e.Word)
			}
		}

		for _, p := range e.Patterns {
			if err := s.PersistPattern(p.Pattern, id, p.Learned == 0); err != nil {
				s.Rollback()
				return err
			}
		}
	}

	if err := s.Commit(); err != nil {
		s.Rollback()
		return err
	}
	logging.Get(logging.CategoryExport).Info("imported %d words", len(entries))
	return nil
}
