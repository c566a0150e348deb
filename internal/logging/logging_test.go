package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCategoryFilesCreatedLazily(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, true); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(Close)

	Get(CategoryWords).Info("learned %s", "word")
	Get(CategoryWords).Debug("debug line")

	data, err := os.ReadFile(filepath.Join(dir, "words.log"))
	if err != nil {
		t.Fatalf("reading category log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "learned word") {
		t.Errorf("info line missing from log: %q", content)
	}
	if !strings.Contains(content, "debug line") {
		t.Errorf("debug line missing in debug mode: %q", content)
	}
}

func TestUninitializedLoggingIsSilent(t *testing.T) {
	// No Initialize: writes must not panic and produce no file.
	Get(CategoryDetect).Info("dropped")
	Get(CategoryDetect).Error("dropped too")
}

func TestInitializeRequiresDir(t *testing.T) {
	if err := Initialize("", false); err == nil {
		t.Error("expected an error for an empty directory")
	}
}
