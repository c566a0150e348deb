// Package schemes resolves scheme identifiers to compiled .vst files
// across an ordered list of directories, and keeps the mapping fresh
// by watching those directories for changes.
package schemes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"govarnam/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Extension is the compiled scheme file extension.
const Extension = ".vst"

// Info describes one available scheme file.
type Info struct {
	ID   string
	Path string
}

// Registry maps scheme ids to files. Directories earlier in the list
// shadow later ones, so a user-local scheme overrides the system copy.
type Registry struct {
	mu   sync.RWMutex
	dirs []string
	byID map[string]string

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	// Debounce rapid rewrites of the same file.
	debounce    map[string]time.Time
	debounceDur time.Duration
}

// NewRegistry creates a registry over the given directories and scans
// them once.
func NewRegistry(dirs []string) *Registry {
	r := &Registry{
		dirs:        dirs,
		byID:        make(map[string]string),
		debounce:    make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
	}
	r.Refresh()
	return r
}

// Refresh rescans every directory.
func (r *Registry) Refresh() {
	found := make(map[string]string)
	for i := len(r.dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(r.dirs[i])
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
				continue
			}
			id := strings.TrimSuffix(e.Name(), Extension)
			found[id] = filepath.Join(r.dirs[i], e.Name())
		}
	}

	r.mu.Lock()
	r.byID = found
	r.mu.Unlock()
	logging.Get(logging.CategoryWatcher).Debug("scheme registry refreshed: %d schemes", len(found))
}

// Resolve returns the file for a scheme id.
func (r *Registry) Resolve(id string) (string, error) {
	r.mu.RLock()
	path, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("can't find scheme file for '%s'", id)
	}
	return path, nil
}

// List returns the available schemes sorted by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.byID))
	for id, path := range r.byID {
		out = append(out, Info{ID: id, Path: path})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Watch starts watching the registry's directories so newly compiled
// schemes appear without a restart. Non-blocking; call Stop to end it.
func (r *Registry) Watch() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.watcher = watcher
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.running = true
	r.mu.Unlock()

	watched := 0
	for _, dir := range r.dirs {
		if err := watcher.Add(dir); err == nil {
			watched++
		}
	}
	logging.Get(logging.CategoryWatcher).Info("watching %d scheme directories", watched)

	go r.loop()
	return nil
}

func (r *Registry) loop() {
	defer close(r.doneCh)
	for {
		select {
		case <-r.stopCh:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, Extension) {
				continue
			}
			if r.debounced(event.Name) {
				continue
			}
			logging.Get(logging.CategoryWatcher).Debug("scheme change: %s %s", event.Op, event.Name)
			r.Refresh()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatcher).Warn("watcher error: %v", err)
		}
	}
}

func (r *Registry) debounced(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if last, ok := r.debounce[name]; ok && now.Sub(last) < r.debounceDur {
		return true
	}
	r.debounce[name] = now
	return false
}

// Stop ends the watcher and waits for its goroutine to exit.
func (r *Registry) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	watcher := r.watcher
	r.mu.Unlock()

	watcher.Close()
	<-r.doneCh
}
