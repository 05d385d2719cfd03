package harness

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// artifactWatcher records files the executed code creates in the working
// directory, so observations can name them and the model can chain
// file-based steps. It watches with fsnotify and degrades to a
// before/after directory diff when a watcher cannot be created.
type artifactWatcher struct {
	dir     string
	exclude string

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	created map[string]bool
	done    chan struct{}

	// before holds the pre-execution listing for the diff fallback.
	before map[string]bool
}

// watchArtifacts starts watching dir. exclude names the snippet file the
// harness itself writes there.
func watchArtifacts(dir, exclude string) *artifactWatcher {
	aw := &artifactWatcher{
		dir:     dir,
		exclude: exclude,
		created: make(map[string]bool),
		done:    make(chan struct{}),
		before:  listDir(dir),
	}

	w, err := fsnotify.NewWatcher()
	if err == nil {
		err = w.Add(dir)
	}
	if err != nil {
		log.Printf("[harness] artifact watcher unavailable, using directory diff only: %v", err)
		if w != nil {
			w.Close()
		}
		close(aw.done)
		return aw
	}

	aw.watcher = w
	go aw.run()
	return aw
}

func (aw *artifactWatcher) run() {
	defer close(aw.done)
	for {
		select {
		case ev, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				aw.mu.Lock()
				aw.created[filepath.Base(ev.Name)] = true
				aw.mu.Unlock()
			}
		case _, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// stop ends watching and returns the sorted artifact names, relative to
// the working directory. Watcher events are unioned with a before/after
// directory diff: inotify delivery is asynchronous, and a file created
// just before the process exits may not have produced an event yet.
func (aw *artifactWatcher) stop() []string {
	newFiles := make(map[string]bool)

	if aw.watcher != nil {
		aw.watcher.Close()
		<-aw.done

		aw.mu.Lock()
		for name := range aw.created {
			newFiles[name] = true
		}
		aw.mu.Unlock()
	}

	for name := range listDir(aw.dir) {
		if !aw.before[name] {
			newFiles[name] = true
		}
	}
	return aw.collect(newFiles)
}

// collect filters the snippet file and files that no longer exist (temp
// files the code created and removed), and sorts the survivors.
func (aw *artifactWatcher) collect(names map[string]bool) []string {
	var out []string
	for name := range names {
		if name == aw.exclude {
			continue
		}
		if _, err := os.Stat(filepath.Join(aw.dir, name)); err != nil {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func listDir(dir string) map[string]bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		out[e.Name()] = true
	}
	return out
}
