package compiler

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ignoredSources are directory or file name globs that never trigger a rebuild.
var ignoredSources = []string{".git", "node_modules", "dist", ".idea", ".vscode", "*.swp", "*~"}

// A SourceChange is one rebuild trigger: every path touched during a burst
// of file system events that ended Debounce ago.
type SourceChange struct {
	Paths []string
	At    time.Time
}

// SourceWatcher turns file system events below a chart source directory
// into rebuild triggers. At most one trigger is queued at a time; later
// bursts fold into it.
type SourceWatcher struct {
	dir      string
	debounce time.Duration
	fs       *fsnotify.Watcher

	changes chan SourceChange
	errors  chan error

	stopOnce sync.Once
	done     chan struct{}
}

// NewSourceWatcher watches dir and every directory below it. A debounce of
// zero uses 100ms.
func NewSourceWatcher(dir string, debounce time.Duration) (*SourceWatcher, error) {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &SourceWatcher{
		dir:      dir,
		debounce: debounce,
		fs:       fsWatcher,
		changes:  make(chan SourceChange, 1),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
	if err := w.addTree(dir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// Changes delivers rebuild triggers.
func (w *SourceWatcher) Changes() <-chan SourceChange { return w.changes }

// Errors delivers watch errors. Errors are dropped while one is pending.
func (w *SourceWatcher) Errors() <-chan error { return w.errors }

// Run processes events until ctx is done or Stop is called.
func (w *SourceWatcher) Run(ctx context.Context) {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = map[string]struct{}{}
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.accept(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.trigger(pending)
			pending = map[string]struct{}{}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

// Stop releases the underlying watcher. It is safe to call more than once.
func (w *SourceWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}

// accept filters ignored paths and starts watching new directories.
func (w *SourceWatcher) accept(event fsnotify.Event) bool {
	if w.ignored(event.Name) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.report(err)
			}
		}
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (w *SourceWatcher) trigger(pending map[string]struct{}) {
	change := SourceChange{At: time.Now()}
	for path := range pending {
		change.Paths = append(change.Paths, path)
	}
	sort.Strings(change.Paths)

	select {
	case w.changes <- change:
	default:
		// A trigger is already queued; its rebuild covers these paths.
	}
}

func (w *SourceWatcher) report(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

func (w *SourceWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.dir && w.ignored(path) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

// ignored matches each path element below the watched root.
func (w *SourceWatcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		rel = path
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		for _, pattern := range ignoredSources {
			if matched, _ := filepath.Match(pattern, part); matched {
				return true
			}
		}
	}
	return false
}
