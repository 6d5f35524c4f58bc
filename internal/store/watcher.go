package store

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the create/rename burst of one atomic write.
const reloadDebounce = 50 * time.Millisecond

// FileWatcher reloads a FileKV when another process rewrites its file,
// for example `sokoni prompts reset` while the browser is open.
type FileWatcher struct {
	kv      *FileKV
	logger  *slog.Logger
	fsw     *fsnotify.Watcher
	stopped chan struct{}

	mu       sync.Mutex
	onChange func()
	pending  *time.Timer
	started  bool
	closed   bool
}

// NewFileWatcher creates a stopped watcher for kv.
func NewFileWatcher(kv *FileKV, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{kv: kv, logger: logger, fsw: fsw, stopped: make(chan struct{})}, nil
}

// SetChangeCallback sets a function invoked after a reload that changed at
// least one value. Rewrites made through the watched FileKV itself change
// nothing and are not reported.
func (fw *FileWatcher) SetChangeCallback(fn func()) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.onChange = fn
}

// Start watches the file's directory, since the atomic rename replaces
// the file's inode. Calling Start twice is a no-op.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.started || fw.closed {
		return nil
	}
	if err := fw.fsw.Add(filepath.Dir(fw.kv.Path())); err != nil {
		return err
	}
	fw.started = true
	go fw.run(filepath.Base(fw.kv.Path()))
	return nil
}

func (fw *FileWatcher) run(name string) {
	for {
		select {
		case <-fw.stopped:
			return
		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("prefs watcher error", "error", err)
		case ev, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				fw.schedule()
			}
		}
	}
}

func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.closed {
		return
	}
	if fw.pending != nil {
		fw.pending.Reset(reloadDebounce)
		return
	}
	fw.pending = time.AfterFunc(reloadDebounce, fw.reload)
}

func (fw *FileWatcher) reload() {
	fw.mu.Lock()
	fw.pending = nil
	closed, fn := fw.closed, fw.onChange
	fw.mu.Unlock()
	if closed {
		return
	}

	changed, err := fw.kv.reload()
	if err != nil {
		fw.logger.Warn("failed to reload prefs", "path", fw.kv.Path(), "error", err)
		return
	}
	if len(changed) == 0 {
		return
	}
	fw.logger.Debug("prefs changed on disk", "path", fw.kv.Path(), "keys", changed)
	if fn != nil {
		fn()
	}
}

// Stop ends the watch and cancels any pending reload. Stop is idempotent.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.closed {
		return nil
	}
	fw.closed = true
	if fw.pending != nil {
		fw.pending.Stop()
		fw.pending = nil
	}
	close(fw.stopped)
	return fw.fsw.Close()
}
