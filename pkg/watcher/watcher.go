// Package watcher reports changes under a conductor directory as debounced
// batches of track IDs.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/conductor-dashboard/pkg/debug"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/parser"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrRootMissing    = errors.New("conductor directory does not exist")
	ErrNotDirectory   = errors.New("not a directory")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// SetupError means the root could not be watched at all. It is fatal.
type SetupError struct {
	Root string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("cannot watch %s: %v", e.Root, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// DegradedError reports that notifications failed at runtime and the
// watcher fell back to polling. It is not fatal.
type DegradedError struct {
	Cause error
	Time  time.Time
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("file watching degraded, polling instead: %v", e.Cause)
}

func (e *DegradedError) Unwrap() error { return e.Cause }

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce window.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

type stamp struct {
	mtime time.Time
	size  int64
}

// Watcher watches a conductor directory recursively.
//
// fsnotify is not recursive, so the watcher adds the root, the tracks
// directory and every track directory, and adds new track directories as
// they appear.
type Watcher struct {
	layout           parser.Layout
	debounceDuration time.Duration
	pollInterval     time.Duration
	forcePoll        bool
	fsType           FilesystemType

	fsWatcher   *fsnotify.Watcher
	addWatch    func(*fsnotify.Watcher, string) error
	debouncer   *Debouncer
	useFallback bool
	snapshot    map[string]stamp

	pendingMu sync.Mutex
	pending   pendingSet
	sendMu    sync.Mutex
	out       chan Batch
	errCh     chan error

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.RWMutex
}

type pendingSet struct {
	ids   map[model.TrackID]struct{}
	index bool
	full  bool
}

// NewWatcher creates a watcher for the conductor directory root.
func NewWatcher(root string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		layout:           parser.Layout{Root: abs, TracksDir: abs},
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		addWatch:         (*fsnotify.Watcher).Add,
		out:              make(chan Batch, 1),
		errCh:            make(chan error, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounceDuration)
	return w, nil
}

// Start begins watching. It returns a *SetupError when the root is missing
// or unreadable.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	root := w.layout.Root
	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &SetupError{Root: root, Err: ErrRootMissing}
	case errors.Is(err, fs.ErrPermission):
		return &SetupError{Root: root, Err: ErrPermission}
	case err != nil:
		return &SetupError{Root: root, Err: err}
	case !info.IsDir():
		return &SetupError{Root: root, Err: ErrNotDirectory}
	}
	if _, err := os.ReadDir(root); err != nil {
		return &SetupError{Root: root, Err: ErrPermission}
	}

	w.layout = parser.ResolveLayout(root)
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.pending = pendingSet{}
	w.fsType = DetectFilesystemType(root)
	w.useFallback = w.forcePoll || envBool("CONDUCTOR_FORCE_POLL") || isRemoteFilesystem(w.fsType)

	if !w.useFallback {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			debug.Warn("fsnotify unavailable, polling: %v", err)
			w.useFallback = true
		} else if err := w.addTree(fsw, w.layout); err != nil {
			fsw.Close()
			if errors.Is(err, fs.ErrPermission) {
				w.cancel()
				return &SetupError{Root: root, Err: ErrPermission}
			}
			debug.Warn("cannot add watches, polling: %v", err)
			w.useFallback = true
			w.reportDegraded(err)
		} else {
			w.fsWatcher = fsw
			go w.watchFsnotify(fsw)
		}
	}
	if w.useFallback {
		w.snapshot = takeSnapshot(w.layout)
		go w.watchPolling()
	}

	debug.Log("watcher started on %s (nested=%v polling=%v fs=%s)", root, w.layout.Nested, w.useFallback, w.fsType)
	w.started = true
	return nil
}

// Stop cancels the watcher and abandons any armed debounce window.
// The batch channel is left open; a receiver blocked on it is released
// when the program exits.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.cancel()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

// Batches delivers debounced change batches. The channel holds at most one
// batch; changes made while it is full are merged into the queued batch.
func (w *Watcher) Batches() <-chan Batch { return w.out }

// Errors delivers runtime problems, currently only *DegradedError.
func (w *Watcher) Errors() <-chan error { return w.errCh }

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string { return w.currentLayout().Root }

// FilesystemType returns the best-effort filesystem classification.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the polling interval used when polling mode is active.
func (w *Watcher) PollInterval() time.Duration {
	return w.pollInterval
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (w *Watcher) currentLayout() parser.Layout {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.layout
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, l parser.Layout) error {
	if err := w.addWatch(fsw, l.Root); err != nil {
		return err
	}
	if l.Nested {
		if err := w.addWatch(fsw, l.TracksDir); err != nil {
			return err
		}
	}
	entries, err := os.ReadDir(l.TracksDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() && !parser.Hidden(e.Name()) {
			if err := w.addTrackDir(fsw, filepath.Join(l.TracksDir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// addTrackDir watches one track directory. An unreadable directory is
// skipped; any other failure (typically the inotify watch limit) means
// events would be silently missed, so it is returned.
func (w *Watcher) addTrackDir(fsw *fsnotify.Watcher, dir string) error {
	err := w.addWatch(fsw, dir)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrPermission), errors.Is(err, fs.ErrNotExist):
		debug.Warn("watch %s: %v", dir, err)
		return nil
	}
	return fmt.Errorf("watch %s: %w", dir, err)
}

// classify maps a path to the track it belongs to. ok is false for paths
// that do not affect any track.
func (w *Watcher) classify(path string) (id model.TrackID, index, full, ok bool) {
	layout := w.currentLayout()
	rel, err := filepath.Rel(layout.Root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false, false, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) == 1 && parts[0] == parser.IndexFile {
		return "", true, false, true
	}
	if layout.Nested {
		if parts[0] != parser.TracksDirName {
			return "", false, false, false
		}
		if len(parts) == 1 {
			return "", false, true, true
		}
		parts = parts[1:]
	} else if len(parts) == 1 && filepath.Ext(parts[0]) != "" {
		return "", false, false, false
	}
	if parser.Hidden(parts[0]) {
		return "", false, false, false
	}
	switch {
	case len(parts) == 1:
		return model.TrackID(parts[0]), false, false, true
	case len(parts) == 2 && parser.IsTrackFile(parts[1]):
		return model.TrackID(parts[0]), false, false, true
	}
	return "", false, false, false
}

// record adds a path to the pending batch and arms the debounce window.
func (w *Watcher) record(path string) {
	id, index, full, ok := w.classify(path)
	if !ok {
		return
	}
	w.pendingMu.Lock()
	if id != "" {
		if w.pending.ids == nil {
			w.pending.ids = make(map[model.TrackID]struct{})
		}
		w.pending.ids[id] = struct{}{}
	}
	w.pending.index = w.pending.index || index
	w.pending.full = w.pending.full || full
	w.pendingMu.Unlock()
	w.debouncer.Trigger(w.flush)
}

func (w *Watcher) requestFull() {
	w.pendingMu.Lock()
	w.pending.full = true
	w.pendingMu.Unlock()
	w.debouncer.Trigger(w.flush)
}

// flush turns the pending set into a Batch. Each ID is checked on disk:
// a directory that is gone is reported as removed rather than changed.
func (w *Watcher) flush() {
	if w.ctx.Err() != nil {
		return
	}
	w.pendingMu.Lock()
	p := w.pending
	w.pending = pendingSet{}
	w.pendingMu.Unlock()

	tracksDir := w.currentLayout().TracksDir
	var b Batch
	b.IndexChanged, b.Full = p.index, p.full
	for id := range p.ids {
		fi, err := os.Stat(filepath.Join(tracksDir, string(id)))
		if err == nil && fi.IsDir() {
			b.Changed = append(b.Changed, id)
		} else {
			b.Removed = append(b.Removed, id)
		}
	}
	if b.Empty() {
		return
	}
	slices.Sort(b.Changed)
	slices.Sort(b.Removed)
	w.send(b)
}

// send delivers b without blocking. If the consumer has not taken the
// previous batch yet, b is merged into it.
func (w *Watcher) send(b Batch) {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	select {
	case queued := <-w.out:
		b = queued.Merge(b)
	default:
	}
	// Only send holds sendMu and the channel was just drained.
	w.out <- b
	debug.Log("watcher batch: changed=%v removed=%v index=%v full=%v", b.Changed, b.Removed, b.IndexChanged, b.Full)
}

func (w *Watcher) watchFsnotify(fsw *fsnotify.Watcher) {
	events, errs := fsw.Events, fsw.Errors
	for {
		select {
		case <-w.ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.watchNewDir(fsw, ev.Name); err != nil {
						w.record(ev.Name)
						w.degrade(err)
						return
					}
				}
			}
			w.record(ev.Name)

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.degrade(err)
			return
		}
	}
}

func (w *Watcher) watchNewDir(fsw *fsnotify.Watcher, dir string) error {
	dir = filepath.Clean(dir)
	layout := w.currentLayout()
	if !layout.Nested && dir == filepath.Join(layout.Root, parser.TracksDirName) {
		// The tracks directory appeared: switch layouts and rescan.
		layout = parser.ResolveLayout(layout.Root)
		w.mu.Lock()
		w.layout = layout
		w.mu.Unlock()
		w.requestFull()
		return w.addTree(fsw, layout)
	}
	if filepath.Dir(dir) == layout.TracksDir {
		return w.addTrackDir(fsw, dir)
	}
	return nil
}

// degrade switches to polling after a runtime notification failure.
func (w *Watcher) degrade(cause error) {
	snap := takeSnapshot(w.currentLayout())
	w.mu.Lock()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.useFallback = true
	w.snapshot = snap
	w.mu.Unlock()

	debug.Warn("watcher degraded: %v", cause)
	w.reportDegraded(cause)
	w.requestFull()
	go w.watchPolling()
}

// reportDegraded queues a *DegradedError unless one is already waiting.
func (w *Watcher) reportDegraded(cause error) {
	select {
	case w.errCh <- &DegradedError{Cause: cause, Time: time.Now()}:
	default:
	}
}

func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			next := takeSnapshot(w.currentLayout())
			w.mu.Lock()
			prev := w.snapshot
			w.snapshot = next
			w.mu.Unlock()
			for path, s := range next {
				if old, ok := prev[path]; !ok || !old.mtime.Equal(s.mtime) || old.size != s.size {
					w.record(path)
				}
			}
			for path := range prev {
				if _, ok := next[path]; !ok {
					w.record(path)
				}
			}
		}
	}
}

// takeSnapshot stats tracks.md, every track directory and its files.
func takeSnapshot(l parser.Layout) map[string]stamp {
	snap := make(map[string]stamp)
	add := func(path string) {
		if fi, err := os.Stat(path); err == nil {
			snap[path] = stamp{mtime: fi.ModTime(), size: fi.Size()}
		}
	}
	add(filepath.Join(l.Root, parser.IndexFile))
	entries, err := os.ReadDir(l.TracksDir)
	if err != nil {
		return snap
	}
	for _, e := range entries {
		if !e.IsDir() || parser.Hidden(e.Name()) {
			continue
		}
		dir := filepath.Join(l.TracksDir, e.Name())
		snap[dir] = stamp{}
		for _, name := range parser.TrackFiles {
			add(filepath.Join(dir, name))
		}
	}
	return snap
}
