package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(80 * time.Millisecond)

	var callCount atomic.Int32

	for i := 0; i < 5; i++ {
		d.Trigger(func() {
			callCount.Add(1)
		})
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
}

func TestDebouncer_WindowNotExtended(t *testing.T) {
	d := NewDebouncer(60 * time.Millisecond)

	var callCount atomic.Int32
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		d.Trigger(func() { callCount.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	// A trailing debounce would fire once; a fixed window fires repeatedly.
	if count := callCount.Load(); count < 2 {
		t.Errorf("expected the window to flush during a continuous stream, got %d calls", count)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool

	d.Trigger(func() {
		called.Store(true)
	})
	if !d.Pending() {
		t.Fatal("expected pending window after Trigger")
	}

	d.Cancel()

	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
	if d.Pending() {
		t.Error("expected no pending window after Cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func TestBatch_Merge(t *testing.T) {
	older := Batch{Changed: []model.TrackID{"a", "b"}, Removed: []model.TrackID{"c"}}
	newer := Batch{Changed: []model.TrackID{"c"}, Removed: []model.TrackID{"b"}, IndexChanged: true}

	got := older.Merge(newer)

	if want := []model.TrackID{"a", "c"}; !slices.Equal(got.Changed, want) {
		t.Errorf("Changed = %v, want %v", got.Changed, want)
	}
	if want := []model.TrackID{"b"}; !slices.Equal(got.Removed, want) {
		t.Errorf("Removed = %v, want %v", got.Removed, want)
	}
	if !got.IndexChanged || got.Full {
		t.Errorf("flags = index:%v full:%v, want index:true full:false", got.IndexChanged, got.Full)
	}
}

func TestBatch_Empty(t *testing.T) {
	if !(Batch{}).Empty() {
		t.Error("zero batch should be empty")
	}
	if (Batch{Full: true}).Empty() {
		t.Error("full batch should not be empty")
	}
}

// newConductorDir creates root/tracks/<id>/plan.md for each id.
func newConductorDir(t *testing.T, ids ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, id := range ids {
		writeTrackFile(t, root, id, "plan.md", "# Plan\n\n- [ ] one\n")
	}
	if len(ids) == 0 {
		if err := os.MkdirAll(filepath.Join(root, "tracks"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func writeTrackFile(t *testing.T, root, id, name, content string) {
	t.Helper()
	dir := filepath.Join(root, "tracks", id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func startWatcher(t *testing.T, root string, opts ...WatcherOption) *Watcher {
	t.Helper()
	opts = append([]WatcherOption{WithDebounceDuration(50 * time.Millisecond)}, opts...)
	w, err := NewWatcher(root, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

// waitBatch receives batches until pred is satisfied or the timeout hits.
func waitBatch(t *testing.T, w *Watcher, timeout time.Duration, pred func(Batch) bool) Batch {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case b := <-w.Batches():
			if pred(b) {
				return b
			}
		case <-deadline:
			t.Fatal("timed out waiting for batch")
			return Batch{}
		}
	}
}

func TestWatcher_DetectsTrackFileChange(t *testing.T) {
	root := newConductorDir(t, "auth_20240101")
	w := startWatcher(t, root)

	time.Sleep(20 * time.Millisecond)
	writeTrackFile(t, root, "auth_20240101", "plan.md", "# Plan\n\n- [x] one\n")

	b := waitBatch(t, w, 2*time.Second, func(b Batch) bool {
		return slices.Contains(b.Changed, "auth_20240101")
	})
	if len(b.Removed) != 0 {
		t.Errorf("unexpected removals: %v", b.Removed)
	}
}

func TestWatcher_NewTrackDirectory(t *testing.T) {
	root := newConductorDir(t)
	w := startWatcher(t, root)

	time.Sleep(20 * time.Millisecond)
	writeTrackFile(t, root, "fresh_20240301", "spec.md", "# Fresh\n")

	waitBatch(t, w, 2*time.Second, func(b Batch) bool {
		return slices.Contains(b.Changed, "fresh_20240301")
	})
}

func TestWatcher_DirectoryRemoved(t *testing.T) {
	root := newConductorDir(t, "gone_20240101", "kept_20240101")
	w := startWatcher(t, root)

	time.Sleep(20 * time.Millisecond)
	if err := os.RemoveAll(filepath.Join(root, "tracks", "gone_20240101")); err != nil {
		t.Fatal(err)
	}

	b := waitBatch(t, w, 2*time.Second, func(b Batch) bool {
		return slices.Contains(b.Removed, "gone_20240101")
	})
	if slices.Contains(b.Changed, "gone_20240101") {
		t.Error("removed track must not also be reported as changed")
	}
}

func TestWatcher_IndexChange(t *testing.T) {
	root := newConductorDir(t, "a_1")
	w := startWatcher(t, root)

	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, "tracks.md"), []byte("# Tracks\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitBatch(t, w, 2*time.Second, func(b Batch) bool { return b.IndexChanged })
}

func TestWatcher_BurstProducesOneBatch(t *testing.T) {
	root := newConductorDir(t, "a_1", "b_1", "c_1")
	w := startWatcher(t, root, WithDebounceDuration(150*time.Millisecond))

	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 5; i++ {
		for _, id := range []string{"a_1", "b_1", "c_1"} {
			writeTrackFile(t, root, id, "plan.md", "# Plan\n\n- [x] one\n")
		}
	}

	b := waitBatch(t, w, 2*time.Second, func(Batch) bool { return true })
	if want := []model.TrackID{"a_1", "b_1", "c_1"}; !slices.Equal(b.Changed, want) {
		t.Errorf("Changed = %v, want %v", b.Changed, want)
	}

	select {
	case extra := <-w.Batches():
		t.Errorf("expected one batch for the burst, got another: %+v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	root := newConductorDir(t, "a_1")
	w := startWatcher(t, root)

	time.Sleep(20 * time.Millisecond)
	writeTrackFile(t, root, "a_1", "notes.txt", "scratch")
	if err := os.WriteFile(filepath.Join(root, "product.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case b := <-w.Batches():
		t.Errorf("unexpected batch: %+v", b)
	case <-time.After(250 * time.Millisecond):
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	root := newConductorDir(t, "a_1")
	w := startWatcher(t, root,
		WithForcePoll(true),
		WithPollInterval(30*time.Millisecond),
	)

	if !w.IsPolling() {
		t.Fatal("expected polling mode")
	}

	// Polling compares mtime and size; change the size to be safe.
	time.Sleep(50 * time.Millisecond)
	writeTrackFile(t, root, "a_1", "plan.md", "# Plan\n\n- [x] one\n- [ ] two\n")

	waitBatch(t, w, 2*time.Second, func(b Batch) bool {
		return slices.Contains(b.Changed, "a_1")
	})
}

func TestWatcher_PollingDetectsRemoval(t *testing.T) {
	root := newConductorDir(t, "a_1", "b_1")
	w := startWatcher(t, root,
		WithForcePoll(true),
		WithPollInterval(30*time.Millisecond),
	)

	time.Sleep(50 * time.Millisecond)
	if err := os.RemoveAll(filepath.Join(root, "tracks", "b_1")); err != nil {
		t.Fatal(err)
	}

	waitBatch(t, w, 2*time.Second, func(b Batch) bool {
		return slices.Contains(b.Removed, "b_1")
	})
}

func TestWatcher_EnvForcePolling(t *testing.T) {
	t.Setenv("CONDUCTOR_FORCE_POLL", "1")

	w := startWatcher(t, newConductorDir(t))
	if !w.IsPolling() {
		t.Fatal("expected watcher to be in polling mode when CONDUCTOR_FORCE_POLL is set")
	}
}

func TestWatcher_RemoteFilesystem_UsesPolling(t *testing.T) {
	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w := startWatcher(t, newConductorDir(t), WithPollInterval(25*time.Millisecond))

	if !w.IsPolling() {
		t.Fatal("expected watcher to use polling on remote filesystem")
	}
	if got := w.FilesystemType(); got != FSTypeNFS {
		t.Fatalf("expected filesystem type %v, got %v", FSTypeNFS, got)
	}
}

func TestWatcher_MissingRoot(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatal(err)
	}
	err = w.Start()

	var setupErr *SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("expected *SetupError, got %v", err)
	}
	if !errors.Is(err, ErrRootMissing) {
		t.Errorf("expected ErrRootMissing, got %v", err)
	}
}

func TestWatcher_RootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "conductor")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(file)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("expected ErrNotDirectory, got %v", err)
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := NewWatcher(newConductorDir(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if !w.IsStarted() {
		t.Error("expected started")
	}
	if err := w.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("expected stopped")
	}
	w.Stop()
}

func TestWatcher_Classify(t *testing.T) {
	root := newConductorDir(t, "a_1")
	w := startWatcher(t, root)
	tracks := filepath.Join(root, "tracks")

	tests := []struct {
		name  string
		path  string
		id    model.TrackID
		index bool
		full  bool
		ok    bool
	}{
		{"plan", filepath.Join(tracks, "a_1", "plan.md"), "a_1", false, false, true},
		{"metadata", filepath.Join(tracks, "a_1", "metadata.json"), "a_1", false, false, true},
		{"track dir", filepath.Join(tracks, "b_2"), "b_2", false, false, true},
		{"index", filepath.Join(root, "tracks.md"), "", true, false, true},
		{"tracks dir", tracks, "", false, true, true},
		{"other file", filepath.Join(tracks, "a_1", "notes.md"), "", false, false, false},
		{"hidden", filepath.Join(tracks, ".git"), "", false, false, false},
		{"underscore", filepath.Join(tracks, "_archive", "plan.md"), "", false, false, false},
		{"root file", filepath.Join(root, "product.md"), "", false, false, false},
		{"outside", filepath.Join(filepath.Dir(root), "x"), "", false, false, false},
		{"too deep", filepath.Join(tracks, "a_1", "sub", "plan.md"), "", false, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, index, full, ok := w.classify(tc.path)
			if id != tc.id || index != tc.index || full != tc.full || ok != tc.ok {
				t.Errorf("classify(%s) = (%q,%v,%v,%v), want (%q,%v,%v,%v)",
					tc.path, id, index, full, ok, tc.id, tc.index, tc.full, tc.ok)
			}
		})
	}
}

func TestWatcher_ClassifyLooseLayout(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a_1"), 0o755); err != nil {
		t.Fatal(err)
	}
	w := startWatcher(t, root)

	if id, _, _, ok := w.classify(filepath.Join(root, "a_1", "spec.md")); !ok || id != "a_1" {
		t.Errorf("loose track file: got (%q,%v)", id, ok)
	}
	if _, _, _, ok := w.classify(filepath.Join(root, "README.md")); ok {
		t.Error("root-level file should be ignored in loose layout")
	}
}

func TestWatcher_PollInterval(t *testing.T) {
	customInterval := 5 * time.Second
	w, err := NewWatcher(t.TempDir(), WithPollInterval(customInterval))
	if err != nil {
		t.Fatal(err)
	}
	if got := w.PollInterval(); got != customInterval {
		t.Errorf("expected poll interval %v, got %v", customInterval, got)
	}
}

func TestFilesystemType_String(t *testing.T) {
	tests := []struct {
		fsType   FilesystemType
		expected string
	}{
		{FSTypeUnknown, "unknown"},
		{FSTypeLocal, "local"},
		{FSTypeNFS, "nfs"},
		{FSTypeSMB, "smb"},
		{FSTypeSSHFS, "sshfs"},
		{FSTypeFUSE, "fuse"},
		{FilesystemType(99), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.fsType.String(); got != tc.expected {
			t.Errorf("FilesystemType(%d).String() = %q, expected %q", tc.fsType, got, tc.expected)
		}
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"y", true},
		{"on", true},
		{" on ", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"invalid", false},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("TEST_ENV_BOOL", tc.value)
			if got := envBool("TEST_ENV_BOOL"); got != tc.expected {
				t.Errorf("envBool(%q) = %v, expected %v", tc.value, got, tc.expected)
			}
		})
	}
}

func TestDetectFilesystemType_EmptyPath(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("DetectFilesystemType(\"\") = %v, expected FSTypeUnknown", got)
	}
}

func TestDetectFilesystemType_NonExistentPath(t *testing.T) {
	// Falls back to the nearest existing parent; must not panic.
	_ = DetectFilesystemType(filepath.Join(t.TempDir(), "does_not_exist"))
}

// failingAdd makes watches on directories named bad fail like an exhausted
// inotify watch limit.
func failingAdd(bad string) func(*fsnotify.Watcher, string) error {
	return func(fsw *fsnotify.Watcher, path string) error {
		if filepath.Base(path) == bad {
			return syscall.ENOSPC
		}
		return fsw.Add(path)
	}
}

func waitDegraded(t *testing.T, w *Watcher, timeout time.Duration) *DegradedError {
	t.Helper()
	select {
	case err := <-w.Errors():
		var de *DegradedError
		if !errors.As(err, &de) {
			t.Fatalf("error = %v, want *DegradedError", err)
		}
		if !errors.Is(err, syscall.ENOSPC) {
			t.Errorf("cause = %v, want ENOSPC", de.Cause)
		}
		return de
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a degraded error")
		return nil
	}
}

func TestWatcher_NewDirWatchFailureDegrades(t *testing.T) {
	root := newConductorDir(t, "a_1")
	w, err := NewWatcher(root,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(30*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	w.addWatch = failingAdd("fresh_1")
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	if w.IsPolling() {
		t.Fatal("should start on fsnotify")
	}

	time.Sleep(20 * time.Millisecond)
	writeTrackFile(t, root, "fresh_1", "plan.md", "# Plan\n\n- [ ] one\n")

	waitDegraded(t, w, 2*time.Second)
	if !w.IsPolling() {
		t.Error("expected polling after the watch failed")
	}

	// Edits inside the unwatched directory still arrive through polling.
	time.Sleep(50 * time.Millisecond)
	writeTrackFile(t, root, "fresh_1", "plan.md", "# Plan\n\n- [x] one\n- [ ] two\n")
	waitBatch(t, w, 2*time.Second, func(b Batch) bool {
		return slices.Contains(b.Changed, "fresh_1")
	})
}

func TestWatcher_StartupWatchFailureDegrades(t *testing.T) {
	root := newConductorDir(t, "a_1", "b_1")
	w, err := NewWatcher(root, WithPollInterval(30*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	w.addWatch = failingAdd("b_1")
	if err := w.Start(); err != nil {
		t.Fatalf("a watch limit is not fatal: %v", err)
	}
	t.Cleanup(w.Stop)

	if !w.IsPolling() {
		t.Fatal("expected polling when the tree could not be watched")
	}
	waitDegraded(t, w, time.Second)
}
