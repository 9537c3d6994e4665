package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_SingleEventPassesThrough(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "main.go", Operation: OpCreate, Timestamp: time.Now()})

	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, "main.go", events[0].Path)
		assert.Equal(t, OpCreate, events[0].Operation)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_RapidModifiesCoalesce(t *testing.T) {
	d := NewDebouncer(100 * time.Millisecond)
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "a.py", Operation: OpModify, Timestamp: time.Now()})
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, OpModify, events[0].Operation)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced events")
	}
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "tmp.ts", Operation: OpCreate, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "tmp.ts", Operation: OpDelete, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "keep.ts", Operation: OpModify, Timestamp: time.Now()})

	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, "keep.ts", events[0].Path)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced events")
	}
}

func TestDebouncer_DeleteThenCreateBecomesModify(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "swap.go", Operation: OpDelete, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "swap.go", Operation: OpCreate, Timestamp: time.Now()})

	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, OpModify, events[0].Operation)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced events")
	}
}

func TestDebouncer_CreateThenModifyStaysCreate(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "new.go", Operation: OpCreate, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "new.go", Operation: OpModify, Timestamp: time.Now()})

	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, OpCreate, events[0].Operation)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced events")
	}
}

func TestChangeList(t *testing.T) {
	events := []FileEvent{
		{Path: "src/app.ts", Operation: OpModify},
		{Path: "src/new.ts", Operation: OpCreate},
		{Path: "old.py", Operation: OpDelete},
		{Path: "dir", Operation: OpCreate, IsDir: true},
		{Path: ".gitignore", Operation: OpGitignoreChange},
	}

	assert.Equal(t, "A:src/new.ts,D:old.py,M:src/app.ts", ChangeList(events))
}

func TestChangeList_RenameWithOldPath(t *testing.T) {
	events := []FileEvent{
		{Path: "src/after.ts", OldPath: "src/before.ts", Operation: OpRename},
	}

	assert.Equal(t, "A:src/after.ts,D:src/before.ts", ChangeList(events))
}

func TestChangeList_Empty(t *testing.T) {
	assert.Equal(t, "", ChangeList(nil))
	assert.Equal(t, "", ChangeList([]FileEvent{{Path: "d", IsDir: true, Operation: OpCreate}}))
}

func TestPollingWatcher_DetectsCreateModifyDelete(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))

	p := NewPollingWatcher(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = p.Start(ctx, root)
		close(done)
	}()

	// Give the baseline scan time to complete.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package b\n"), 0o644))

	var created bool
	deadline := time.After(3 * time.Second)
	for !created {
		select {
		case ev := <-p.Events():
			if ev.Path == "b.go" && ev.Operation == OpCreate {
				created = true
			}
		case <-deadline:
			t.Fatal("timeout waiting for create event")
		}
	}

	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))

	var deleted bool
	deadline = time.After(3 * time.Second)
	for !deleted {
		select {
		case ev := <-p.Events():
			if ev.Path == "a.go" && ev.Operation == OpDelete {
				deleted = true
			}
		case <-deadline:
			t.Fatal("timeout waiting for delete event")
		}
	}

	cancel()
	<-done
}

func TestHybridWatcher_IgnoresGitAndIgnoredPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("dist/\n"), 0o644))

	h, err := NewHybridWatcher(Options{IgnorePatterns: []string{"*.log"}})
	require.NoError(t, err)
	defer func() { _ = h.Stop() }()
	h.rootPath = root
	h.loadGitignore()

	assert.True(t, h.shouldIgnore(".git/HEAD", false))
	assert.True(t, h.shouldIgnore("dist/bundle.js", false))
	assert.True(t, h.shouldIgnore("debug.log", false))
	assert.False(t, h.shouldIgnore("src/app.ts", false))
}

func TestHybridWatcher_ClassifySpecial(t *testing.T) {
	h, err := NewHybridWatcher(DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = h.Stop() }()
	h.rootPath = t.TempDir()

	op, ok := h.classifySpecial("sub/.gitignore")
	assert.True(t, ok)
	assert.Equal(t, OpGitignoreChange, op)

	op, ok = h.classifySpecial("repograph.yaml")
	assert.True(t, ok)
	assert.Equal(t, OpConfigChange, op)

	_, ok = h.classifySpecial("src/main.go")
	assert.False(t, ok)
}
