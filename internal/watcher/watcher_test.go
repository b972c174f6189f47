package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type capture struct {
	mu    sync.Mutex
	calls []struct{ session, path string }
}

func (c *capture) ingest(sessionID, path string) {
	c.mu.Lock()
	c.calls = append(c.calls, struct{ session, path string }{sessionID, path})
	c.mu.Unlock()
}

func (c *capture) snapshot() []struct{ session, path string } {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]struct{ session, path string }(nil), c.calls...)
}

func TestWatcher_IngestsDroppedFileWithSessionID(t *testing.T) {
	dir := t.TempDir()
	if err := mkdirAll(filepath.Join(dir, "hackathon")); err != nil {
		t.Fatal(err)
	}

	var c capture
	w := New([]string{dir}, []string{".txt"}, true, c.ingest, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "hackathon", "brochure.txt"), "details"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)

	calls := c.snapshot()
	if len(calls) < 1 {
		t.Fatalf("expected at least one ingest call, got %d", len(calls))
	}
	if calls[0].session != "hackathon" {
		t.Errorf("session = %q, want %q", calls[0].session, "hackathon")
	}
	if !strings.HasSuffix(calls[0].path, "brochure.txt") {
		t.Errorf("path = %q", calls[0].path)
	}
}

func TestWatcher_IgnoresFilesDirectlyInRoot(t *testing.T) {
	dir := t.TempDir()

	var c capture
	w := New([]string{dir}, nil, true, c.ingest, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "stray.txt"), "no session"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if calls := c.snapshot(); len(calls) != 0 {
		t.Errorf("expected no ingest calls for root-level file, got %v", calls)
	}
}

func TestWatcher_NewSessionDirectoryPickedUp(t *testing.T) {
	dir := t.TempDir()

	var c capture
	w := New([]string{dir}, []string{".txt", ".md"}, true, c.ingest, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Simulate dropping a whole session folder into the watched directory.
	session := filepath.Join(dir, "techfest")
	if err := mkdirAll(session); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(session, "rules.txt"), "rules"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(session, "schedule.md"), "schedule"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(session, "ignore.xyz"), "skip"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(600 * time.Millisecond)

	calls := c.snapshot()
	rulesFound, scheduleFound := false, false
	for _, call := range calls {
		if call.session != "techfest" {
			t.Errorf("session = %q, want %q", call.session, "techfest")
		}
		if strings.HasSuffix(call.path, "rules.txt") {
			rulesFound = true
		}
		if strings.HasSuffix(call.path, "schedule.md") {
			scheduleFound = true
		}
		if strings.HasSuffix(call.path, "ignore.xyz") {
			t.Errorf("ignore.xyz should not be ingested")
		}
	}
	if !rulesFound || !scheduleFound {
		t.Errorf("expected rules.txt and schedule.md to be ingested, got %v", calls)
	}
}

func TestWatcher_SyncExisting(t *testing.T) {
	dir := t.TempDir()
	if err := mkdirAll(filepath.Join(dir, "expo")); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "expo", "old.txt"), "present before start"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "expo", "skip.bin"), "x"); err != nil {
		t.Fatal(err)
	}

	var c capture
	w := New([]string{dir}, []string{".txt"}, true, c.ingest, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExisting()
	time.Sleep(300 * time.Millisecond)

	calls := c.snapshot()
	if len(calls) != 1 || !strings.HasSuffix(calls[0].path, "old.txt") {
		t.Errorf("expected one ingest of old.txt, got %v", calls)
	}
	if len(calls) == 1 && calls[0].session != "expo" {
		t.Errorf("session = %q, want %q", calls[0].session, "expo")
	}
}

func TestWatcher_Start_createsMissingRoot(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "drops", "inbox")

	w := New([]string{root}, nil, true, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestSessionFor(t *testing.T) {
	w := New([]string{"/drops"}, nil, true, nil)
	tests := []struct {
		path string
		want string
	}{
		{"/drops/evt1/a.txt", "evt1"},
		{"/drops/evt1/sub/b.txt", "evt1"},
		{"/drops/a.txt", ""},
		{"/elsewhere/evt1/a.txt", ""},
	}
	for _, tt := range tests {
		if got := w.sessionFor(tt.path); got != tt.want {
			t.Errorf("sessionFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
