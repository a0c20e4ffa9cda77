package follower

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ceyeborg/virusradar/internal/logger"
)

// syncBuffer is a goroutine-safe writer for follower output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

func waitForOutput(t *testing.T, buf *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %q in follower output, got: %q", want, buf.String())
}

func TestFollower_ForwardsAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cron.log")
	if err := os.WriteFile(path, []byte("old line\n"), 0644); err != nil {
		t.Fatalf("Failed to write log file: %v", err)
	}

	buf := &syncBuffer{}
	f, err := New(Config{PollInterval: 5 * time.Millisecond, Output: buf}, testLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.Start(ctx, path); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	appendLine(t, path, "new line one\n")
	appendLine(t, path, "new line two\n")

	waitForOutput(t, buf, "new line one")
	waitForOutput(t, buf, "new line two")

	// Lines before Start must not be replayed by default
	if strings.Contains(buf.String(), "old line") {
		t.Errorf("Follower replayed pre-existing content: %q", buf.String())
	}
}

func TestFollower_FromStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cron.log")
	if err := os.WriteFile(path, []byte("historic entry\n"), 0644); err != nil {
		t.Fatalf("Failed to write log file: %v", err)
	}

	buf := &syncBuffer{}
	f, err := New(Config{PollInterval: 5 * time.Millisecond, FromStart: true, Output: buf}, testLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.Start(ctx, path); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitForOutput(t, buf, "historic entry")
}

func TestFollower_FilterPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cron.log")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to write log file: %v", err)
	}

	buf := &syncBuffer{}
	f, err := New(Config{
		PollInterval:  5 * time.Millisecond,
		FilterPattern: `(?i)error`,
		Output:        buf,
	}, testLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.Start(ctx, path); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	appendLine(t, path, "routine run completed\n")
	appendLine(t, path, "update ERROR: fetch failed\n")

	waitForOutput(t, buf, "ERROR")

	if strings.Contains(buf.String(), "routine run completed") {
		t.Errorf("Filter passed a non-matching line: %q", buf.String())
	}
}

func TestFollower_InvalidFilterPattern(t *testing.T) {
	_, err := New(Config{FilterPattern: "("}, testLogger(t))
	if err == nil {
		t.Fatal("New() expected error for invalid filter pattern")
	}
}

func TestFollower_MissingFile(t *testing.T) {
	f, err := New(Config{}, testLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = f.Start(context.Background(), filepath.Join(t.TempDir(), "absent.log"))
	if err == nil {
		t.Fatal("Start() expected error for missing file")
	}
}

func TestFollower_Truncation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cron.log")
	// Initial content is longer than the replacement so the size drop is
	// always observable regardless of poll timing.
	initial := strings.Repeat("scheduled run line\n", 10)
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("Failed to write log file: %v", err)
	}

	buf := &syncBuffer{}
	f, err := New(Config{PollInterval: 5 * time.Millisecond, Output: buf}, testLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.Start(ctx, path); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Truncate and write fresh content
	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(path, []byte("after truncate\n"), 0644); err != nil {
		t.Fatalf("Failed to truncate log file: %v", err)
	}

	waitForOutput(t, buf, "after truncate")
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("Failed to open log file for append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		t.Fatalf("Failed to append to log file: %v", err)
	}
}
