package safego

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not complete within timeout")
	}
}

func TestGo_RunsFunction(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	Go("test task", func() { wg.Done() })
	waitFor(t, &wg)
}

func TestGo_RecoversPanicAndLogsTask(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	prev := slog.Default()
	defer slog.SetDefault(prev)
	slog.SetDefault(slog.New(slog.NewTextHandler(lockedWriter{&mu, &buf}, nil)))

	var wg sync.WaitGroup
	wg.Add(1)
	Go("exploding task", func() {
		defer wg.Done()
		panic("intentional panic in test")
	})
	waitFor(t, &wg)

	// The deferred recover runs after wg.Done; give the log line a moment.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		out := buf.String()
		mu.Unlock()
		if strings.Contains(out, "exploding task") {
			if !strings.Contains(out, "intentional panic in test") {
				t.Errorf("log output missing panic value: %q", out)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no recovery log line appeared, output: %q", out)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
