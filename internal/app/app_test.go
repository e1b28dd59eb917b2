package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/pulse/internal/metrics"
)

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

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRunHeadlessLogsPolledUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/data":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"status":"success","success":true,"videos":[{"title":"Launch"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfgPath := writeConfig(t, fmt.Sprintf("server_url = %q\npoll_seconds = 1\n", srv.URL))
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{ConfigPath: cfgPath, Headless: true, Output: out})
	}()

	deadline := time.After(5 * time.Second)
	for !strings.Contains(out.String(), "origin=poll") {
		select {
		case err := <-done:
			t.Fatalf("Run returned early: %v\n%s", err, out.String())
		case <-deadline:
			t.Fatalf("no polled update logged:\n%s", out.String())
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	logs := out.String()
	for _, want := range []string{"pulse started", "category=success", "records=1", "pulse stopped"} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %q:\n%s", want, logs)
		}
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfgPath := writeConfig(t, "server_url = [\n")
	err := Run(context.Background(), Options{ConfigPath: cfgPath, Headless: true, Output: io.Discard})
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("Run error = %v, want load config error", err)
	}
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	cfgPath := writeConfig(t, "")
	err := Run(context.Background(), Options{ConfigPath: cfgPath, Headless: true, LogLevel: "loud", Output: io.Discard})
	if err == nil || !strings.Contains(err.Error(), "init logging") {
		t.Fatalf("Run error = %v, want init logging error", err)
	}
}

func TestMetricsMux(t *testing.T) {
	m := metrics.New()
	m.RecordUpdate("poll", 2)
	srv := httptest.NewServer(metricsMux(m))
	defer srv.Close()

	tests := []struct {
		path string
		want string
	}{
		{path: "/healthz", want: "ok"},
		{path: "/metrics", want: "pulse_"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if !strings.Contains(string(body), tt.want) {
				t.Fatalf("body missing %q:\n%s", tt.want, body)
			}
		})
	}
}

func TestIgnoreCanceled(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "canceled", in: context.Canceled, want: nil},
		{name: "wrapped canceled", in: fmt.Errorf("run: %w", context.Canceled), want: nil},
		{name: "other", in: boom, want: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ignoreCanceled(tt.in); !errors.Is(got, tt.want) && got != tt.want {
				t.Fatalf("ignoreCanceled(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
