package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parallax-labs/graphrag/pkg/config"
	"github.com/parallax-labs/graphrag/pkg/safequery"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	mu       sync.Mutex
	calls    []execCall
	failNext int
	records  []Record
	closed   bool
}

func (f *fakeExecer) Exec(ctx context.Context, sql string, args []any) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.failNext > 0 {
		f.failNext--
		return nil, errors.New("connection reset")
	}
	return f.records, nil
}

func (f *fakeExecer) Ping(ctx context.Context) error { return nil }

func (f *fakeExecer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeExecer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Enabled = true
	cfg.RetryDelay = 0
	return cfg
}

func fakeDialer(exec Execer) Dialer {
	return func(ctx context.Context, cfg config.Config) (Execer, error) {
		return exec, nil
	}
}

func TestExecuteTemplateUnknownName(t *testing.T) {
	dials := 0
	conn := NewConnector(testConfig(), WithDialer(func(ctx context.Context, cfg config.Config) (Execer, error) {
		dials++
		return &fakeExecer{}, nil
	}))

	_, err := conn.ExecuteTemplate(context.Background(), "DROP_DATABASE", nil)
	if !errors.Is(err, safequery.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if dials != 0 {
		t.Fatalf("rejected template must not dial the store, got %d dials", dials)
	}
}

func TestExecuteTemplateDriverUnavailable(t *testing.T) {
	conn := NewConnector(testConfig(), WithDialer(func(ctx context.Context, cfg config.Config) (Execer, error) {
		return nil, errors.New("host unreachable")
	}))

	_, err := conn.ExecuteTemplate(context.Background(), "check_health", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestExecuteTemplateClampsLimit(t *testing.T) {
	exec := &fakeExecer{}
	conn := NewConnector(testConfig(), WithDialer(fakeDialer(exec)))

	_, err := conn.ExecuteTemplate(context.Background(), "get_entities_by_doc", map[string]any{
		"doc_id": "ADR-001",
		"limit":  5000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.callCount() != 1 {
		t.Fatalf("expected 1 query, got %d", exec.callCount())
	}
	args := exec.calls[0].args
	if len(args) != 2 || args[1] != 100 {
		t.Fatalf("expected clamped limit 100 in args, got %v", args)
	}
}

func TestExecuteTemplateRetriesTransientFailures(t *testing.T) {
	exec := &fakeExecer{
		failNext: 2,
		records:  []Record{{"health": 1}},
	}
	conn := NewConnector(testConfig(), WithDialer(fakeDialer(exec)))

	records, err := conn.ExecuteTemplate(context.Background(), "check_health", nil)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if exec.callCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", exec.callCount())
	}
}

func TestExecuteTemplateExhaustsRetries(t *testing.T) {
	exec := &fakeExecer{failNext: 100}
	conn := NewConnector(testConfig(), WithDialer(fakeDialer(exec)))

	_, err := conn.ExecuteTemplate(context.Background(), "check_health", nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if exec.callCount() != 3 {
		t.Fatalf("expected exactly max_retries=3 attempts, got %d", exec.callCount())
	}
}

func TestIsHealthyThrottlesProbes(t *testing.T) {
	exec := &fakeExecer{records: []Record{{"health": 1}}}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	conn := NewConnector(testConfig(), WithDialer(fakeDialer(exec)), WithClock(clock))

	if !conn.IsHealthy(context.Background()) {
		t.Fatal("expected healthy store")
	}
	if exec.callCount() != 1 {
		t.Fatalf("expected 1 probe, got %d", exec.callCount())
	}

	// Inside the throttle window: cached result, no extra probe.
	now = now.Add(10 * time.Second)
	if !conn.IsHealthy(context.Background()) {
		t.Fatal("expected cached healthy result")
	}
	if exec.callCount() != 1 {
		t.Fatalf("expected cached result without probe, got %d probes", exec.callCount())
	}

	// Past the window: a fresh probe runs.
	now = now.Add(time.Minute)
	conn.IsHealthy(context.Background())
	if exec.callCount() != 2 {
		t.Fatalf("expected second probe after interval, got %d", exec.callCount())
	}
}

func TestIsHealthyCachesFailure(t *testing.T) {
	exec := &fakeExecer{failNext: 100}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	conn := NewConnector(testConfig(), WithDialer(fakeDialer(exec)), WithClock(func() time.Time { return now }))

	if conn.IsHealthy(context.Background()) {
		t.Fatal("expected unhealthy store")
	}
	probes := exec.callCount()

	now = now.Add(time.Second)
	if conn.IsHealthy(context.Background()) {
		t.Fatal("expected cached unhealthy result")
	}
	if exec.callCount() != probes {
		t.Fatal("failure result must be cached inside the window")
	}
}

func TestAvailableChecksFlagFirst(t *testing.T) {
	dials := 0
	cfg := testConfig()
	cfg.Enabled = false
	conn := NewConnector(cfg, WithDialer(func(ctx context.Context, cfg config.Config) (Execer, error) {
		dials++
		return &fakeExecer{}, nil
	}))

	if conn.Available(context.Background()) {
		t.Fatal("disabled feature must report unavailable")
	}
	if dials != 0 {
		t.Fatalf("disabled feature must never probe the store, got %d dials", dials)
	}
}

func TestCloseReleasesDriver(t *testing.T) {
	exec := &fakeExecer{records: []Record{{"health": 1}}}
	conn := NewConnector(testConfig(), WithDialer(fakeDialer(exec)))

	if _, err := conn.ExecuteTemplate(context.Background(), "check_health", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conn.Close()
	if !exec.closed {
		t.Fatal("expected underlying driver to be closed")
	}

	// The connector re-dials on next use.
	if _, err := conn.ExecuteTemplate(context.Background(), "check_health", nil); err != nil {
		t.Fatalf("expected re-dial after close, got %v", err)
	}
}

func TestExecuteTemplateQueryTextComesFromRegistry(t *testing.T) {
	exec := &fakeExecer{}
	conn := NewConnector(testConfig(), WithDialer(fakeDialer(exec)))

	_, err := conn.ExecuteTemplate(context.Background(), "merge_entity", map[string]any{
		"name":       "ADR-001",
		"type":       "Document",
		"properties": map[string]any{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(exec.calls[0].sql, "ON CONFLICT (name, type)") {
		t.Fatalf("expected registry SQL, got %q", exec.calls[0].sql)
	}
}
