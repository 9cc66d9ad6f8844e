package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/collect"
	"github.com/TobiSchelling/Polarify/internal/config"
	"github.com/TobiSchelling/Polarify/internal/pipeline"
)

type recordingRunner struct {
	mu      sync.Mutex
	windows []api.Window
	kinds   []string
}

func (r *recordingRunner) Run(_ context.Context, src collect.Source, w api.Window) *pipeline.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, w)
	r.kinds = append(r.kinds, src.Kind())
	return &pipeline.Result{RequestID: "req"}
}

func TestRegisterRejectsInvalidCron(t *testing.T) {
	s := New(time.UTC)
	schedules := []config.Schedule{
		{Name: "ok", Cron: "0 7 * * *", ProjectID: "1", Feed: "https://example.com/rss"},
		{Name: "bad", Cron: "every morning", ProjectID: "1", Feed: "https://example.com/rss"},
	}
	if err := Register(context.Background(), s, schedules, &recordingRunner{}, collect.Options{}); err == nil {
		t.Fatal("expected error for invalid cron")
	}
	if len(s.Jobs()) != 0 {
		t.Error("expected no job to be registered")
	}
}

func TestRegisterAndTrigger(t *testing.T) {
	s := New(time.UTC)
	runner := &recordingRunner{}
	schedules := []config.Schedule{
		{Name: "reviews", Cron: "0 7 * * *", ProjectID: "4", Feed: "https://example.com/rss", Days: 7},
		{Cron: "@hourly", ProjectID: "5", URL: "https://example.com/page"},
	}
	if err := Register(context.Background(), s, schedules, runner, collect.Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jobs := s.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %v", jobs)
	}
	if _, ok := jobs["https://example.com/page"]; !ok {
		t.Errorf("expected unnamed job to be keyed by its URL, got %v", jobs)
	}

	if err := s.Trigger("reviews"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Trigger("https://example.com/page"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.windows) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runner.windows))
	}
	if runner.windows[0].ProjectID != "4" || runner.kinds[0] != "feed" || runner.kinds[1] != "page" {
		t.Errorf("unexpected runs %+v %v", runner.windows, runner.kinds)
	}

	if err := s.Trigger("missing"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestAddReplacesJob(t *testing.T) {
	s := New(nil)
	calls := 0
	if err := s.Add("a", "@daily", func() { calls = 1 }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Add("a", "@hourly", func() { calls = 2 }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Jobs()) != 1 {
		t.Errorf("expected replacement, got %v", s.Jobs())
	}
	s.Trigger("a")
	if calls != 2 {
		t.Errorf("expected the new task to run, got %d", calls)
	}
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)
	w := Window(config.Schedule{ProjectID: "2", Days: 7}, now)
	if w.DateFrom != "2024-03-04" || w.DateTo != "2024-03-10" || w.ProjectID != "2" {
		t.Errorf("unexpected window %+v", w)
	}
	w = Window(config.Schedule{}, now)
	if w.DateFrom != "2024-03-10" || w.DateTo != "2024-03-10" {
		t.Errorf("expected single-day window, got %+v", w)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
