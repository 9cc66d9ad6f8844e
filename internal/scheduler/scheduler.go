// Package scheduler runs configured imports on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/collect"
	"github.com/TobiSchelling/Polarify/internal/config"
	"github.com/TobiSchelling/Polarify/internal/pipeline"
	"github.com/TobiSchelling/Polarify/internal/results"
)

// Runner executes one import.
type Runner interface {
	Run(ctx context.Context, src collect.Source, w api.Window) *pipeline.Result
}

var _ Runner = (*pipeline.Pipeline)(nil)

// Scheduler manages cron entries keyed by job name.
type Scheduler struct {
	cron     *cron.Cron
	mu       sync.Mutex
	entries  map[string]cron.EntryID
	tasks    map[string]func()
	location *time.Location
}

// New creates a Scheduler in the given location. A nil location uses local
// time.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		entries:  make(map[string]cron.EntryID),
		tasks:    make(map[string]func()),
		location: loc,
	}
}

// Add registers task under name. A job with the same name is replaced.
func (s *Scheduler) Add(name, spec string, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}

	id, err := s.cron.AddFunc(spec, task)
	if err != nil {
		return fmt.Errorf("scheduling %q with %q: %w", name, spec, err)
	}
	s.entries[name] = id
	s.tasks[name] = task
	slog.Info("job scheduled", "job", name, "cron", spec, "timezone", s.location.String())
	return nil
}

// Jobs returns the registered job names and their next run times.
func (s *Scheduler) Jobs() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.entries))
	for name, id := range s.entries {
		out[name] = s.cron.Entry(id).Next
	}
	return out
}

// Trigger runs a job immediately, on the calling goroutine.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	task, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no job named %q", name)
	}
	task()
	return nil
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.Start()
	<-ctx.Done()
	slog.Info("stopping scheduler")
	s.Stop()
}

// Register adds one job per configured schedule. Every cron expression is
// validated before any job is added.
func Register(ctx context.Context, s *Scheduler, schedules []config.Schedule, runner Runner, opts collect.Options) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for _, sc := range schedules {
		if _, err := parser.Parse(sc.Cron); err != nil {
			return fmt.Errorf("schedule %q: invalid cron %q: %w", jobName(sc), sc.Cron, err)
		}
	}

	for _, sc := range schedules {
		name := jobName(sc)
		if err := s.Add(name, sc.Cron, func() { runSchedule(ctx, sc, runner, opts, time.Now()) }); err != nil {
			return err
		}
	}
	return nil
}

func runSchedule(ctx context.Context, sc config.Schedule, runner Runner, opts collect.Options, now time.Time) {
	name := jobName(sc)
	opts.Since = now.AddDate(0, 0, -days(sc))
	src, err := collect.New(sc.Feed, sc.URL, opts)
	if err != nil {
		slog.Error("scheduled import misconfigured", "job", name, "error", err)
		return
	}

	slog.Info("scheduled import starting", "job", name, "project_id", sc.ProjectID)
	r := runner.Run(ctx, src, Window(sc, now))
	if err := r.Err(); err != nil {
		slog.Error("scheduled import failed", "job", name, "request_id", r.RequestID, "error", err)
		return
	}
	slog.Info("scheduled import complete", "job", name, "request_id", r.RequestID, "opinions", len(r.Opinions))
}

// Window is the analysis period of a scheduled run: the last Days days up to
// and including the run date.
func Window(sc config.Schedule, now time.Time) api.Window {
	return api.Window{
		ProjectID: results.ID(sc.ProjectID),
		DateFrom:  now.AddDate(0, 0, -(days(sc) - 1)).Format("2006-01-02"),
		DateTo:    now.Format("2006-01-02"),
	}
}

func days(sc config.Schedule) int {
	if sc.Days < 1 {
		return 1
	}
	return sc.Days
}

func jobName(sc config.Schedule) string {
	if sc.Name != "" {
		return sc.Name
	}
	if sc.Feed != "" {
		return sc.Feed
	}
	return sc.URL
}
