// Package pipeline imports opinions from an external source into a project:
// collect, preview, submit for analysis and journal the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/collect"
	"github.com/TobiSchelling/Polarify/internal/database"
	"github.com/TobiSchelling/Polarify/internal/preview"
	"github.com/TobiSchelling/Polarify/internal/results"
)

// Submitter sends opinions for analysis.
type Submitter interface {
	AnalyzeRaw(ctx context.Context, w api.Window, opinions []api.Opinion) (*results.Record, error)
}

// Journal records submissions locally.
type Journal interface {
	InsertSubmission(s *database.Submission) (int64, error)
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a pipeline run.
type Result struct {
	RequestID string
	Opinions  []api.Opinion
	Preview   preview.Summary
	// Summary is the backend result; nil on dry runs and failures.
	Summary *results.Record
	Steps   []StepResult
}

// Err returns the first step error.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", s.Name, s.Err)
		}
	}
	return nil
}

// Pipeline orchestrates the import steps.
type Pipeline struct {
	submit  Submitter
	journal Journal
}

// New creates a pipeline. A nil journal skips the Journal step.
func New(submit Submitter, journal Journal) *Pipeline {
	return &Pipeline{submit: submit, journal: journal}
}

// Run executes Collect, Preview, Submit and Journal. A failed Collect stops
// the run; a failed Submit is still journaled.
func (p *Pipeline) Run(ctx context.Context, src collect.Source, w api.Window) *Result {
	r := &Result{RequestID: uuid.NewString()}
	ctx = api.WithRequestID(ctx, r.RequestID)

	step := p.runCollect(ctx, src, r)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	r.Steps = append(r.Steps, p.runPreview(r))

	step = p.runSubmit(ctx, w, r)
	r.Steps = append(r.Steps, step)

	if p.journal != nil {
		entry := Entry(r.RequestID, src.Kind(), src.URL(), w, r.Summary, step.Err)
		r.Steps = append(r.Steps, p.runJournal(entry))
	}
	return r
}

// DryRun shows what would be submitted without contacting the backend.
func (p *Pipeline) DryRun(ctx context.Context, src collect.Source) *Result {
	r := &Result{RequestID: uuid.NewString()}

	step := p.runCollect(ctx, src, r)
	step.Summary = "[dry-run] " + step.Summary
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	step = p.runPreview(r)
	step.Summary = "[dry-run] " + step.Summary
	r.Steps = append(r.Steps, step)

	r.Steps = append(r.Steps, StepResult{
		Name:    "Submit",
		Summary: fmt.Sprintf("[dry-run] Would submit %d opinions", len(r.Opinions)),
	})
	return r
}

func (p *Pipeline) runCollect(ctx context.Context, src collect.Source, r *Result) StepResult {
	slog.Info("step 1/4: collecting opinions", "source", src.Name(), "request_id", r.RequestID)
	items, err := collect.Collect(ctx, src)
	if err != nil {
		return StepResult{Name: "Collect", Err: err}
	}
	r.Opinions = collect.Opinions(items, nil)
	if len(r.Opinions) == 0 {
		return StepResult{Name: "Collect", Err: errors.New("source yielded no opinions")}
	}
	return StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Collected %d opinions from %s", len(r.Opinions), src.Name()),
	}
}

func (p *Pipeline) runPreview(r *Result) StepResult {
	slog.Info("step 2/4: estimating sentiment", "opinions", len(r.Opinions))
	r.Preview = preview.Opinions(r.Opinions)
	d := r.Preview.Distribution
	return StepResult{
		Name: "Preview",
		Summary: fmt.Sprintf("Estimated mean %s (%d positive, %d neutral, %d negative)",
			results.FormatScore(r.Preview.Mean), d.Positive, d.Neutral, d.Negative),
	}
}

func (p *Pipeline) runSubmit(ctx context.Context, w api.Window, r *Result) StepResult {
	slog.Info("step 3/4: submitting for analysis", "project_id", w.ProjectID, "request_id", r.RequestID)
	summary, err := p.submit.AnalyzeRaw(ctx, w, r.Opinions)
	if err != nil {
		return StepResult{Name: "Submit", Err: err}
	}
	r.Summary = summary
	return StepResult{
		Name: "Submit",
		Summary: fmt.Sprintf("Analyzed %d opinions, average %s",
			summary.OpinionsCount.Int(), results.FormatScore(summary.AvgSentiment.Float())),
	}
}

func (p *Pipeline) runJournal(entry *database.Submission) StepResult {
	slog.Info("step 4/4: journaling submission", "request_id", entry.RequestID)
	id, err := p.journal.InsertSubmission(entry)
	if err != nil {
		return StepResult{Name: "Journal", Err: fmt.Errorf("journaling submission: %w", err)}
	}
	return StepResult{Name: "Journal", Summary: fmt.Sprintf("Journal entry #%d", id)}
}

// Entry builds a journal row from a submission outcome. summary may be nil
// when the submission failed.
func Entry(requestID, kind, origin string, w api.Window, summary *results.Record, submitErr error) *database.Submission {
	s := &database.Submission{
		RequestID: requestID,
		ProjectID: w.ProjectID.String(),
		Source:    kind,
		Origin:    optional(origin),
		DateFrom:  optional(w.DateFrom),
		DateTo:    optional(w.DateTo),
	}
	if summary != nil {
		s.OpinionsCount = summary.OpinionsCount.Int()
		s.AvgSentiment = summary.AvgSentiment.Float()
		s.PositiveCount = summary.PositiveCount.Int()
		s.NeutralCount = summary.NeutralCount.Int()
		s.NegativeCount = summary.NegativeCount.Int()
	}
	if submitErr != nil {
		msg := submitErr.Error()
		s.Error = &msg
	}
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
