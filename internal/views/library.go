package views

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/results"
)

// MaxEnrichment bounds the concurrent per-project result fetches.
const MaxEnrichment = 8

// ProjectCard is a library entry with its global score.
type ProjectCard struct {
	api.Project
	// Score is the unweighted mean of the project's run averages; nil when
	// the project has no runs or its results could not be fetched.
	Score *float64
}

// Bucket classifies the card score; cards without a score are neutral.
func (c ProjectCard) Bucket() results.Bucket {
	if c.Score == nil {
		return results.Neutral
	}
	return results.Classify(*c.Score)
}

// BarPercent is the score bar width, |score| as a percentage capped at 100.
func (c ProjectCard) BarPercent() float64 {
	if c.Score == nil {
		return 0
	}
	return math.Min(math.Abs(*c.Score)*100, 100)
}

// Library is the project library screen.
type Library struct {
	Projects []ProjectCard
	Error    string
}

// LoadLibrary lists projects and enriches each with its global score. The
// per-project fetches run concurrently; one failing leaves only that card
// without a score.
func LoadLibrary(ctx context.Context, b Backend) Library {
	projects, err := b.Projects(ctx)
	if err != nil {
		slog.Error("loading project library", "error", err)
		return Library{Projects: []ProjectCard{}, Error: "Failed to synchronize project library."}
	}

	cards := make([]ProjectCard, len(projects))
	var g errgroup.Group
	g.SetLimit(MaxEnrichment)
	for i, p := range projects {
		cards[i] = ProjectCard{Project: p}
		g.Go(func() error {
			records, err := b.Results(ctx, p.ID, "")
			if err != nil {
				slog.Warn("project enrichment failed", "project_id", p.ID, "error", err)
				return nil
			}
			if len(records) == 0 {
				return nil
			}
			score := results.SimpleAverage(records)
			cards[i].Score = &score
			return nil
		})
	}
	g.Wait()

	return Library{Projects: cards}
}

// CreateProject creates a project. The name must not be blank.
func CreateProject(ctx context.Context, b Backend, name, description string) (*api.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("Project name is required.")
	}
	desc := strings.TrimSpace(description)
	p, err := b.CreateProject(ctx, api.ProjectInput{Name: name, Description: &desc})
	if err != nil {
		slog.Error("creating project", "name", name, "error", err)
		return nil, backendFailure(err, "Error creating project.")
	}
	slog.Info("project created", "project_id", p.ID, "name", p.Name)
	return p, nil
}

// UpdateProject renames a project and replaces its description.
func UpdateProject(ctx context.Context, b Backend, id results.ID, name, description string) (*api.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("Project name is required.")
	}
	desc := strings.TrimSpace(description)
	p, err := b.UpdateProject(ctx, id, api.ProjectInput{Name: name, Description: &desc})
	if err != nil {
		slog.Error("updating project", "project_id", id, "error", err)
		return nil, backendFailure(err, "Failed to update project.")
	}
	return p, nil
}

// DeleteProject deletes a project.
func DeleteProject(ctx context.Context, b Backend, id results.ID) error {
	if err := b.DeleteProject(ctx, id); err != nil {
		slog.Error("deleting project", "project_id", id, "error", err)
		return backendFailure(err, "Failed to delete project.")
	}
	slog.Info("project deleted", "project_id", id)
	return nil
}
