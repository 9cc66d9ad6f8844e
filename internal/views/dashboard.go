package views

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/Polarify/internal/api"
)

// Dashboard is the signed-in landing screen.
type Dashboard struct {
	User         *api.User
	ProjectCount int
	Error        string
}

// LoadDashboard fetches the user and the project list in parallel.
func LoadDashboard(ctx context.Context, b Backend) Dashboard {
	var (
		user     *api.User
		projects []api.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = b.Me(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = b.Projects(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("dashboard load failed", "error", err)
		return Dashboard{Error: "Dashboard load failed."}
	}
	return Dashboard{User: user, ProjectCount: len(projects)}
}
