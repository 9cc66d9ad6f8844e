package views

import (
	"context"
	"log/slog"

	"github.com/TobiSchelling/Polarify/internal/results"
)

// Statistics is the statistical measures screen.
type Statistics struct {
	ProjectID results.ID
	Cards     []results.Measure
	Error     string
}

// LoadStatistics fetches the backend-computed measures. On failure every
// card shows 0.00.
func LoadStatistics(ctx context.Context, b Backend, id results.ID) Statistics {
	m, err := b.Measures(ctx, id)
	if err != nil {
		slog.Error("loading statistical measures", "project_id", id, "error", err)
		return Statistics{ProjectID: id, Cards: results.Measures{}.Cards(), Error: "Could not load statistical measures."}
	}
	return Statistics{ProjectID: id, Cards: m.Cards()}
}
