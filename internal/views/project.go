package views

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/results"
)

// FirstYear is the oldest year offered by the year filter.
const FirstYear = 2020

// AvailableYears lists the selectable years, newest first.
func AvailableYears() []int {
	current := now().Year()
	if current < FirstYear {
		return []int{}
	}
	years := make([]int, 0, current-FirstYear+1)
	for y := current; y >= FirstYear; y-- {
		years = append(years, y)
	}
	return years
}

// DetailQuery is the user's filter state on the project detail screen.
type DetailQuery struct {
	Year     string
	Bucket   results.Bucket
	Page     int
	PageSize int
}

// ParseDetailQuery reads query parameters leniently: an unknown bucket means
// all, a bad page number means page 1.
func ParseDetailQuery(year, bucket, page string, pageSize int) DetailQuery {
	q := DetailQuery{Year: year, Bucket: results.All, Page: 1, PageSize: pageSize}
	if b, err := results.ParseBucket(bucket); err == nil {
		q.Bucket = b
	}
	if n, err := strconv.Atoi(page); err == nil && n > 0 {
		q.Page = n
	}
	return q
}

// ProjectDetail is the project detail screen.
type ProjectDetail struct {
	Project *api.Project
	Query   DetailQuery
	Years   []int

	// Page holds the filtered, sorted records for the requested page.
	Page results.Page
	// Filtered is the number of records left after the year and bucket filters.
	Filtered int

	WeightedAverage float64
	SimpleAverage   float64
	Bucket          results.Bucket
	Distribution    results.Distribution

	Error string
}

// LoadProject fetches the project and its results in parallel, then filters
// by year and bucket, sorts by recency and paginates. The headline score and
// the distribution cover the filtered set.
func LoadProject(ctx context.Context, b Backend, id results.ID, q DetailQuery) ProjectDetail {
	d := ProjectDetail{Query: q, Years: AvailableYears()}

	var (
		project *api.Project
		records []results.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		project, err = b.Project(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = b.Results(gctx, id, q.Year)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("loading project", "project_id", id, "error", err)
		d.Error = api.Message(err, "Could not load project.")
		d.Page = results.Paginate(nil, q.PageSize, 1)
		d.Bucket = results.Neutral
		return d
	}

	filtered := results.FilterByYear(records, q.Year)
	filtered = results.FilterByScoreBucket(filtered, q.Bucket)
	sorted := results.SortByRecency(filtered)

	d.Project = project
	d.Filtered = len(sorted)
	d.Page = results.Paginate(sorted, q.PageSize, q.Page)
	d.WeightedAverage = results.WeightedAverage(sorted)
	d.SimpleAverage = results.SimpleAverage(sorted)
	d.Bucket = results.Classify(d.WeightedAverage)
	d.Distribution = results.SummarizeCounts(sorted)
	return d
}
