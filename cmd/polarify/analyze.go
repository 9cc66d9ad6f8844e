package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/collect"
	"github.com/TobiSchelling/Polarify/internal/pipeline"
	"github.com/TobiSchelling/Polarify/internal/preview"
	"github.com/TobiSchelling/Polarify/internal/results"
	"github.com/TobiSchelling/Polarify/internal/views"
)

var (
	analyzeProject  string
	analyzeFrom     string
	analyzeTo       string
	analyzeFile     string
	analyzeDryRun   bool
	analyzeMaxItems int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Submit opinions for sentiment analysis",
}

var analyzeRawCmd = &cobra.Command{
	Use:   "raw [TEXT...]",
	Short: "Analyze opinions given as arguments or one per line in --file",
	RunE: func(cmd *cobra.Command, args []string) error {
		texts := args
		if analyzeFile != "" {
			lines, err := readLines(analyzeFile)
			if err != nil {
				return err
			}
			texts = append(texts, lines...)
		}

		seq := &api.Sequence{}
		opinions := make([]api.Opinion, 0, len(texts))
		for _, t := range texts {
			opinions = append(opinions, api.Opinion{ID: seq.Next(), Content: t})
		}
		form := views.RestoreRawForm(window(analyzeProject, analyzeFrom, analyzeTo), opinions, 0)
		if err := form.Validate(); err != nil {
			return err
		}

		if analyzeDryRun {
			printPreview(preview.Opinions(form.Opinions))
			return nil
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		ctx, requestID := withRequestID(cmd.Context())
		summary, err := form.Submit(ctx, a.client)
		journal(a, requestID, "raw", "", form.Window, summary, err)
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	},
}

var analyzeCSVCmd = &cobra.Command{
	Use:   "csv FILE",
	Short: "Upload a CSV file of opinions for analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		w := window(analyzeProject, analyzeFrom, analyzeTo)
		if err := views.CheckCSVFile(path, mime.TypeByExtension(filepath.Ext(path))); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		ctx, requestID := withRequestID(cmd.Context())
		name := filepath.Base(path)
		summary, err := views.SubmitCSV(ctx, a.client, w, &views.CSVFile{Name: name, ContentType: "text/csv", Body: f})
		journal(a, requestID, "csv", name, w, summary, err)
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	},
}

var analyzeFeedCmd = &cobra.Command{
	Use:   "feed URL",
	Short: "Import the items of an RSS or Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), args[0], "")
	},
}

var analyzeURLCmd = &cobra.Command{
	Use:   "url URL",
	Short: "Import the paragraphs of a web page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), "", args[0])
	},
}

func runImport(ctx context.Context, feedURL, pageURL string) error {
	opts := collect.OptionsFromConfig(cfg.Sources)
	if analyzeMaxItems > 0 {
		opts.MaxItems = analyzeMaxItems
	}
	src, err := collect.New(feedURL, pageURL, opts)
	if err != nil {
		return err
	}
	w := window(analyzeProject, analyzeFrom, analyzeTo)

	var result *pipeline.Result
	if analyzeDryRun {
		result = pipeline.New(nil, nil).DryRun(ctx, src)
	} else {
		if w.ProjectID == "" {
			return fmt.Errorf("--project is required")
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}
		result = pipeline.New(a.client, a.db).Run(ctx, src, w)
	}

	printSteps(result)
	if analyzeDryRun && result.Err() == nil {
		printPreview(result.Preview)
	}
	return result.Err()
}

func init() {
	for _, c := range []*cobra.Command{analyzeRawCmd, analyzeCSVCmd, analyzeFeedCmd, analyzeURLCmd} {
		c.Flags().StringVarP(&analyzeProject, "project", "p", "", "Target project ID")
		c.Flags().StringVar(&analyzeFrom, "from", "", "Start of the analysis window (YYYY-MM-DD)")
		c.Flags().StringVar(&analyzeTo, "to", "", "End of the analysis window (YYYY-MM-DD)")
		analyzeCmd.AddCommand(c)
	}
	_ = analyzeCSVCmd.MarkFlagRequired("project")

	analyzeRawCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "Read opinions from a file, one per line")
	analyzeRawCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "Estimate locally without submitting")
	for _, c := range []*cobra.Command{analyzeFeedCmd, analyzeURLCmd} {
		c.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "Collect and estimate without submitting")
		c.Flags().IntVar(&analyzeMaxItems, "max-items", 0, "Maximum opinions to collect (default from config)")
	}
}

// withRequestID tags the backend call so it can be matched to its journal row.
func withRequestID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return api.WithRequestID(ctx, id), id
}

// journal records a submission outcome. Journal failures are logged, not
// returned, so they never mask the analysis result.
func journal(a *app, requestID, kind, origin string, w api.Window, summary *results.Record, submitErr error) {
	entry := pipeline.Entry(requestID, kind, origin, w, summary, submitErr)
	if _, err := a.db.InsertSubmission(entry); err != nil {
		slog.Warn("journaling submission failed", "request_id", requestID, "error", err)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return scanLines(f)
}

func scanLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func printSummary(r *results.Record) {
	fmt.Println("Analysis complete")
	fmt.Printf("  Opinions: %d\n", r.OpinionsCount.Int())
	fmt.Printf("  Average sentiment: %s (%s)\n", results.FormatScore(r.AvgSentiment.Float()), r.Bucket())
	fmt.Printf("  Positive: %d  Neutral: %d  Negative: %d\n",
		r.PositiveCount.Int(), r.NeutralCount.Int(), r.NegativeCount.Int())
}

func printPreview(s preview.Summary) {
	fmt.Println("Local estimate (not submitted)")
	for _, item := range s.Items {
		fmt.Printf("  %6s  %-8s %s\n", results.FormatScore(item.Compound), item.Bucket, truncate(item.Content, 70))
	}
	d := s.Distribution
	fmt.Printf("\n  Mean: %s (%s)  Positive: %d  Neutral: %d  Negative: %d\n",
		results.FormatScore(s.Mean), s.Bucket(), d.Positive, d.Neutral, d.Negative)
}

func printSteps(r *pipeline.Result) {
	for _, s := range r.Steps {
		if s.Err != nil {
			fmt.Printf("  x %s: %v\n", s.Name, s.Err)
			continue
		}
		fmt.Printf("  - %s: %s\n", s.Name, s.Summary)
	}
}

func truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}
