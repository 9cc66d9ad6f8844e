package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/Polarify/internal/results"
	"github.com/TobiSchelling/Polarify/internal/views"
)

var (
	projectName        string
	projectDescription string

	resultsYear  string
	resultsScore string
	resultsPage  int
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage the project library",
	RunE:  listProjects,
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects with their global score",
	RunE:  listProjects,
}

func listProjects(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLogin(); err != nil {
		return err
	}

	lib := views.LoadLibrary(cmd.Context(), a.client)
	if lib.Error != "" {
		return errors.New(lib.Error)
	}
	if len(lib.Projects) == 0 {
		fmt.Println("No projects yet. Create one with 'polarify projects create NAME'.")
		return nil
	}

	for _, p := range lib.Projects {
		score := "No runs yet"
		if p.Score != nil {
			score = fmt.Sprintf("%s (%s)", results.FormatScore(*p.Score), p.Bucket())
		}
		fmt.Printf("  [%s] %s  %s\n", p.ID, p.Name, score)
		if p.Description != "" {
			fmt.Printf("      %s\n", p.Description)
		}
	}
	return nil
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		p, err := views.CreateProject(cmd.Context(), a.client, args[0], projectDescription)
		if err != nil {
			return err
		}
		fmt.Printf("Created project [%s] %s\n", p.ID, p.Name)
		return nil
	},
}

var projectsEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Rename a project or change its description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		p, err := views.UpdateProject(cmd.Context(), a.client, results.ID(args[0]), projectName, projectDescription)
		if err != nil {
			return err
		}
		fmt.Printf("Updated project [%s] %s\n", p.ID, p.Name)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a project and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		if err := views.DeleteProject(cmd.Context(), a.client, results.ID(args[0])); err != nil {
			return err
		}
		fmt.Printf("Deleted project %s\n", args[0])
		return nil
	},
}

var resultsCmd = &cobra.Command{
	Use:     "results PROJECT_ID",
	Aliases: []string{"show"},
	Short:   "Show a project's analysis history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		q := views.ParseDetailQuery(resultsYear, resultsScore, strconv.Itoa(resultsPage), cfg.Analysis.PageSize)
		d := views.LoadProject(cmd.Context(), a.client, results.ID(args[0]), q)
		if d.Error != "" {
			return errors.New(d.Error)
		}

		fmt.Printf("%s\n", d.Project.Name)
		if d.Project.Description != "" {
			fmt.Printf("%s\n", d.Project.Description)
		}
		fmt.Printf("\nWeighted average: %s (%s)\n", results.FormatScore(d.WeightedAverage), d.Bucket)
		fmt.Printf("Simple average: %s\n", results.FormatScore(d.SimpleAverage))
		dist := d.Distribution
		fmt.Printf("Opinions: %d (%.1f%% positive, %.1f%% neutral, %.1f%% negative)\n",
			dist.Opinions, dist.Percent(results.Positive), dist.Percent(results.Neutral), dist.Percent(results.Negative))

		if d.Filtered == 0 {
			fmt.Println("\nNo runs match the current filters.")
			return nil
		}

		fmt.Printf("\nRuns (page %d of %d, %d total):\n", d.Page.Number, d.Page.TotalPages, d.Page.Total)
		for i, r := range d.Page.Items {
			fmt.Printf("  %-8s %s  %s..%s  %5d opinions  %s (%s)\n",
				r.Key(i),
				results.FormatDate(r.CreatedAt.String()),
				r.DateFrom, r.DateTo,
				r.OpinionsCount.Int(),
				results.FormatScore(r.AvgSentiment.Float()),
				r.Bucket())
		}
		if d.Page.HasNext {
			fmt.Printf("\nMore runs: --page %d\n", d.Page.Number+1)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:     "stats PROJECT_ID",
	Aliases: []string{"measures"},
	Short:   "Show statistical measures of a project's history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		s := views.LoadStatistics(cmd.Context(), a.client, results.ID(args[0]))
		if s.Error != "" {
			return errors.New(s.Error)
		}
		for _, c := range s.Cards {
			fmt.Printf("  %-14s %s\n", c.Label+":", c.Value)
		}
		return nil
	},
}

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal [PROJECT_ID]",
	Short: "List recent submissions recorded locally",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		projectID := ""
		if len(args) == 1 {
			projectID = args[0]
		}
		subs, err := a.db.GetRecentSubmissions(projectID, journalLimit)
		if err != nil {
			return fmt.Errorf("listing submissions: %w", err)
		}
		if len(subs) == 0 {
			fmt.Println("No submissions recorded")
			return nil
		}

		for _, s := range subs {
			when := ""
			if s.SubmittedAt != nil {
				when = *s.SubmittedAt
			}
			line := fmt.Sprintf("  #%d %s project %s via %s", s.ID, when, s.ProjectID, s.Source)
			if s.Error != nil {
				fmt.Printf("%s  FAILED: %s\n", line, *s.Error)
				continue
			}
			fmt.Printf("%s  %d opinions, average %s\n", line, s.OpinionsCount, results.FormatScore(s.AvgSentiment))
		}
		return nil
	},
}

func init() {
	projectsCreateCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "Project description (markdown)")
	projectsEditCmd.Flags().StringVarP(&projectName, "name", "n", "", "New project name")
	projectsEditCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "New description (markdown)")
	_ = projectsEditCmd.MarkFlagRequired("name")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsEditCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)

	resultsCmd.Flags().StringVarP(&resultsYear, "year", "y", "", "Only runs created in this year")
	resultsCmd.Flags().StringVarP(&resultsScore, "score", "s", "", "Only runs in this bucket: positive, neutral or negative")
	resultsCmd.Flags().IntVarP(&resultsPage, "page", "p", 1, "Page number")

	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "Maximum entries to show")
}
