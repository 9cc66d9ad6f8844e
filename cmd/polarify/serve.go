package main

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/Polarify/internal/collect"
	"github.com/TobiSchelling/Polarify/internal/pipeline"
	"github.com/TobiSchelling/Polarify/internal/scheduler"
	"github.com/TobiSchelling/Polarify/internal/server"
)

var (
	servePort int
	runNow    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web console",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		from, to := cfg.DefaultWindow(time.Now())
		srv, err := server.New(a.client, a.session, a.db, server.Options{
			PageSize: cfg.Analysis.PageSize,
			DateFrom: from,
			DateTo:   to,
		})
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}

		ctx, stop := signalContext()
		defer stop()
		fmt.Printf("Polarify console: http://127.0.0.1:%d\n", port)
		return server.Serve(ctx, srv, port)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the configured recurring imports until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Schedules) == 0 {
			fmt.Println("No schedules configured. Add entries under 'schedules' in the config file.")
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

		ctx, stop := signalContext()
		defer stop()

		s := scheduler.New(time.Local)
		runner := pipeline.New(a.client, a.db)
		if err := scheduler.Register(ctx, s, cfg.Schedules, runner, collect.OptionsFromConfig(cfg.Sources)); err != nil {
			return err
		}

		s.Start()
		jobs := s.Jobs()
		names := make([]string, 0, len(jobs))
		for name := range jobs {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Printf("Scheduler running %d jobs (Ctrl-C to stop)\n", len(names))
		for _, name := range names {
			fmt.Printf("  %s  next run %s\n", name, jobs[name].Format(time.DateTime))
		}

		if runNow {
			for _, name := range names {
				if err := s.Trigger(name); err != nil {
					slog.Warn("could not trigger job", "job", name, "error", err)
				}
			}
		}

		<-ctx.Done()
		slog.Info("stopping scheduler")
		s.Stop()
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to listen on")
	scheduleCmd.Flags().BoolVar(&runNow, "now", false, "Run every job once at startup")
}
