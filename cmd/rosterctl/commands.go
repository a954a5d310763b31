package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/arnavshah/roster-solver-go/internal/config"
	"github.com/arnavshah/roster-solver-go/internal/logging"
	"github.com/arnavshah/roster-solver-go/pkg/export"
	"github.com/arnavshah/roster-solver-go/pkg/models"
	"github.com/arnavshah/roster-solver-go/pkg/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cli struct {
	logLevel  string
	logFormat string
	tuning    string
	log       *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Generate shift rosters offline",
		Long:          `rosterctl builds and solves a roster from a JSON request file without running the API server.`,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()
			log, err := logging.New(c.logLevel, c.logFormat)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "console", "Log format (console, json)")
	root.PersistentFlags().StringVar(&c.tuning, "config", "", "Solver tuning YAML file (weights, limits, transition_mode)")

	root.AddCommand(c.solveCmd())
	root.AddCommand(c.validateCmd())
	return root
}

func (c *cli) solveCmd() *cobra.Command {
	var (
		input, output, format string
		worker, tz            string
		workers, timeLimit    int
		seed                  int64
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a roster request",
		Example: `  rosterctl solve -i may.json -o may-roster.json
  rosterctl solve -i may.json --format xlsx -o may.xlsx --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			switch format {
			case "json", "csv", "ics":
			case "xlsx":
				if output == "" {
					return errors.New("--format xlsx requires --output")
				}
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("unknown time zone %q: %w", tz, err)
			}
			req, err := readRequest(input)
			if err != nil {
				return err
			}
			if timeLimit > 0 {
				req.SolverTimeLimit = &timeLimit
			}

			opts, err := c.options()
			if err != nil {
				return err
			}
			if workers > 0 {
				opts.Workers = workers
			}
			opts.Seed = seed

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res, err := scheduler.NewScheduler(nil, opts, c.log).Generate(ctx, req)
			if err != nil {
				for _, line := range scheduler.Explanation(err) {
					fmt.Fprintln(cmd.ErrOrStderr(), "  conflict:", line)
				}
				return err
			}
			for _, d := range res.Schedule.Diagnostics {
				fmt.Fprintf(cmd.ErrOrStderr(), "  skipped rule %d (%s) for %s: %s\n", d.RuleIndex, d.RuleType, d.WorkerID, d.Reason)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s, penalty %.0f, %s\n",
				res.Schedule.SolverStatus, res.Schedule.PenaltyValue, res.Outcome.WallTime.Round(time.Millisecond))

			return writeOutput(cmd.OutOrStdout(), output, format, res.Schedule, calendarScope{worker: worker, loc: loc})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Request JSON file (- for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, csv, xlsx, ics)")
	cmd.Flags().StringVar(&worker, "worker", "", "With --format ics, export only this worker's shifts")
	cmd.Flags().StringVar(&tz, "tz", "UTC", "With --format ics, the roster's IANA time zone")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel search workers (default: one per CPU, up to 8)")
	cmd.Flags().IntVar(&timeLimit, "time-limit", 0, "Override solver_time_limit in seconds")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the randomized search workers")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (c *cli) validateCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a request and report model size without solving",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(input)
			if err != nil {
				return err
			}
			opts, err := c.options()
			if err != nil {
				return err
			}
			resp, err := scheduler.NewScheduler(nil, opts, c.log).Validate(req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Request JSON file (- for stdin)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (c *cli) options() (scheduler.Options, error) {
	opts := scheduler.DefaultOptions()
	if c.tuning == "" {
		return opts, nil
	}
	t, err := config.LoadTuning(c.tuning, config.DefaultTuning())
	if err != nil {
		return opts, err
	}
	return t.Apply(opts), nil
}

func readRequest(path string) (*models.ScheduleRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}

	var req models.ScheduleRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request %s: %w", filepath.Base(path), err)
	}
	return &req, nil
}

type calendarScope struct {
	worker string
	loc    *time.Location
}

func writeOutput(stdout io.Writer, path, format string, resp *models.ScheduleResponse, scope calendarScope) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		return writeJSON(w, resp)
	case "csv":
		return export.WriteCSV(w, resp)
	case "ics":
		return export.WriteICS(w, resp, scope.worker, scope.loc)
	case "xlsx":
		buf, err := export.WriteXLSX(resp)
		if err != nil {
			return err
		}
		_, err = buf.WriteTo(w)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
