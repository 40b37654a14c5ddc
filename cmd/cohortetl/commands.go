package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"cohortetl/internal/app"
	"cohortetl/internal/config"
	apperrors "cohortetl/internal/errors"
	"cohortetl/internal/infrastructure"
	"cohortetl/internal/operations"
	"cohortetl/pkg/contracts"
)

// Exit codes
const (
	exitFailure    = 1
	exitStructural = 2
	exitPublish    = 3
	exitCancelled  = 130
)

func refreshFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:  "threshold",
			Usage: "minutes of attendance required for a session to count as attended",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "directory the tables are published to",
		},
		&cli.StringFlag{
			Name:  "warehouse",
			Usage: "path of a DuckDB database mirroring the published tables",
		},
	}
}

// Run returns the command performing a full refresh
func Run() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "load every cohort, rebuild the star schema and publish it",
		Flags:  refreshFlags(),
		Action: refreshAction(operations.ModeRun),
	}
}

// Validate returns the command checking sources without publishing
func Validate() *cli.Command {
	return &cli.Command{
		Name:   "validate",
		Usage:  "load, transform and assemble without publishing; reports rejected rows",
		Flags:  refreshFlags(),
		Action: refreshAction(operations.ModeValidate),
	}
}

// Config returns the command printing the effective configuration
func Config() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "print the effective configuration as YAML",
		Flags: refreshFlags(),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			_, err = c.App.Writer.Write(data)
			return err
		},
	}
}

// VersionCmd returns the command printing build information
func VersionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "show version and build information",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintln(c.App.Writer, contracts.GetFullVersionString())
			return err
		},
	}
}

func refreshAction(mode operations.RunMode) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}

		logger, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
		defer infrastructure.CloseLogFile()

		application, err := app.NewApplication(cfg, afero.NewOsFs(), logger)
		if err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
		defer func() {
			if err := application.Close(); err != nil {
				logger.Warn("Shutdown incomplete", slog.String("error", err.Error()))
			}
		}()

		resp, runErr := application.Run(mode)
		printSummary(c.App.Writer, resp)
		if runErr != nil {
			return cli.Exit(runErr.Error(), exitCode(runErr))
		}
		return nil
	}
}

// loadConfig loads the configuration and applies command-line overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(c, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides lets flags take precedence over file and environment values
func applyOverrides(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("threshold") {
		cfg.Attendance.ThresholdMinutes = c.Float64("threshold")
	}
	if c.IsSet("output") {
		cfg.Output.Dir = c.String("output")
	}
	if c.IsSet("warehouse") {
		cfg.Output.WarehousePath = c.String("warehouse")
	}
	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// printSummary writes the per-step outcome and per-table counts of a run
func printSummary(w io.Writer, resp *operations.RunResponse) {
	if resp == nil {
		return
	}
	fmt.Fprintf(w, "run %s (%s): %s in %s\n", resp.ID, resp.Mode, resp.Status, resp.Duration.Round(time.Millisecond))

	ids := []string{
		operations.StepIDLoad, operations.StepIDResolve, operations.StepIDTransform,
		operations.StepIDStatus, operations.StepIDDimensions, operations.StepIDAssemble,
		operations.StepIDPublish,
	}
	for _, s := range resp.StepOrder(ids) {
		fmt.Fprintf(w, "  %-11s %s\n", s.ID, s.GetStatus())
	}

	tables := lo.Keys(resp.Tables)
	sort.Strings(tables)
	for _, name := range tables {
		fmt.Fprintf(w, "  %-20s %d rows\n", name, resp.Tables[name])
	}

	reasons := lo.Keys(resp.Rejections)
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, r := range reasons {
		fmt.Fprintf(w, "  rejected %-19s %d\n", r, resp.Rejections[r])
	}
}

// exitCode maps a run error to the process exit status
func exitCode(err error) int {
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	switch {
	case operations.IsCancellation(err):
		return exitCancelled
	case apperrors.IsStructural(err):
		return exitStructural
	case apperrors.TypeOf(err) == apperrors.ErrTypePublish:
		return exitPublish
	}
	return exitFailure
}
