package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"cohortetl/internal/app"
	"cohortetl/pkg/contracts"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(exitCode(err))
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    app.AppName,
		Version: contracts.Version,
		Usage:   "Refresh the cohort training-program star schema from attendance, assessment, participation and status sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
				EnvVars: []string{"COHORTETL_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			Run(),
			Validate(),
			Config(),
			VersionCmd(),
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err != nil {
				fmt.Fprintln(c.App.ErrWriter, "error: "+err.Error())
			}
		},
	}
}
