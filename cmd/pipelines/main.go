// cmd/pipelines/main.go
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/acederberg/captura-platform/internal/config"
	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/logger"
	"github.com/acederberg/captura-platform/internal/platform"
)

// app carries the state shared by every command.
type app struct {
	configPath string
	verbose    bool
	noColor    bool

	log      *logger.Logger
	platform *platform.Platform
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pipelines",
		Short: "Build images and maintain DNS for the captura platform",
		Long: `pipelines builds container images from git repositories, pushes them to the
platform registry and keeps the DNS records of the platform domain pointed at
its load balancer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.noColor {
				a.log.SetNoColor(true)
			}
			a.log.SetVerbose(a.verbose)

			// The default file is optional, an explicit one is not.
			optional := !cmd.Flags().Changed("config")
			cfg, err := config.Load(a.configPath, optional)
			if err != nil {
				return err
			}
			a.platform, err = platform.New(cfg, a.log)
			if err != nil {
				return err
			}
			a.log.Debug("Configuration:\n%s", a.platform.Provider)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "print debug output")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newBuilderCmd(a),
		newDNSCmd(a),
	)
	return rootCmd
}

// exitCode mirrors the exit code of a failed build.
func exitCode(err error) int {
	var failed *domain.BuildFailedError
	if errors.As(err, &failed) && failed.ExitCode > 0 {
		return failed.ExitCode
	}
	return 1
}

func main() {
	a := &app{log: logger.New()}
	if err := newRootCmd(a).Execute(); err != nil {
		a.log.Error("%v", err)
		os.Exit(exitCode(err))
	}
}
