// Package cli wires the hostup commands together.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calebmarsh/hostup/internal/config"
	"github.com/calebmarsh/hostup/internal/logger"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
)

// rootCmd is the base command all subcommands hang off.
var rootCmd = &cobra.Command{
	Use:   "hostup",
	Short: "Bootstrap Linux hosts for operations work",
	Long: `hostup prepares a Linux host in one pass: it installs base packages,
creates the operations account, generates SSH key material, writes the
SSH client config, sets the git identity, and fetches the deploy-key
registrar. A separate 'register' command registers a deploy key with
GitHub and clones the configured repository.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			os.Setenv("NO_COLOR", "1")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file (default ~/.config/hostup/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Verbose logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")
}

// Execute runs the CLI. Errors are printed with their suggestion and the
// process exits nonzero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// loadConfig resolves the run configuration from defaults and the
// config file selected by --config.
func loadConfig() (config.RunConfig, error) {
	return config.Load(cfgFile)
}

// runLogger returns the logger handed to components: verbose runs log
// to stderr, quiet runs discard.
func runLogger(prefix string) logger.Logger {
	if verbose {
		return logger.NewEnvLogger(prefix)
	}
	return logger.Noop()
}
