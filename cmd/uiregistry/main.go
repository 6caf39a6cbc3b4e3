package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/uiregistry/internal/config"
	"github.com/vango-dev/uiregistry/internal/errors"
	"github.com/vango-dev/uiregistry/internal/logging"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configPath is the --config flag shared by every command.
var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "uiregistry",
		Short: "Serve and install UI registry components",
		Long: `uiregistry serves a UI component registry over HTTP and installs
its components into other projects.

  • Registry manifest and file contents from a directory or S3 bucket
  • File trees for the registry explorer
  • Data-table state encoded in URL query strings
  • Contacts table backend on PostgreSQL or SQLite`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (default ./"+config.ConfigFileName+")")
	flags.String("remote", config.DefaultRemote, "Registry server URL")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.Bool("no-color", false, "Disable colored output")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			errors.DisableColors()
		}
	}

	rootCmd.AddCommand(
		serveCmd(),
		listCmd(),
		infoCmd(),
		treeCmd(),
		addCmd(),
		queryCmd(),
		migrateCmd(),
		explainCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd, err)
		os.Exit(1)
	}
}

// printError writes err to stderr, as one JSON object when logs are JSON.
func printError(root *cobra.Command, err error) {
	format, _ := root.PersistentFlags().GetString("log-format")
	if re, ok := errors.As(err); ok && format == "json" {
		fmt.Fprintln(os.Stderr, re.FormatJSON())
		return
	}
	errors.Fprint(os.Stderr, err)
}

// loadConfig reads configuration with cmd's flags as the top layer.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configPath, cmd.Flags())
}

// newLogger builds the process logger from cfg.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, errors.New("E120").WithDetail(err.Error())
	}
	return logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorf returns a CLI usage error.
func errorf(format string, args ...any) error {
	return errors.Newf(errors.CategoryCLI, format, args...)
}
