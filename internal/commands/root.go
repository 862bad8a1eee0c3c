package commands

import (
	"github.com/spf13/cobra"

	"github.com/ledgerview/ledgerview/internal/buildinfo"
	"github.com/ledgerview/ledgerview/internal/config"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	apiURL     string
	logLevel   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "ledgerview",
		Short:   "Upload bank statements and review balance and issues",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "config file")
	flags.StringVar(&opts.apiURL, "api-url", "", "statement API base URL (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newUploadCommand(opts),
		newImportCommand(opts),
		newBalanceCommand(opts),
		newIssuesCommand(opts),
		newHistoryCommand(opts),
		newConfigCommand(opts),
	)

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		return 1
	}
	return 0
}
