// Package cmd implements the newsthreader command-line interface.
package cmd

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging and gin debug mode.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "newsthreader",
		Short: "News corroboration and threading pipeline",
		Long: `newsthreader gates crawl candidates behind quality checks, tracks
per-domain reliability, and groups accepted articles into story threads.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment overrides are visible to viper.
	_ = godotenv.Load()
	_ = rootCmd.ParseFlags(os.Args[1:])

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newSchedulerCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newDomainsCommand())
	rootCmd.AddCommand(newThreadsCommand())
}
