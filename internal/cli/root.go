// Package cli provides the command-line interface for feedstream.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

const defaultConfigDir = ".feedstream"

var configDir string

var rootCmd = &cobra.Command{
	Use:   "feedstream",
	Short: "Stream new posts from Reddit, RSS feeds and Hacker News",
	Long:  "feedstream polls subreddits, multireddits, RSS/Atom feeds and Hacker News lists on a jittered schedule and prints each item the first time it appears.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "feedstream %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", defaultConfigDir, "directory holding config.yaml")
	rootCmd.AddCommand(versionCmd, initCmd, doctorCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
