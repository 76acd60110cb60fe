package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/smartmark/internal/config"
)

// configFile is set by the --config flag.
var configFile string

var rootCmd = &cobra.Command{
	Use:   "smartmark",
	Short: "Smartmark is a personal bookmark manager",
	Long: `Smartmark keeps a per-user list of bookmarks in Redis or SQLite and
serves it over HTTP with live updates, search and quick jumps.

Configuration comes from SMARTMARK_* environment variables, a .env file and
an optional YAML file given with --config.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (optional)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig turns the fatal panics of config.Load into an error.
func loadConfig() (cfg *config.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load config: %v", r)
		}
	}()
	return config.Load(configFile), nil
}
