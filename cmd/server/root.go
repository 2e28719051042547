package main

import (
	"fmt"
	"log/slog"
	"os"

	"gihan9a/semilattice/internal/config"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configFile string
	overrides  config.Overrides
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "semilattice",
	Short: "Serve cluster metadata as path addressed JSON documents",
	Long: `semilattice keeps the cluster and auth metadata documents of a node.
Every value carries a vector clock so copies edited on different nodes
always merge. Running without a subcommand starts the HTTP server.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if err := overrides.Apply(cfg); err != nil {
		return nil, fmt.Errorf("invalid node id: %w", err)
	}
	return cfg, nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&configFile, "config", "c", "", "Path to the YAML configuration file")
	flags.IntVarP(&overrides.Port, "port", "p", 0, "Port to listen on (overrides config file)")
	flags.StringVar(&overrides.NodeID, "node-id", "", "UUID this node acts as (overrides config file)")
	flags.StringVar(&overrides.ClusterFile, "cluster-file", "", "Cluster document file (overrides config file)")
	flags.StringVar(&overrides.AuthFile, "auth-file", "", "Auth document file (overrides config file)")
}
