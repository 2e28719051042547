package main

import (
	"encoding/json"
	"log/slog"
	"os"

	"gihan9a/semilattice/internal/metadata"
	"gihan9a/semilattice/internal/semilattice"

	"github.com/spf13/cobra"
)

var dumpAuth bool

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the rendered metadata document",
	Long:  `Print the cluster document as the HTTP API renders it, without starting the server.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("Error loading configuration", err)
		}
		cfg.Store.Watch = false

		clusterStore, authStore, err := openStores(cfg, slog.Default())
		if err != nil {
			fatal("Failed to open metadata", err)
		}

		var rendered any
		if dumpAuth {
			rendered, err = semilattice.NewApp[metadata.Auth](authStore, metadata.WrapAuth, nil, cfg.NodeID).Root()
		} else {
			rendered, err = semilattice.NewApp[metadata.Cluster](clusterStore, metadata.WrapCluster, nil, cfg.NodeID).Root()
		}
		if err != nil {
			fatal("Failed to render metadata", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rendered); err != nil {
			fatal("Failed to encode metadata", err)
		}
	},
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpAuth, "auth", false, "Print the auth document instead of the cluster document")
	rootCmd.AddCommand(dumpCmd)
}
