package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"gihan9a/semilattice/internal/blueprint"
	"gihan9a/semilattice/internal/config"
	"gihan9a/semilattice/internal/metadata"
	"gihan9a/semilattice/internal/semilattice"
	"gihan9a/semilattice/internal/server"
	"gihan9a/semilattice/internal/store"
	"gihan9a/semilattice/internal/tls"

	"github.com/spf13/cobra"
)

const (
	clusterPrefix = "/ajax/semilattice"
	authPrefix    = "/ajax/auth"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the metadata HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("Error loading configuration", err)
		}
		if err := serve(cfg, slog.Default()); err != nil {
			fatal("Server stopped", err)
		}
	},
}

// openStores opens both metadata documents, watching their files if configured
func openStores(cfg *config.Config, logger *slog.Logger) (*store.Store[metadata.Cluster], *store.Store[metadata.Auth], error) {
	clusterStore, err := store.New(metadata.Cluster{}, metadata.Cluster.Join, cfg.Store.ClusterFile, logger.With("document", "cluster"))
	if err != nil {
		return nil, nil, err
	}
	authStore, err := store.New(metadata.Auth{}, metadata.Auth.Join, cfg.Store.AuthFile, logger.With("document", "auth"))
	if err != nil {
		return nil, nil, err
	}

	if cfg.Store.Watch {
		if err := clusterStore.Watch(); err != nil {
			return nil, nil, err
		}
		if err := authStore.Watch(); err != nil {
			clusterStore.Close()
			return nil, nil, err
		}
	}
	return clusterStore, authStore, nil
}

func serve(cfg *config.Config, logger *slog.Logger) error {
	rules, err := blueprint.CompileRules(cfg.BlueprintRules)
	if err != nil {
		return err
	}

	clusterStore, authStore, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer clusterStore.Close()
	defer authStore.Close()

	// Set up the TLS certificate if needed
	if cfg.TLS.Enabled && cfg.TLS.GenerateCert {
		if err := tls.EnsureCertificate(cfg.TLS, logger); err != nil {
			return fmt.Errorf("failed to set up TLS certificate: %w", err)
		}
	}

	// There is no cluster membership here, so every machine in the document
	// counts as connected
	suggester := blueprint.NewSuggester(cfg.NodeID, nil, rules, logger)
	clusterApp := semilattice.NewApp[metadata.Cluster](clusterStore, metadata.WrapCluster, suggester.Fill, cfg.NodeID,
		semilattice.WithContentTypeCheck(cfg.EnforceContentType),
		semilattice.WithLogger(logger.With("document", "cluster")))
	authApp := semilattice.NewApp[metadata.Auth](authStore, metadata.WrapAuth, nil, cfg.NodeID,
		semilattice.WithContentTypeCheck(cfg.EnforceContentType),
		semilattice.WithLogger(logger.With("document", "auth")))

	srv := server.NewSemilatticeServer(cfg, logger,
		server.Endpoint{Prefix: clusterPrefix, Handler: clusterApp, OnChange: onChange(clusterStore)},
		server.Endpoint{Prefix: authPrefix, Handler: authApp, OnChange: onChange(authStore)},
	)
	defer srv.Close()

	router := srv.SetupRoutes()

	// Start server with or without TLS
	addr := fmt.Sprintf(":%d", cfg.Port)
	if cfg.TLS.Enabled {
		logger.Info("Semilattice server running", "url", "https://localhost"+addr, "node", cfg.NodeID,
			"cert", cfg.TLS.CertFile, "key", cfg.TLS.KeyFile)
		return http.ListenAndServeTLS(addr, cfg.TLS.CertFile, cfg.TLS.KeyFile, router)
	}
	logger.Info("Semilattice server running", "url", "http://localhost"+addr, "node", cfg.NodeID)
	return http.ListenAndServe(addr, router)
}

// onChange adapts a store's listener registration to the server's callbacks
func onChange[T any](s *store.Store[T]) func(func()) func() {
	return func(f func()) func() {
		return s.OnChange(store.Listener(f))
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
