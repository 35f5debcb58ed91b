// Package main provides the boltd CLI entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/GrafeoDB/boltr/pkg/bolt"
	"github.com/GrafeoDB/boltr/pkg/boltauth"
	"github.com/GrafeoDB/boltr/pkg/boltstore"
)

var (
	version = "0.4.4"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "boltd",
		Short: "boltd - a Bolt wire protocol server",
		Long: `boltd speaks the Neo4j Bolt wire protocol (handshake, PackStream,
chunked framing, and the HELLO/LOGON/RUN/PULL message set) against a
pluggable backend. The bundled backend is a small BadgerDB-backed demo
store; production deployments supply their own bolt.Backend.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("boltd v%s (%s)\n", version, commit)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Bolt server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", "", "Listen address (overrides config file)")
	serveCmd.Flags().Int("max-sessions", 0, "Maximum concurrent sessions, 0 for unlimited (overrides config file)")
	serveCmd.Flags().Duration("idle-timeout", 0, "Idle session reap timeout, 0 to disable (overrides config file)")
	serveCmd.Flags().String("data-dir", "", "Demo backend data directory (overrides config file)")
	serveCmd.Flags().String("config", "", "Path to a YAML config file")
	serveCmd.Flags().Bool("require-auth", false, "Require basic-scheme LOGON credentials (overrides config file)")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)

	stdLog := log.New(os.Stderr, "", log.LstdFlags)
	logger := stdr.New(stdLog)

	var backend *boltstore.Backend
	if cfg.DataDir == "" {
		backend, err = boltstore.OpenInMemory()
	} else {
		backend, err = boltstore.Open(cfg.DataDir)
	}
	if err != nil {
		return fmt.Errorf("opening backend store: %w", err)
	}
	defer backend.Close()

	opts := []bolt.Option{
		bolt.WithAddr(cfg.Addr),
		bolt.WithMaxSessions(cfg.MaxSessions),
		bolt.WithIdleTimeout(cfg.IdleTimeout),
		bolt.WithLogger(logger),
	}
	if cfg.RequireAuth {
		opts = append(opts, bolt.WithAuth(boltauth.NewValidator(boltauth.DefaultConfig())))
	}

	srv := bolt.NewServer(backend, opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting boltd", "version", version, "addr", cfg.Addr)
	return srv.ListenAndServe(ctx)
}

func applyFlagOverrides(cmd *cobra.Command, cfg *Config) {
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Addr = v
	}
	if v, _ := cmd.Flags().GetInt("max-sessions"); v != 0 {
		cfg.MaxSessions = v
	}
	if v, _ := cmd.Flags().GetDuration("idle-timeout"); v != 0 {
		cfg.IdleTimeout = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetBool("require-auth"); v {
		cfg.RequireAuth = v
	}
}
