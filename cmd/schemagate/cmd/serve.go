package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	valid "github.com/raywall/json-schema-gate"
	"github.com/raywall/json-schema-gate/config"
	"github.com/raywall/json-schema-gate/logging"
	"github.com/raywall/json-schema-gate/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve one validation route per schema",
	Long: `Load every schema in the configured directory and serve
POST /validate/<name> for each of them.

A schema that fails its check stops startup; no route is served for a
broken schema.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	draft, err := valid.ParseDraft(cfg.Gate.Draft)
	if err != nil {
		return err
	}

	registry := valid.NewRegistry(valid.WithDraft(draft))
	n, err := registry.LoadDir(cfg.Schemas.Dir)
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}
	logger.Info().Int("count", n).Str("dir", cfg.Schemas.Dir).Msg("schemas loaded")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := server.New(cfg, registry, logger, reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
