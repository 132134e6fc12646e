package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"meshnoded/internal/clockskew"
	"meshnoded/internal/config"
	"meshnoded/internal/controller"
	"meshnoded/internal/ensure"
	"meshnoded/internal/link"
	"meshnoded/internal/logging"
	"meshnoded/internal/ping"
	"meshnoded/internal/proc"
	"meshnoded/internal/reconcile"
	"meshnoded/internal/relay"
	"meshnoded/internal/routerctr"
	"meshnoded/internal/store"
	"meshnoded/internal/supervisor"
	"meshnoded/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reconciliation service loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("-d <path> is required")
			}
			return runService(cmd.Context(), dbPath)
		},
	}
	cmd.Flags().StringVarP(&dbPath, "data", "d", "", "path to the node's persistent store file")
	return cmd
}

func runService(ctx context.Context, dbPath string) error {
	cfg, err := config.Load(filepath.Dir(dbPath))
	if err != nil {
		return fmt.Errorf("load agent config: %w", err)
	}

	if err := logging.Configure(cfg.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	logger := slog.Default()

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	settings, err := st.GetNodeSettings(ctx)
	if err != nil {
		return fmt.Errorf("load node settings: %w", err)
	}

	priv, err := decodePrivateKeyPEM(settings.PrivateKey)
	if err != nil {
		return fmt.Errorf("decode node identity: %w", err)
	}
	client, err := controller.NewClient(settings.DomainPrefix, priv, cfg.HTTPTimeout)
	if err != nil {
		return fmt.Errorf("build controller client: %w", err)
	}

	invoker := &proc.Invoker{}
	linkMgr := &link.Manager{Invoker: invoker}
	supv := &supervisor.Supervisor{Invoker: invoker}

	ctrl := &reconcile.Controller{
		Store:  st,
		Client: client,
		Ensure: &ensure.Manager{Invoker: invoker},
		Link:   linkMgr,
		Ping:   &ping.Aggregator{Window: cfg.PingWindow},
		Relay: &relay.Manager{
			Supervisor: supv,
			Link:       linkMgr,
			Store:      st,
			InstallDir: cfg.InstallDir,
		},
		Router:      &routerctr.Manager{Invoker: invoker, Supervisor: supv},
		Supervisor:  supv,
		Invoker:     invoker,
		Tracer:      otel.Tracer("meshnoded/reconcile"),
		KeyPoolSize: cfg.KeyPoolSize,
	}

	tp := telemetry.NewProvider(logger)
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	skew := clockskew.New()
	go skew.Run(runCtx)

	slog.Info("meshnoded starting", "namespace", settings.Namespace, "node_id", settings.NodeID)
	if err := ctrl.Run(runCtx, cfg.TickInterval); err != nil && runCtx.Err() == nil {
		return fmt.Errorf("service loop: %w", err)
	}
	return nil
}
