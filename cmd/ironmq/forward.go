package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samvad-hq/ironmq-go/internal/app"
	"github.com/samvad-hq/ironmq-go/internal/metrics"
	"github.com/samvad-hq/ironmq-go/pkg/manifest"
	"github.com/spf13/cobra"
)

func newApplyCmd(g *globals) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the queues described in a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := manifest.Load(file)
			if err != nil {
				return err
			}
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			outcomes, applyErr := manifest.Apply(cmd.Context(), client, m)
			if err := printJSON(cmd.OutOrStdout(), outcomes); err != nil {
				return err
			}
			return applyErr
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "queues.yaml", "queue manifest (yaml or json)")
	return cmd
}

func newForwardCmd(g *globals) *cobra.Command {
	var (
		once        bool
		sinksFile   string
		metricsAddr string
		ledgerType  string
		ledgerPath  string
	)
	cmd := &cobra.Command{
		Use:   "forward <queue>",
		Short: "Drain a queue into the configured sinks",
		Long: `forward reserves messages in batches and publishes each one to every
enabled sink. A message is deleted once all sinks accepted it; otherwise it is
released so the service delivers it again. With --ledger bbolt, messages that
were published but could not be deleted are not published a second time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.appCfg
			if sinksFile != "" {
				cfg.SinksFile = sinksFile
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			if ledgerType != "" {
				cfg.Forward.LedgerType = ledgerType
			}
			if ledgerPath != "" {
				cfg.Forward.LedgerPath = ledgerPath
			}
			g.log.InfoObj("forwarder starting", "config", cfg)

			m := metrics.New()
			client, err := g.client(m)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			fwd, err := app.NewForwarderFromConfig(ctx, cfg, args[0], client, g.log, m)
			if err != nil {
				g.log.ErrorObj("failed to initialize forwarder", "error", err)
				return err
			}

			if once {
				stats, runErr := fwd.RunOnce(ctx)
				closeErr := fwd.Close()
				if err := printJSON(cmd.OutOrStdout(), stats); err != nil {
					return err
				}
				return errors.Join(runErr, closeErr)
			}

			if cfg.MetricsAddr != "" {
				stopMetrics := serveMetrics(cfg.MetricsAddr, m, g)
				defer stopMetrics()
			}

			if err := fwd.Run(ctx); err != nil {
				return fmt.Errorf("forwarder run: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "process a single batch and exit")
	cmd.Flags().StringVar(&sinksFile, "sinks", "", "sinks file (defaults to sinks_file)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&ledgerType, "ledger", "", "delivery ledger: none or bbolt (defaults to forward_ledger)")
	cmd.Flags().StringVar(&ledgerPath, "ledger-path", "", "bbolt ledger file (defaults to forward_ledger_path)")
	return cmd
}

func serveMetrics(addr string, m *metrics.Metrics, g *globals) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.ErrorObj("metrics server failed", "error", err)
		}
	}()
	g.log.InfoObj("metrics server listening", "metrics_addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
