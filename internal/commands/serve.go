package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vibe8n/agentloop/internal/config"
	"github.com/vibe8n/agentloop/internal/httpapi"
	"github.com/vibe8n/agentloop/internal/mcp"
	"github.com/vibe8n/agentloop/pkg/log"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /chat, /health and /capabilities over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: $HTTP_ADDR or :$PORT)")
	return cmd
}

// runServe blocks until ctx ends or the listener fails.
func runServe(ctx context.Context, addr string) error {
	var opts []config.Option
	if addr != "" {
		opts = append(opts, func(c *config.Config) { c.HTTP.Addr = addr })
	}
	cfg, err := loadConfig(opts...)
	if err != nil {
		return err
	}

	rt, err := startRuntime(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn("Failed to close runtime: %v", err)
		}
	}()

	var watchdog *mcp.Watchdog
	if rt.session != nil {
		watchdog = mcp.NewWatchdog(rt.session, cfg.MCP.HealthCron)
		if err := watchdog.Start(); err != nil {
			return err
		}
		defer watchdog.Stop()
	}

	server := httpapi.NewServer(rt.agent, httpapi.WithAllowOrigin(cfg.HTTP.AllowOrigin))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Listening on %s", cfg.HTTP.Addr)
		if err := server.ListenAndServe(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
