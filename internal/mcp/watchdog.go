package mcp

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/vibe8n/agentloop/pkg/log"
)

const defaultProbeTimeout = 5 * time.Second

// Watchdog pings the session on a cron schedule and keeps its health flag in
// step with the result.
type Watchdog struct {
	session *Session
	cron    *cron.Cron
	expr    string
	timeout time.Duration
	group   singleflight.Group
}

// NewWatchdog creates a watchdog for session. An empty expr disables the
// schedule; Check can still be called directly.
func NewWatchdog(session *Session, expr string) *Watchdog {
	return &Watchdog{
		session: session,
		cron:    cron.New(),
		expr:    expr,
		timeout: defaultProbeTimeout,
	}
}

// Start registers the probe and starts the scheduler.
func (w *Watchdog) Start() error {
	if w.expr == "" {
		log.Info("MCP health probe disabled")
		return nil
	}

	_, err := w.cron.AddFunc(w.expr, func() {
		w.Check(context.Background())
	})
	if err != nil {
		return err
	}

	log.Info("MCP health probe scheduled: %s", w.expr)
	w.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running probe.
func (w *Watchdog) Stop() {
	<-w.cron.Stop().Done()
}

// Check pings the session once and returns the resulting health. Overlapping
// checks share one ping.
func (w *Watchdog) Check(ctx context.Context) bool {
	v, _, _ := w.group.Do("ping", func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, w.timeout)
		defer cancel()

		err := w.session.Ping(ctx)
		healthy := err == nil
		if w.session.setHealthy(healthy) {
			if healthy {
				log.Info("MCP server %s reachable again", w.session.Server())
			} else {
				log.Error("MCP server %s unreachable: %v", w.session.Server(), err)
			}
		}
		return healthy, nil
	})
	return v.(bool)
}
