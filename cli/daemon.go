// Package cli implements the commands behind the dagwatch binary.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dagwatch/dagwatch/config"
	"github.com/dagwatch/dagwatch/core"
	"github.com/dagwatch/dagwatch/notify"
	"github.com/dagwatch/dagwatch/store"
	"github.com/dagwatch/dagwatch/web"
)

const shutdownTimeout = 10 * time.Second

// DaemonCommand runs the watchdog: scheduler loop, settings listener and
// REST façade in one process.
type DaemonCommand struct {
	LogLevel string `long:"log-level" env:"LOG_LEVEL" description:"logging level"`

	Logger core.Logger
}

// Execute boots every component and blocks until a shutdown signal or a
// fatal component error.
func (c *DaemonCommand) Execute(_ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.DatabaseURL, c.Logger)
	if err != nil {
		return err
	}
	defer st.Close()

	initial, err := st.GetSettings(ctx)
	if err != nil {
		return err
	}
	cache := core.NewSettingsCache(initial)

	dispatcher := notify.NewDispatcher(st, c.Logger,
		notify.NewGchatPlugin(),
		notify.NewEmailPlugin(),
	)

	clock := core.NewRealClock()
	ingestor := core.NewIngestor(st, st, dispatcher, cache, c.Logger, clock)
	scanner := core.NewScanner(st, st, dispatcher, cache, c.Logger, clock, cfg.GraceTime())
	scheduler := core.NewScheduler(scanner, c.Logger, clock, cfg.InitialDelay(), cfg.FixedDelay())
	listener := store.NewSettingsListener(st, cache, c.Logger, clock)
	server := web.NewServer(cfg.ListenAddr, st, dispatcher, ingestor, cache, c.Logger, clock)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(ctx) })
	g.Go(func() error { return listener.Run(ctx) })
	g.Go(func() error { return server.ListenAndServe() })
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	c.Logger.Noticef("watchdog started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	c.Logger.Noticef("watchdog stopped")
	return nil
}
