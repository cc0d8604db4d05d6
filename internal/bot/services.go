package bot

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/studybot/core/logger"
)

type service struct {
	name string
	run  func(ctx context.Context) error
}

// backgroundServices lists what runs alongside the poller: the history
// janitor always, the inventory watcher and metrics listener when configured.
// They are independent: one exiting with an error leaves the others running.
func (a *App) backgroundServices() []service {
	svcs := []service{{
		name: "history.janitor",
		run: func(ctx context.Context) error {
			return a.store.Run(ctx, a.cfg.History.SweepInterval)
		},
	}}
	if a.cfg.Resources.Watch {
		svcs = append(svcs, service{name: "inventory.watch", run: a.inventory.Watch})
	}
	if a.cfg.Metrics.Listen != "" {
		svcs = append(svcs, service{
			name: "metrics.listen",
			run: func(ctx context.Context) error {
				return a.metrics.Serve(ctx, a.cfg.Metrics.Listen)
			},
		})
	}
	return svcs
}

func (a *App) startServices(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.services != nil {
		return
	}
	gctx, cancel := context.WithCancel(ctx)
	g := &errgroup.Group{}
	for _, svc := range a.backgroundServices() {
		g.Go(func() error {
			start := time.Now()
			logger.Debug(gctx, logComponent, "service.start", slog.String("name", svc.name))
			err := svc.run(gctx)
			attrs := []slog.Attr{
				slog.String("status", logger.Status(err)),
				slog.String("name", svc.name),
				slog.Duration("duration", logger.Took(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("err", err.Error()))
				logger.Error(gctx, logComponent, "service.stop", attrs...)
				return err
			}
			logger.Debug(gctx, logComponent, "service.stop", attrs...)
			return nil
		})
	}
	a.services = g
	a.cancel = cancel
}

// stopServices cancels the background services and waits for them.
func (a *App) stopServices() error {
	a.mu.Lock()
	g, cancel := a.services, a.cancel
	a.services, a.cancel = nil, nil
	a.mu.Unlock()
	if g == nil {
		return nil
	}
	cancel()
	return g.Wait()
}
