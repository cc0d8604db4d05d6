// Package bot wires the navigation engine, storage and metrics into the
// Telegram runtime.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"golang.org/x/sync/errgroup"

	coreconfig "github.com/m3rciful/studybot/core/config"
	"github.com/m3rciful/studybot/core/logger"
	coretelegram "github.com/m3rciful/studybot/core/telegram"
	"github.com/m3rciful/studybot/core/telegram/router"
	"github.com/m3rciful/studybot/core/telegram/sender"
	"github.com/m3rciful/studybot/internal/catalog"
	"github.com/m3rciful/studybot/internal/history"
	"github.com/m3rciful/studybot/internal/metrics"
	"github.com/m3rciful/studybot/internal/navigation"
	"github.com/m3rciful/studybot/internal/storage"
	tgtransport "github.com/m3rciful/studybot/internal/transport/telegram"
)

const logComponent = "bot"

// Options configures an App.
type Options struct {
	Config  *coreconfig.Config
	Catalog *catalog.Catalog
	// Ledger defaults to storage.NopLedger.
	Ledger storage.Ledger
	// Metrics defaults to a fresh registry.
	Metrics *metrics.Metrics
	// Closer is released when the bot stops, typically the database pool.
	Closer io.Closer
}

// App is the studybot Telegram application.
type App struct {
	cfg       *coreconfig.Config
	catalog   *catalog.Catalog
	store     *history.MemoryStore
	inventory *storage.Inventory
	ledger    storage.Ledger
	metrics   *metrics.Metrics
	closer    io.Closer
	registry  *coretelegram.Registry
	text      router.TextOptions

	engine atomic.Pointer[navigation.Engine]
	disp   atomic.Pointer[sender.Dispatcher]

	// download fetches an uploaded document from Telegram.
	download func(c tele.Context, f *tele.File) (io.ReadCloser, error)

	mu       sync.Mutex
	services *errgroup.Group
	cancel   context.CancelFunc
}

// New builds the app and indexes the resource root once.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("bot: nil config")
	}
	if opts.Catalog == nil {
		return nil, errors.New("bot: nil catalog")
	}
	inv, err := storage.NewInventory(opts.Config.Resources.Root)
	if err != nil {
		return nil, err
	}
	if err := inv.Scan(); err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}
	ledger := opts.Ledger
	if ledger == nil {
		ledger = storage.NopLedger{}
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	a := &App{
		cfg:       opts.Config,
		catalog:   opts.Catalog,
		store:     history.NewMemoryStore(history.WithIdleTTL(opts.Config.History.IdleTTL)),
		inventory: inv,
		ledger:    ledger,
		metrics:   m,
		closer:    opts.Closer,
		registry:  coretelegram.NewRegistry(),
		download: func(c tele.Context, f *tele.File) (io.ReadCloser, error) {
			return c.Bot().File(f)
		},
	}
	a.text = router.ApplyFallbacks(a.registry, fallbacks{})
	a.text.Document = a.handleDocument
	a.metrics.SetMissing(len(inv.Missing(opts.Catalog.Resources())))
	a.metrics.GaugeFunc("conversations", "Menu messages with recorded navigation history.", func() float64 {
		return float64(a.store.Len())
	})
	a.metrics.GaugeFunc("send_errors", "Telegram API calls that failed after retries.", func() float64 {
		if d := a.disp.Load(); d != nil {
			return float64(d.ErrorCount())
		}
		return 0
	})
	return a, nil
}

// CoreConfig implements the runner's config carrier.
func (a *App) CoreConfig() *coreconfig.Config {
	return a.cfg
}

// Engine returns the navigation engine once the bot has started.
func (a *App) Engine() *navigation.Engine {
	return a.engine.Load()
}

// TelegramRunOptions registers commands and callbacks and returns the runtime options.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	if err := a.register(); err != nil {
		return coretelegram.RunOptions{}, err
	}

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: a.text.UnknownText,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.registry, a.text)...)

	return coretelegram.RunOptions{
		Config:   a.cfg,
		Registry: a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, coretelegram.MiddlewareHooks{
			OnDrop:   a.metrics.ObserveRateLimited,
			OnUpdate: a.metrics.ObserveUpdate,
		}),
		Routes:  routes,
		OnStart: a.onStart,
		OnStop:  a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	if rt.Bot == nil {
		return errors.New("bot: runtime has no bot")
	}
	transport := tgtransport.New(rt.Bot, tgtransport.WithDispatcher(rt.Dispatcher))
	if err := a.startEngine(transport); err != nil {
		return err
	}
	a.disp.Store(rt.Dispatcher)
	a.startServices(ctx)
	return nil
}

func (a *App) startEngine(t navigation.Transport) error {
	engine, err := navigation.New(navigation.Options{
		Catalog:   a.catalog,
		Store:     a.store,
		Transport: t,
		OnOutcome: a.metrics.ObserveOutcome,
	})
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	a.engine.Store(engine)
	return nil
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	err := a.stopServices()
	if err != nil {
		logger.Warn(ctx, logComponent, "services.stop",
			slog.String("status", "error"),
			slog.String("err", err.Error()),
		)
	}
	if a.closer != nil {
		if cerr := a.closer.Close(); cerr != nil {
			return fmt.Errorf("bot: close: %w", cerr)
		}
	}
	return nil
}
