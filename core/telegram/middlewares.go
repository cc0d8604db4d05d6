package telegram

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/studybot/core/config"
	"github.com/m3rciful/studybot/core/telegram/middleware"
)

// MiddlewareHooks lets the application observe the shared middleware chain.
type MiddlewareHooks struct {
	// OnLimited answers an update dropped by the rate limiter.
	OnLimited tele.HandlerFunc
	// OnDrop counts dropped updates by kind.
	OnDrop func(kind string)
	// OnUpdate counts every update by kind before it is handled.
	OnUpdate func(kind string)
}

// DefaultMiddlewares builds the shared middleware chain for bots.
func DefaultMiddlewares(cfg *coreconfig.Config, hooks MiddlewareHooks) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}
	if hooks.OnUpdate != nil {
		mws = append(mws, Middleware{Name: "updates", Use: middleware.UpdateCounter(hooks.OnUpdate)})
	}

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[strings.ToLower(t)] = struct{}{}
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
					Interval:  interval,
					Exclude:   ex,
					OnLimited: hooks.OnLimited,
					OnDrop:    hooks.OnDrop,
				}),
			})
		}
	}

	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)

	return mws
}
