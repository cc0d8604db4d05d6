package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/studybot/core/telegram"
	"github.com/m3rciful/studybot/core/telegram/middleware"
)

// Fallbacks supplies the handlers for updates that no command, callback or
// document handler claimed.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// ApplyFallbacks installs fb as the registry's unknown-callback handler and
// returns text options answering unclaimed text and documents through fb.
func ApplyFallbacks(reg *tg.Registry, fb Fallbacks) TextOptions {
	if reg != nil {
		reg.SetCallbackNotFound(fb.UnknownCallback())
	}
	return TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	}
}

// TextOptions controls how text and document updates are handled.
type TextOptions struct {
	// Document handles incoming files. It decides itself whether the sender may upload.
	Document        tele.HandlerFunc
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text and document routing.
// Plain text matching a command name or alias runs that command.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.AdminOnly {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", func() error {
				return opts.UnknownText(c)
			})
		}

		logSkipped(c, "unknown_text")
		return nil
	}

	docHandler := func(c tele.Context) error {
		if opts.Document != nil {
			return handleWithSummary(c, "document", func() error {
				return opts.Document(c)
			})
		}
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", func() error {
				return opts.UnknownDocument(c)
			})
		}
		logSkipped(c, "unexpected_document")
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}
