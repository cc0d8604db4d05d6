// Package telegram adapts the navigation engine to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studybot/core/telegram/callbacks"
	"github.com/m3rciful/studybot/core/telegram/keyboard"
	"github.com/m3rciful/studybot/core/telegram/sender"
	"github.com/m3rciful/studybot/internal/catalog"
	"github.com/m3rciful/studybot/internal/history"
	"github.com/m3rciful/studybot/internal/navigation"
)

// Unique is the callback namespace of every navigation button.
const Unique = catalog.CallbackNamespace

// API is the subset of *tele.Bot used by Transport.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// Transport implements navigation.Transport on top of telebot.
type Transport struct {
	api  API
	disp *sender.Dispatcher
}

var _ navigation.Transport = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithDispatcher routes API calls through d so transient network errors are retried.
func WithDispatcher(d *sender.Dispatcher) Option {
	return func(t *Transport) {
		t.disp = d
	}
}

// New wraps api.
func New(api API, opts ...Option) *Transport {
	t := &Transport{api: api}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Markup renders option rows as an inline keyboard. Each button carries its
// target key as payload under the nav namespace.
func Markup(rows [][]catalog.OptionRef) *tele.ReplyMarkup {
	grid := make([][]keyboard.Button, 0, len(rows))
	for _, row := range rows {
		line := make([]keyboard.Button, 0, len(row))
		for _, opt := range row {
			line = append(line, keyboard.Button{Text: opt.Label, Data: opt.Target})
		}
		grid = append(grid, line)
	}
	return keyboard.Grid(Unique, grid)
}

func menuOptions(rows [][]catalog.OptionRef) *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:   tele.ModeHTML,
		ReplyMarkup: Markup(rows),
	}
}

// SendMenu posts a new menu message.
func (t *Transport) SendMenu(ctx context.Context, chatID int64, text string, rows [][]catalog.OptionRef) (history.MessageHandle, error) {
	var msg *tele.Message
	err := t.do(ctx, "menu.send", "sendMessage", func() error {
		var err error
		msg, err = t.api.Send(tele.ChatID(chatID), text, menuOptions(rows))
		return err
	})
	if err != nil {
		return history.MessageHandle{}, err
	}
	return HandleOf(msg), nil
}

// EditMenu edits the menu message in place. A message that no longer
// exists is replaced by a new one, whose handle is returned.
func (t *Transport) EditMenu(ctx context.Context, h history.MessageHandle, text string, rows [][]catalog.OptionRef) (history.MessageHandle, error) {
	var msg *tele.Message
	err := t.do(ctx, "menu.edit", "editMessageText", func() error {
		var err error
		msg, err = t.api.Edit(h, text, menuOptions(rows))
		return err
	})
	switch {
	case err == nil:
		if next := HandleOf(msg); !next.IsZero() {
			return next, nil
		}
		return h, nil
	case isNotModified(err):
		return h, nil
	case isEditTargetGone(err) && h.ChatID != 0:
		return t.SendMenu(ctx, h.ChatID, text, rows)
	default:
		return history.MessageHandle{}, err
	}
}

// SendDocument uploads the file at path as a document.
func (t *Transport) SendDocument(ctx context.Context, chatID int64, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("resource %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("resource %s: is a directory", path)
	}
	return t.do(ctx, "document.send", "sendDocument", func() error {
		doc := &tele.Document{File: tele.FromDisk(path), FileName: filepath.Base(path)}
		_, err := t.api.Send(tele.ChatID(chatID), doc)
		return err
	})
}

// Notify answers the callback query, or sends a plain message when there is none.
func (t *Transport) Notify(ctx context.Context, n navigation.Notice) error {
	if n.CallbackID != "" {
		return t.do(ctx, "callback.answer", "answerCallbackQuery", func() error {
			return t.api.Respond(&tele.Callback{ID: n.CallbackID}, &tele.CallbackResponse{Text: n.Text})
		})
	}
	if n.Text == "" || n.ChatID == 0 {
		return nil
	}
	return t.do(ctx, "notice.send", "sendMessage", func() error {
		_, err := t.api.Send(tele.ChatID(n.ChatID), n.Text)
		return err
	})
}

func (t *Transport) do(ctx context.Context, action, endpoint string, run func() error) error {
	if t.disp == nil {
		return run()
	}
	return t.disp.Do(ctx, action, endpoint, run)
}

// HandleOf returns the handle of a sent message.
func HandleOf(msg *tele.Message) history.MessageHandle {
	if msg == nil {
		return history.MessageHandle{}
	}
	var chatID int64
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}
	return history.MessageHandle{ChatID: chatID, MessageID: strconv.Itoa(msg.ID)}
}

// SelectionFrom extracts the pressed navigation key from a callback update.
// It reports false for callbacks outside the nav namespace.
func SelectionFrom(c tele.Context) (navigation.Selection, bool) {
	cb := c.Callback()
	if cb == nil {
		return navigation.Selection{}, false
	}
	unique, payload := callbacks.ParseCallbackData(cb)
	if unique != Unique {
		return navigation.Selection{}, false
	}
	var h history.MessageHandle
	switch {
	case cb.Message != nil:
		h = HandleOf(cb.Message)
	case cb.MessageID != "":
		h = history.MessageHandle{MessageID: cb.MessageID}
	}
	if h.IsZero() {
		return navigation.Selection{}, false
	}
	return navigation.Selection{Handle: h, CallbackID: cb.ID, Key: payload}, true
}

func isNotModified(err error) bool {
	return errMessageContains(err, "message is not modified")
}

func isEditTargetGone(err error) bool {
	return errMessageContains(err, "message to edit not found") ||
		errMessageContains(err, "message can't be edited")
}

func errMessageContains(err error, fragment string) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), fragment)
}
