package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/studybot/core/logger"
	"github.com/m3rciful/studybot/internal/catalog"
	"github.com/m3rciful/studybot/internal/history"
)

const logComponent = "nav"

const (
	// NoticeUnavailable answers a selection that resolves to nothing.
	NoticeUnavailable = "contenu pas disponible pour le moment."
	// NoticeFileUnavailable answers a resource that could not be delivered.
	NoticeFileUnavailable = "fichier pas disponible pour le moment."
)

// ErrNoHistory is returned by Depth and View when a message carries no recorded menus.
var ErrNoHistory = errors.New("navigation: no history for message")

// Selection is one button press on a menu message.
type Selection struct {
	Handle     history.MessageHandle
	CallbackID string
	Key        string
}

// Outcome describes what a selection did. View is the menu displayed on the
// conversation message afterwards and Depth the recorded history depth.
type Outcome struct {
	Action Action
	View   *history.View
	Depth  int
}

// Options configures an Engine.
type Options struct {
	Catalog   Lookup
	Store     history.Store
	Transport Transport
	// OnOutcome, when set, observes every Start, Shortcut and Select.
	OnOutcome func(kind Kind, err error)
}

// Engine drives conversations through the menu tree.
type Engine struct {
	catalog   Lookup
	store     history.Store
	transport Transport
	locks     *keyedMutex
	observe   func(Kind, error)
}

// New validates opts and constructs an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, errors.New("navigation: catalog is required")
	}
	if opts.Transport == nil {
		return nil, errors.New("navigation: transport is required")
	}
	if opts.Catalog.Root() == nil {
		return nil, errors.New("navigation: catalog has no root menu")
	}
	store := opts.Store
	if store == nil {
		store = history.NewMemoryStore()
	}
	observe := opts.OnOutcome
	if observe == nil {
		observe = func(Kind, error) {}
	}
	return &Engine{
		catalog:   opts.Catalog,
		store:     store,
		transport: opts.Transport,
		locks:     newKeyedMutex(),
		observe:   observe,
	}, nil
}

// Resolve exposes the engine's key resolution.
func (e *Engine) Resolve(key string) Action {
	return Resolve(e.catalog, key)
}

// Conversations returns the number of messages with recorded history.
func (e *Engine) Conversations() int {
	return e.store.Len()
}

// Start posts the root menu to chatID and opens a conversation on it.
func (e *Engine) Start(ctx context.Context, chatID int64) (Outcome, error) {
	out, err := e.open(ctx, chatID, e.catalog.Root())
	e.observe(GoHome, err)
	return out, err
}

// Shortcut posts the menu named by key as the bottom of a new conversation.
func (e *Engine) Shortcut(ctx context.Context, chatID int64, key string) (Outcome, error) {
	menu, err := e.catalog.Menu(key)
	if err != nil {
		e.observe(Unresolved, err)
		return Outcome{Action: Action{Kind: Unresolved, Key: key}}, err
	}
	out, err := e.open(ctx, chatID, menu)
	e.observe(ShowMenu, err)
	return out, err
}

func (e *Engine) open(ctx context.Context, chatID int64, menu *catalog.MenuEntry) (Outcome, error) {
	start := time.Now()
	h, err := e.transport.SendMenu(ctx, chatID, menu.Text, menu.Rows)
	if err != nil {
		e.logSelect(ctx, start, string(menu.Key), ShowMenu, 0, err)
		return Outcome{}, fmt.Errorf("%w: send menu %q: %v", ErrDeliveryFailed, menu.Key, err)
	}
	view := history.NewView(h, menu)
	stack := history.NewStack(view)

	unlock := e.locks.Lock(h.Key())
	e.store.Put(h.Key(), stack)
	unlock()

	e.logSelect(ctx, start, string(menu.Key), ShowMenu, stack.Depth(), nil)
	return Outcome{Action: Action{Kind: ShowMenu, Key: string(menu.Key), Menu: menu}, View: view, Depth: stack.Depth()}, nil
}

// Select applies one button press. History changes only after the
// transport reports success; a message without history is treated as a
// root-level conversation bound to that message.
func (e *Engine) Select(ctx context.Context, sel Selection) (Outcome, error) {
	start := time.Now()
	key := sel.Handle.Key()
	unlock := e.locks.Lock(key)
	defer unlock()

	stack, ok := e.store.Get(key)
	if !ok {
		stack = history.NewStack(history.NewView(sel.Handle, e.catalog.Root()))
	}

	action := Resolve(e.catalog, sel.Key)
	var (
		next history.Stack
		err  error
	)
	switch action.Kind {
	case ShowMenu:
		next, err = e.show(ctx, stack, action.Menu)
	case GoBack:
		if stack.Depth() <= 1 {
			next, err = e.home(ctx, stack)
			break
		}
		next, err = e.back(ctx, stack)
	case GoHome:
		next, err = e.home(ctx, stack)
	case DeliverResource:
		next = stack
		if derr := e.transport.SendDocument(ctx, sel.Handle.ChatID, action.Resource.Path); derr != nil {
			err = fmt.Errorf("%w: send %q: %v", ErrDeliveryFailed, action.Resource.Key, derr)
		}
	default:
		next = stack
	}

	notice := ""
	switch {
	case err != nil && action.Kind == DeliverResource:
		notice = NoticeFileUnavailable
	case err != nil:
		notice = NoticeUnavailable
	case action.Kind == Unresolved:
		notice = NoticeUnavailable
	}
	e.notify(ctx, Notice{ChatID: sel.Handle.ChatID, CallbackID: sel.CallbackID, Text: notice})

	if err != nil {
		e.logSelect(ctx, start, sel.Key, action.Kind, stack.Depth(), err)
		e.observe(action.Kind, err)
		return Outcome{Action: action, View: stack.Top(), Depth: stack.Depth()}, err
	}

	e.commit(key, next)
	e.logSelect(ctx, start, sel.Key, action.Kind, next.Depth(), nil)
	e.observe(action.Kind, nil)
	return Outcome{Action: action, View: next.Top(), Depth: next.Depth()}, nil
}

func (e *Engine) show(ctx context.Context, stack history.Stack, menu *catalog.MenuEntry) (history.Stack, error) {
	top := stack.Top()
	h, err := e.transport.EditMenu(ctx, top.Handle, menu.Text, menu.Rows)
	if err != nil {
		return stack, fmt.Errorf("%w: edit menu %q: %v", ErrDeliveryFailed, menu.Key, err)
	}
	return rebind(stack.Push(history.NewView(top.Handle, menu)), top.Handle, h), nil
}

func (e *Engine) back(ctx context.Context, stack history.Stack) (history.Stack, error) {
	handle := stack.Top().Handle
	prev := stack.Pop()
	target := prev.Top()
	h, err := e.transport.EditMenu(ctx, handle, target.Text, target.Rows)
	if err != nil {
		return stack, fmt.Errorf("%w: edit menu %q: %v", ErrDeliveryFailed, target.Menu, err)
	}
	return rebind(prev, handle, h), nil
}

func (e *Engine) home(ctx context.Context, stack history.Stack) (history.Stack, error) {
	handle := stack.Top().Handle
	root := e.catalog.Root()
	h, err := e.transport.EditMenu(ctx, handle, root.Text, root.Rows)
	if err != nil {
		return stack, fmt.Errorf("%w: edit menu %q: %v", ErrDeliveryFailed, root.Key, err)
	}
	if h.IsZero() {
		h = handle
	}
	return history.NewStack(history.NewView(h, root)), nil
}

// commit stores next under the key of its top handle, dropping the old
// entry when the transport moved the conversation to a new message.
func (e *Engine) commit(oldKey string, next history.Stack) {
	newKey := next.Top().Handle.Key()
	if newKey != oldKey {
		e.store.Delete(oldKey)
	}
	e.store.Put(newKey, next)
}

func (e *Engine) notify(ctx context.Context, n Notice) {
	if n.CallbackID == "" && n.Text == "" {
		return
	}
	if err := e.transport.Notify(ctx, n); err != nil {
		logger.Warn(ctx, logComponent, "nav.notify",
			slog.String("status", "error"),
			slog.String("error", err.Error()),
		)
	}
}

// Depth returns the recorded history depth of the message h.
func (e *Engine) Depth(h history.MessageHandle) (int, error) {
	s, ok := e.store.Get(h.Key())
	if !ok {
		return 0, ErrNoHistory
	}
	return s.Depth(), nil
}

// View returns the menu currently recorded on top of the message h.
func (e *Engine) View(h history.MessageHandle) (*history.View, error) {
	s, ok := e.store.Get(h.Key())
	if !ok {
		return nil, ErrNoHistory
	}
	return s.Top(), nil
}

func rebind(s history.Stack, old, h history.MessageHandle) history.Stack {
	if h.IsZero() || h == old {
		return s
	}
	return s.Rebind(h)
}

func (e *Engine) logSelect(ctx context.Context, start time.Time, key string, kind Kind, depth int, err error) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("key", key),
		slog.String("action", kind.String()),
		slog.Int("depth", depth),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.Warn(ctx, logComponent, "nav.select", attrs...)
		return
	}
	logger.Debug(ctx, logComponent, "nav.select", attrs...)
}
