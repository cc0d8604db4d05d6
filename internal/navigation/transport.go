package navigation

import (
	"context"
	"errors"

	"github.com/m3rciful/studybot/internal/catalog"
	"github.com/m3rciful/studybot/internal/history"
)

// ErrDeliveryFailed reports that the transport could not send or edit a message or file.
var ErrDeliveryFailed = errors.New("navigation: delivery failed")

// Notice is an ephemeral message. With a CallbackID it answers the button
// press; otherwise it is sent to the chat. An empty Text only acknowledges.
type Notice struct {
	ChatID     int64
	CallbackID string
	Text       string
}

// Transport is the messaging contract the engine drives.
type Transport interface {
	// SendMenu posts a new message carrying the option grid.
	SendMenu(ctx context.Context, chatID int64, text string, rows [][]catalog.OptionRef) (history.MessageHandle, error)
	// EditMenu replaces the text and grid of an existing message. The
	// returned handle differs from h only if the message was replaced.
	EditMenu(ctx context.Context, h history.MessageHandle, text string, rows [][]catalog.OptionRef) (history.MessageHandle, error)
	// SendDocument delivers the file at path.
	SendDocument(ctx context.Context, chatID int64, path string) error
	// Notify shows a notice or acknowledges a button press.
	Notify(ctx context.Context, n Notice) error
}
