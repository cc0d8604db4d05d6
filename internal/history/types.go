// Package history keeps the per-conversation navigation stacks in memory.
package history

import (
	"strconv"

	"github.com/m3rciful/studybot/internal/catalog"
)

// MessageHandle addresses a sent menu message. It satisfies telebot's
// Editable interface through MessageSig.
type MessageHandle struct {
	ChatID    int64
	MessageID string
}

// MessageSig returns the message and chat identifiers.
func (h MessageHandle) MessageSig() (string, int64) {
	return h.MessageID, h.ChatID
}

// IsZero reports whether the handle points nowhere.
func (h MessageHandle) IsZero() bool {
	return h.ChatID == 0 && h.MessageID == ""
}

// Key is the store key of the conversation displayed in this message.
func (h MessageHandle) Key() string {
	return strconv.FormatInt(h.ChatID, 10) + ":" + h.MessageID
}

// View is one displayed menu. Views are never mutated after creation.
type View struct {
	Handle MessageHandle
	Menu   catalog.MenuKey
	Text   string
	Rows   [][]catalog.OptionRef
}

// NewView renders a menu entry into a view bound to handle.
func NewView(handle MessageHandle, entry *catalog.MenuEntry) *View {
	return &View{
		Handle: handle,
		Menu:   entry.Key,
		Text:   entry.Text,
		Rows:   entry.Rows,
	}
}

// WithHandle returns a copy of the view bound to another message.
func (v *View) WithHandle(h MessageHandle) *View {
	c := *v
	c.Handle = h
	return &c
}

// Stack is an ordered list of views, root first. Methods never modify the
// receiver; they return a new Stack.
type Stack struct {
	views []*View
}

// NewStack returns a stack holding only root.
func NewStack(root *View) Stack {
	return Stack{views: []*View{root}}
}

// Depth returns the number of views.
func (s Stack) Depth() int {
	return len(s.views)
}

// Top returns the displayed view, nil for an empty stack.
func (s Stack) Top() *View {
	if len(s.views) == 0 {
		return nil
	}
	return s.views[len(s.views)-1]
}

// Root returns the oldest view.
func (s Stack) Root() *View {
	if len(s.views) == 0 {
		return nil
	}
	return s.views[0]
}

// Views returns a copy of the views, root first.
func (s Stack) Views() []*View {
	return append([]*View(nil), s.views...)
}

// Push appends v.
func (s Stack) Push(v *View) Stack {
	views := make([]*View, len(s.views), len(s.views)+1)
	copy(views, s.views)
	return Stack{views: append(views, v)}
}

// Pop drops the top view. A stack of depth one is returned unchanged.
func (s Stack) Pop() Stack {
	if len(s.views) <= 1 {
		return s
	}
	return Stack{views: append([]*View(nil), s.views[:len(s.views)-1]...)}
}

// Rebind moves every view to handle, used when the menu message was replaced.
func (s Stack) Rebind(handle MessageHandle) Stack {
	views := make([]*View, len(s.views))
	for i, v := range s.views {
		if v.Handle == handle {
			views[i] = v
			continue
		}
		views[i] = v.WithHandle(handle)
	}
	return Stack{views: views}
}
