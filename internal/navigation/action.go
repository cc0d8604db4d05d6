// Package navigation implements the menu state machine: it resolves a
// pressed button into an action, drives the transport and records the
// displayed menus so "back" can return to them.
package navigation

import (
	"github.com/m3rciful/studybot/internal/catalog"
)

// Kind enumerates the outcomes of resolving a selection.
type Kind int

const (
	// Unresolved means the key names nothing; the user is told the content is unavailable.
	Unresolved Kind = iota
	// GoHome resets the conversation to the root menu.
	GoHome
	// GoBack returns to the previously displayed menu.
	GoBack
	// ShowMenu displays another menu.
	ShowMenu
	// DeliverResource sends a file.
	DeliverResource
)

// String returns the metric/log label of the kind.
func (k Kind) String() string {
	switch k {
	case GoHome:
		return "home"
	case GoBack:
		return "back"
	case ShowMenu:
		return "menu"
	case DeliverResource:
		return "resource"
	default:
		return "unresolved"
	}
}

// Action is the tagged result of Resolve. Menu is set for ShowMenu and
// Resource for DeliverResource.
type Action struct {
	Kind     Kind
	Key      string
	Menu     *catalog.MenuEntry
	Resource catalog.ResourceEntry
}

// Lookup is the read side of the catalogs the engine needs.
type Lookup interface {
	Root() *catalog.MenuEntry
	Menu(key string) (*catalog.MenuEntry, error)
	Resource(key string) (catalog.ResourceEntry, error)
}

// Resolve maps a selection key to an action. Reserved codes win, then
// menus, then resources.
func Resolve(l Lookup, key string) Action {
	switch key {
	case catalog.KeyHome:
		return Action{Kind: GoHome, Key: key}
	case catalog.KeyBack:
		return Action{Kind: GoBack, Key: key}
	}
	if m, err := l.Menu(key); err == nil {
		return Action{Kind: ShowMenu, Key: key, Menu: m}
	}
	if r, err := l.Resource(key); err == nil {
		return Action{Kind: DeliverResource, Key: key, Resource: r}
	}
	return Action{Kind: Unresolved, Key: key}
}
