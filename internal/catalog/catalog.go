// Package catalog holds the immutable menu and resource catalogs the bot
// navigates, together with the generators that expand compact course
// declarations into full entries.
package catalog

import (
	"errors"
	"sort"
)

var (
	// ErrNotFound reports a key absent from a catalog.
	ErrNotFound = errors.New("catalog: key not found")
	// ErrConfiguration reports invalid generator input or catalog definition.
	ErrConfiguration = errors.New("catalog: invalid configuration")
)

// Reserved selection codes handled by the navigation engine, never by a catalog.
const (
	KeyHome = "home"
	KeyBack = "back"
)

// CallbackNamespace is the callback unique of navigation buttons. Telegram
// caps callback_data at 64 bytes and telebot sends "\f<unique>|<target>",
// so targets longer than MaxTargetLen cannot be rendered.
const (
	CallbackNamespace = "nav"
	MaxTargetLen      = 64 - len("\f"+CallbackNamespace+"|")
)

const (
	homeLabel = "🏠"
	backLabel = "🔙"
)

// MenuKey identifies a menu.
type MenuKey string

// ResourceKey identifies a downloadable file.
type ResourceKey string

// OptionRef is one selectable button. Target is looked up in menus first, then resources.
type OptionRef struct {
	Label  string `json:"label" yaml:"label"`
	Target string `json:"target" yaml:"target"`
}

// IsNavigation reports whether the option is the home or back button.
func (o OptionRef) IsNavigation() bool {
	return o.Target == KeyHome || o.Target == KeyBack
}

// MenuEntry is a renderable button grid. Rows keep presentation order.
// Entries are shared across conversations and must not be mutated.
type MenuEntry struct {
	Key  MenuKey       `json:"key" yaml:"key"`
	Text string        `json:"text" yaml:"text"`
	Rows [][]OptionRef `json:"rows" yaml:"rows"`
}

// Options returns every option in row-major order.
func (m *MenuEntry) Options() []OptionRef {
	if m == nil {
		return nil
	}
	var out []OptionRef
	for _, row := range m.Rows {
		out = append(out, row...)
	}
	return out
}

// ResourceEntry maps a resource key to its file.
type ResourceEntry struct {
	Key  ResourceKey `json:"key" yaml:"key"`
	Path string      `json:"path" yaml:"path"`
}

// Shortcut binds a slash command to a menu shown as a fresh root-level view.
type Shortcut struct {
	Command     string  `json:"command" yaml:"command"`
	Description string  `json:"description" yaml:"description"`
	Menu        MenuKey `json:"menu" yaml:"menu"`
}

// Catalog is the read-only union of menus and resources built at startup.
type Catalog struct {
	root      MenuKey
	menus     map[MenuKey]*MenuEntry
	resources map[ResourceKey]ResourceEntry
	shortcuts []Shortcut
}

// Root returns the top menu shown by /start and "home".
func (c *Catalog) Root() *MenuEntry {
	return c.menus[c.root]
}

// Menu looks up a menu by key.
func (c *Catalog) Menu(key string) (*MenuEntry, error) {
	if m, ok := c.menus[MenuKey(key)]; ok {
		return m, nil
	}
	return nil, ErrNotFound
}

// Resource looks up a resource by key.
func (c *Catalog) Resource(key string) (ResourceEntry, error) {
	if r, ok := c.resources[ResourceKey(key)]; ok {
		return r, nil
	}
	return ResourceEntry{}, ErrNotFound
}

// Shortcuts returns the registered semester shortcuts in declaration order.
func (c *Catalog) Shortcuts() []Shortcut {
	return append([]Shortcut(nil), c.shortcuts...)
}

// Menus returns all menus sorted by key.
func (c *Catalog) Menus() []*MenuEntry {
	out := make([]*MenuEntry, 0, len(c.menus))
	for _, m := range c.menus {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Resources returns all resources sorted by key.
func (c *Catalog) Resources() []ResourceEntry {
	out := make([]ResourceEntry, 0, len(c.resources))
	for _, r := range c.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Dangling lists option targets that resolve to neither catalog.
// Such targets are placeholders for content not authored yet.
func (c *Catalog) Dangling() []string {
	seen := make(map[string]struct{})
	for _, m := range c.menus {
		for _, opt := range m.Options() {
			if opt.IsNavigation() {
				continue
			}
			if _, ok := c.menus[MenuKey(opt.Target)]; ok {
				continue
			}
			if _, ok := c.resources[ResourceKey(opt.Target)]; ok {
				continue
			}
			seen[opt.Target] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Stats summarises catalog sizes for logs.
type Stats struct {
	Menus     int
	Resources int
	Shortcuts int
	Dangling  int
}

// Stats returns catalog sizes.
func (c *Catalog) Stats() Stats {
	return Stats{
		Menus:     len(c.menus),
		Resources: len(c.resources),
		Shortcuts: len(c.shortcuts),
		Dangling:  len(c.Dangling()),
	}
}

// Snapshot is an exportable view of the whole catalog.
type Snapshot struct {
	Root      MenuKey         `json:"root" yaml:"root"`
	Menus     []*MenuEntry    `json:"menus" yaml:"menus"`
	Resources []ResourceEntry `json:"resources" yaml:"resources"`
	Shortcuts []Shortcut      `json:"shortcuts" yaml:"shortcuts"`
	Dangling  []string        `json:"dangling,omitempty" yaml:"dangling,omitempty"`
}

// Snapshot returns every entry in deterministic order.
func (c *Catalog) Snapshot() Snapshot {
	return Snapshot{
		Root:      c.root,
		Menus:     c.Menus(),
		Resources: c.Resources(),
		Shortcuts: c.Shortcuts(),
		Dangling:  c.Dangling(),
	}
}
