package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Builder accumulates generated entries and validates them into a Catalog.
// Errors are collected and reported together by Build.
type Builder struct {
	root      MenuKey
	menus     map[MenuKey]*MenuEntry
	resources map[ResourceKey]ResourceEntry
	shortcuts []Shortcut
	errs      []error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		menus:     make(map[MenuKey]*MenuEntry),
		resources: make(map[ResourceKey]ResourceEntry),
	}
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...)))
}

// Fail records an error returned by a generator.
func (b *Builder) Fail(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// SetRoot registers the root menu.
func (b *Builder) SetRoot(entry *MenuEntry) *Builder {
	if entry == nil {
		b.fail("nil root menu")
		return b
	}
	b.addMenu(entry)
	b.root = entry.Key
	return b
}

// AddMenus merges generated menus. Duplicate keys are configuration errors.
func (b *Builder) AddMenus(menus map[MenuKey]*MenuEntry) *Builder {
	for _, m := range menus {
		b.addMenu(m)
	}
	return b
}

func (b *Builder) addMenu(m *MenuEntry) {
	if m == nil {
		b.fail("nil menu entry")
		return
	}
	if err := checkKey(string(m.Key)); err != nil {
		b.Fail(err)
		return
	}
	if _, dup := b.menus[m.Key]; dup {
		b.fail("duplicate menu key %q", m.Key)
		return
	}
	b.menus[m.Key] = m
}

// AddResources merges generated resources. Duplicate keys are configuration errors.
func (b *Builder) AddResources(resources map[ResourceKey]ResourceEntry) *Builder {
	for k, r := range resources {
		if err := checkKey(string(k)); err != nil {
			b.Fail(err)
			continue
		}
		if _, dup := b.resources[k]; dup {
			b.fail("duplicate resource key %q", k)
			continue
		}
		b.resources[k] = r
	}
	return b
}

// AddShortcut binds a slash command to a menu.
func (b *Builder) AddShortcut(command, description string, menu MenuKey) *Builder {
	if !strings.HasPrefix(command, "/") || len(command) < 2 {
		b.fail("shortcut %q must start with '/'", command)
		return b
	}
	for _, s := range b.shortcuts {
		if s.Command == command {
			b.fail("duplicate shortcut %q", command)
			return b
		}
	}
	b.shortcuts = append(b.shortcuts, Shortcut{Command: command, Description: description, Menu: menu})
	return b
}

// Build validates the collected entries and freezes them.
func (b *Builder) Build() (*Catalog, error) {
	if b.root == "" {
		b.fail("root menu not set")
	}
	for k := range b.menus {
		if _, clash := b.resources[ResourceKey(k)]; clash {
			b.fail("key %q registered as both menu and resource", k)
		}
	}
	for _, m := range b.menus {
		for _, opt := range m.Options() {
			if len(opt.Target) > MaxTargetLen {
				b.fail("menu %q: target %q is %d bytes, callback data allows %d", m.Key, opt.Target, len(opt.Target), MaxTargetLen)
			}
		}
	}
	for _, s := range b.shortcuts {
		if _, ok := b.menus[s.Menu]; !ok {
			b.fail("shortcut %s targets unknown menu %q", s.Command, s.Menu)
		}
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return &Catalog{
		root:      b.root,
		menus:     b.menus,
		resources: b.resources,
		shortcuts: append([]Shortcut(nil), b.shortcuts...),
	}, nil
}

func checkKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("%w: empty key", ErrConfiguration)
	case key == KeyHome || key == KeyBack:
		return fmt.Errorf("%w: key %q is reserved", ErrConfiguration, key)
	}
	return nil
}
