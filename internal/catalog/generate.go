package catalog

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	rowWidth         = 2
	defaultExtension = "pdf"
)

// ContentType describes one kind of course material.
type ContentType struct {
	// Flag names the content menu option and the list menu suffix.
	Flag string
	// Tag prefixes resource keys: {course}_{tag}{NN}.
	Tag string
	// Button is the label shown in the content menu.
	Button string
	// Item prefixes the numbered buttons of the list menu.
	Item string
}

// ContentTypes lists supported material kinds in content menu order.
var ContentTypes = []ContentType{
	{Flag: "courses", Tag: "ch", Button: "cours", Item: "chapitre"},
	{Flag: "tps", Tag: "tp", Button: "Tps", Item: "tp"},
	{Flag: "tps_corr", Tag: "tp_corr", Button: "Tps (correction)", Item: "tp"},
	{Flag: "tds", Tag: "td", Button: "Tds", Item: "td"},
	{Flag: "tds_corr", Tag: "td_corr", Button: "Tds (correction)", Item: "td"},
	{Flag: "extra", Tag: "extra", Button: "extra", Item: "extra"},
}

func contentTypeByTag(tag string) (ContentType, bool) {
	for _, ct := range ContentTypes {
		if ct.Tag == tag {
			return ct, true
		}
	}
	return ContentType{}, false
}

// ContentFlags selects which content types a module offers.
// The zero value offers nothing; DefaultContentFlags matches an undeclared module.
type ContentFlags struct {
	Courses bool `yaml:"courses"`
	TPs     bool `yaml:"tps"`
	TPsCorr bool `yaml:"tps_corr"`
	TDs     bool `yaml:"tds"`
	TDsCorr bool `yaml:"tds_corr"`
	Extra   bool `yaml:"extra"`
}

// DefaultContentFlags enables courses and TPs.
func DefaultContentFlags() ContentFlags {
	return ContentFlags{Courses: true, TPs: true}
}

// Enabled reports the flag for a content type flag name.
func (f ContentFlags) Enabled(flag string) bool {
	switch flag {
	case "courses":
		return f.Courses
	case "tps":
		return f.TPs
	case "tps_corr":
		return f.TPsCorr
	case "tds":
		return f.TDs
	case "tds_corr":
		return f.TDsCorr
	case "extra":
		return f.Extra
	}
	return false
}

// Any reports whether at least one flag is set.
func (f ContentFlags) Any() bool {
	return f.Courses || f.TPs || f.TPsCorr || f.TDs || f.TDsCorr || f.Extra
}

// ItemKey returns the resource key of the i-th item: {course}_{tag}{NN}.
func ItemKey(course, tag string, i int) ResourceKey {
	return ResourceKey(fmt.Sprintf("%s_%s%02d", course, tag, i))
}

// ListMenuKey returns the key of the list menu for a tag: {course}_{plural}.
func ListMenuKey(course, tag string) MenuKey {
	return MenuKey(course + "_" + pluralTag(tag))
}

func pluralTag(tag string) string {
	if ct, ok := contentTypeByTag(tag); ok {
		return ct.Flag
	}
	return tag + "s"
}

func itemLabel(tag string) string {
	if ct, ok := contentTypeByTag(tag); ok {
		return ct.Item
	}
	return tag
}

// BuildResourceSet generates count resources {course}_{tag}01.. located at
// {root}/{folder}/{key}.{ext}. An empty ext means pdf.
func BuildResourceSet(root, course string, count int, tag, folder, ext string) (map[ResourceKey]ResourceEntry, error) {
	if err := checkGeneratorInput(course, tag, count); err != nil {
		return nil, err
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = defaultExtension
	}
	out := make(map[ResourceKey]ResourceEntry, count)
	for i := 1; i <= count; i++ {
		key := ItemKey(course, tag, i)
		out[key] = ResourceEntry{
			Key:  key,
			Path: filepath.Join(root, folder, string(key)+"."+ext),
		}
	}
	return out, nil
}

// BuildListMenu generates the numbered menu pointing at the resources of one tag.
func BuildListMenu(course, tag string, count int) (map[MenuKey]*MenuEntry, error) {
	if err := checkGeneratorInput(course, tag, count); err != nil {
		return nil, err
	}
	label := itemLabel(tag)
	opts := make([]OptionRef, 0, count)
	for i := 1; i <= count; i++ {
		opts = append(opts, OptionRef{
			Label:  fmt.Sprintf("%s%d", label, i),
			Target: string(ItemKey(course, tag, i)),
		})
	}
	key := ListMenuKey(course, tag)
	return map[MenuKey]*MenuEntry{
		key: {
			Key:  key,
			Text: fmt.Sprintf("📍 <i>%s > %s</i> :", course, pluralTag(tag)),
			Rows: withNavigation(chunkRows(opts)),
		},
	}, nil
}

// BuildContentMenu generates the per-module menu of enabled content types.
func BuildContentMenu(course string, flags ContentFlags) (map[MenuKey]*MenuEntry, error) {
	if strings.TrimSpace(course) == "" {
		return nil, fmt.Errorf("%w: empty course name", ErrConfiguration)
	}
	var opts []OptionRef
	for _, ct := range ContentTypes {
		if !flags.Enabled(ct.Flag) {
			continue
		}
		opts = append(opts, OptionRef{Label: ct.Button, Target: course + "_" + ct.Flag})
	}
	key := MenuKey(course)
	return map[MenuKey]*MenuEntry{
		key: {
			Key:  key,
			Text: fmt.Sprintf("📍 <i>%s</i> :", course),
			Rows: withNavigation(chunkRows(opts)),
		},
	}, nil
}

// NavigationRow returns the trailing home/back row of every generated menu.
func NavigationRow() []OptionRef {
	return []OptionRef{
		{Label: homeLabel, Target: KeyHome},
		{Label: backLabel, Target: KeyBack},
	}
}

func chunkRows(opts []OptionRef) [][]OptionRef {
	rows := make([][]OptionRef, 0, (len(opts)+rowWidth-1)/rowWidth+1)
	for i := 0; i < len(opts); i += rowWidth {
		end := i + rowWidth
		if end > len(opts) {
			end = len(opts)
		}
		rows = append(rows, append([]OptionRef(nil), opts[i:end]...))
	}
	return rows
}

func withNavigation(rows [][]OptionRef) [][]OptionRef {
	return append(rows, NavigationRow())
}

func checkGeneratorInput(course, tag string, count int) error {
	if strings.TrimSpace(course) == "" {
		return fmt.Errorf("%w: empty course name", ErrConfiguration)
	}
	if strings.TrimSpace(tag) == "" {
		return fmt.Errorf("%w: empty type tag for %s", ErrConfiguration, course)
	}
	if count < 1 {
		return fmt.Errorf("%w: %s_%s count must be >= 1, got %d", ErrConfiguration, course, tag, count)
	}
	return nil
}
