package catalog

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"
)

// RootKey is the key of the semesters menu.
const RootKey MenuKey = "semesters"

const defaultRootText = "Veuillez choisir un semestre :"

// Definition declares the catalog in configuration.
//
//	catalog:
//	  semesters:
//	    - key: s1
//	      label: semestre 1
//	      modules:
//	        - key: ibd
//	          label: Bases de données
//	          content: {courses: 5, tps: 3}
type Definition struct {
	RootText  string        `yaml:"root_text"`
	Semesters []SemesterDef `yaml:"semesters"`
}

// SemesterDef declares one semester and its modules.
type SemesterDef struct {
	Key     string      `yaml:"key"`
	Label   string      `yaml:"label"`
	Modules []ModuleDef `yaml:"modules"`
}

// ModuleDef declares one module (course). Key doubles as the course name of
// generated keys and files.
type ModuleDef struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	// Folder overrides the directory below the resource root; defaults to Key.
	Folder    string        `yaml:"folder"`
	Extension string        `yaml:"extension"`
	Content   ContentCounts `yaml:"content"`
}

// ContentCounts holds the number of items per content type.
type ContentCounts struct {
	Courses int `yaml:"courses"`
	TPs     int `yaml:"tps"`
	TPsCorr int `yaml:"tps_corr"`
	TDs     int `yaml:"tds"`
	TDsCorr int `yaml:"tds_corr"`
	Extra   int `yaml:"extra"`
}

// Count returns the declared count for a content type flag name.
func (c ContentCounts) Count(flag string) int {
	switch flag {
	case "courses":
		return c.Courses
	case "tps":
		return c.TPs
	case "tps_corr":
		return c.TPsCorr
	case "tds":
		return c.TDs
	case "tds_corr":
		return c.TDsCorr
	case "extra":
		return c.Extra
	}
	return 0
}

// Flags enables every content type with a positive count. A module without
// any declared content falls back to DefaultContentFlags so its menu shows
// placeholders.
func (c ContentCounts) Flags() ContentFlags {
	f := ContentFlags{
		Courses: c.Courses > 0,
		TPs:     c.TPs > 0,
		TPsCorr: c.TPsCorr > 0,
		TDs:     c.TDs > 0,
		TDsCorr: c.TDsCorr > 0,
		Extra:   c.Extra > 0,
	}
	if !f.Any() {
		return DefaultContentFlags()
	}
	return f
}

// Build expands the definition into a Catalog whose resources live under resourceRoot.
func Build(def Definition, resourceRoot string) (*Catalog, error) {
	b := NewBuilder()

	rootText := strings.TrimSpace(def.RootText)
	if rootText == "" {
		rootText = defaultRootText
	}
	semesterOpts := make([]OptionRef, 0, len(def.Semesters))
	for _, sem := range def.Semesters {
		semesterOpts = append(semesterOpts, OptionRef{Label: labelOr(sem.Label, sem.Key), Target: sem.Key})
	}
	b.SetRoot(&MenuEntry{Key: RootKey, Text: rootText, Rows: chunkRows(semesterOpts)})

	for _, sem := range def.Semesters {
		addSemester(b, sem, resourceRoot)
	}
	return b.Build()
}

func addSemester(b *Builder, sem SemesterDef, resourceRoot string) {
	if strings.TrimSpace(sem.Key) == "" {
		b.fail("semester without key")
		return
	}
	label := labelOr(sem.Label, sem.Key)
	opts := make([]OptionRef, 0, len(sem.Modules))
	for _, mod := range sem.Modules {
		opts = append(opts, OptionRef{Label: labelOr(mod.Label, mod.Key), Target: mod.Key})
	}
	b.AddMenus(map[MenuKey]*MenuEntry{
		MenuKey(sem.Key): {
			Key:  MenuKey(sem.Key),
			Text: fmt.Sprintf("📍 <i>%s > modules</i> :", html.EscapeString(label)),
			Rows: withNavigation(chunkRows(opts)),
		},
	})
	b.AddShortcut("/"+sem.Key, "modules du "+label, MenuKey(sem.Key))

	for _, mod := range sem.Modules {
		addModule(b, mod, resourceRoot)
	}
}

func addModule(b *Builder, mod ModuleDef, resourceRoot string) {
	course := strings.TrimSpace(mod.Key)
	label := html.EscapeString(labelOr(mod.Label, course))

	content, err := BuildContentMenu(course, mod.Content.Flags())
	if err != nil {
		b.Fail(err)
		return
	}
	for _, m := range content {
		m.Text = fmt.Sprintf("📍 <i>%s</i> :", label)
	}
	b.AddMenus(content)

	folder := strings.TrimSpace(mod.Folder)
	if folder == "" {
		folder = course
	}
	for _, ct := range ContentTypes {
		n := mod.Content.Count(ct.Flag)
		if n == 0 {
			continue
		}
		resources, err := BuildResourceSet(resourceRoot, course, n, ct.Tag, filepath.Join(folder, ct.Flag), mod.Extension)
		if err != nil {
			b.Fail(err)
			continue
		}
		list, err := BuildListMenu(course, ct.Tag, n)
		if err != nil {
			b.Fail(err)
			continue
		}
		for _, m := range list {
			m.Text = fmt.Sprintf("📍 <i>%s > %s</i> :", label, ct.Button)
		}
		b.AddResources(resources)
		b.AddMenus(list)
	}
}

func labelOr(label, fallback string) string {
	if l := strings.TrimSpace(label); l != "" {
		return l
	}
	return fallback
}
