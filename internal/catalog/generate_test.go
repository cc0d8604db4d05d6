package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuildResourceSet_IBDChapters(t *testing.T) {
	got, err := BuildResourceSet("./resources", "ibd", 5, "ch", "courses", "")
	require.NoError(t, err)
	require.Len(t, got, 5)

	for i := 1; i <= 5; i++ {
		key := ResourceKey(fmt.Sprintf("ibd_ch%02d", i))
		entry, ok := got[key]
		require.True(t, ok, "missing %s", key)
		assert.Equal(t, key, entry.Key)
		assert.Equal(t, filepath.Join("resources", "courses", string(key)+".pdf"), entry.Path)
	}
}

func TestBuildResourceSet_Extension(t *testing.T) {
	got, err := BuildResourceSet("/srv/res", "java", 1, "tp", "java/tps", ".txt")
	require.NoError(t, err)
	assert.Equal(t, "/srv/res/java/tps/java_tp01.txt", got["java_tp01"].Path)
}

func TestGenerators_RejectInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"resources zero count", func() error {
			_, err := BuildResourceSet("r", "ibd", 0, "ch", "courses", "")
			return err
		}},
		{"resources empty course", func() error {
			_, err := BuildResourceSet("r", "", 3, "ch", "courses", "")
			return err
		}},
		{"list negative count", func() error {
			_, err := BuildListMenu("ibd", "tp", -1)
			return err
		}},
		{"list empty tag", func() error {
			_, err := BuildListMenu("ibd", " ", 2)
			return err
		}},
		{"content empty course", func() error {
			_, err := BuildContentMenu("", DefaultContentFlags())
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}
}

func TestBuildListMenu_Layout(t *testing.T) {
	menus, err := BuildListMenu("ibd", "ch", 3)
	require.NoError(t, err)
	m := menus["ibd_courses"]
	require.NotNil(t, m)

	want := [][]OptionRef{
		{{Label: "chapitre1", Target: "ibd_ch01"}, {Label: "chapitre2", Target: "ibd_ch02"}},
		{{Label: "chapitre3", Target: "ibd_ch03"}},
		{{Label: "🏠", Target: KeyHome}, {Label: "🔙", Target: KeyBack}},
	}
	assert.Equal(t, want, m.Rows)
}

func TestBuildListMenu_KeysPerTag(t *testing.T) {
	tests := []struct {
		tag    string
		menu   MenuKey
		target string
		label  string
	}{
		{"ch", "ibd_courses", "ibd_ch01", "chapitre1"},
		{"tp", "ibd_tps", "ibd_tp01", "tp1"},
		{"tp_corr", "ibd_tps_corr", "ibd_tp_corr01", "tp1"},
		{"td", "ibd_tds", "ibd_td01", "td1"},
		{"td_corr", "ibd_tds_corr", "ibd_td_corr01", "td1"},
		{"extra", "ibd_extra", "ibd_extra01", "extra1"},
		{"qcm", "ibd_qcms", "ibd_qcm01", "qcm1"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			menus, err := BuildListMenu("ibd", tt.tag, 1)
			require.NoError(t, err)
			m, ok := menus[tt.menu]
			require.True(t, ok)
			assert.Equal(t, OptionRef{Label: tt.label, Target: tt.target}, m.Rows[0][0])
		})
	}
}

func TestBuildContentMenu_Flags(t *testing.T) {
	menus, err := BuildContentMenu("math", ContentFlags{Courses: true, TPs: true, Extra: true})
	require.NoError(t, err)
	m := menus["math"]
	require.NotNil(t, m)

	want := [][]OptionRef{
		{{Label: "cours", Target: "math_courses"}, {Label: "Tps", Target: "math_tps"}},
		{{Label: "extra", Target: "math_extra"}},
		NavigationRow(),
	}
	assert.Equal(t, want, m.Rows)
}

func TestBuildContentMenu_NoFlags(t *testing.T) {
	menus, err := BuildContentMenu("math", ContentFlags{})
	require.NoError(t, err)
	assert.Equal(t, [][]OptionRef{NavigationRow()}, menus["math"].Rows)
}

func TestListMenuProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		course := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "course")
		tag := rapid.SampledFrom([]string{"ch", "tp", "tp_corr", "td", "td_corr", "extra"}).Draw(t, "tag")
		count := rapid.IntRange(1, 60).Draw(t, "count")

		menus, err := BuildListMenu(course, tag, count)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(menus) != 1 {
			t.Fatalf("expected one menu, got %d", len(menus))
		}
		m := menus[ListMenuKey(course, tag)]
		if m == nil {
			t.Fatalf("menu %s missing", ListMenuKey(course, tag))
		}

		last := m.Rows[len(m.Rows)-1]
		if !reflect.DeepEqual(last, NavigationRow()) {
			t.Fatalf("last row is not navigation: %v", last)
		}
		items := 0
		for i, row := range m.Rows[:len(m.Rows)-1] {
			if len(row) == 0 || len(row) > 2 {
				t.Fatalf("row %d has %d options", i, len(row))
			}
			for _, opt := range row {
				if opt.IsNavigation() {
					t.Fatalf("navigation option outside the last row: %v", opt)
				}
				items++
				if want := string(ItemKey(course, tag, items)); opt.Target != want {
					t.Fatalf("option %d targets %s, want %s", items, opt.Target, want)
				}
			}
		}
		if items != count {
			t.Fatalf("got %d items, want %d", items, count)
		}

		again, _ := BuildListMenu(course, tag, count)
		if !reflect.DeepEqual(menus, again) {
			t.Fatalf("generator is not deterministic")
		}
	})
}

func TestResourceSetProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		course := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "course")
		count := rapid.IntRange(1, 99).Draw(t, "count")

		set, err := BuildResourceSet("root", course, count, "td", "f", "pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(set) != count {
			t.Fatalf("got %d resources, want %d", len(set), count)
		}
		for i := 1; i <= count; i++ {
			key := ItemKey(course, "td", i)
			if got := set[key].Path; got != filepath.Join("root", "f", string(key)+".pdf") {
				t.Fatalf("unexpected path %s", got)
			}
		}
	})
}
