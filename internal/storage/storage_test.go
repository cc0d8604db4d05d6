package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/studybot/internal/catalog"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestInventoryScanAndMissing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ibd", "courses", "ibd_ch01.pdf"), "a")
	writeFile(t, filepath.Join(root, "ibd", "courses", "ibd_ch02.pdf"), "b")

	inv, err := NewInventory(root)
	require.NoError(t, err)
	require.NoError(t, inv.Scan())
	assert.Equal(t, 2, inv.Len())
	assert.True(t, inv.Has(filepath.Join(root, "ibd", "courses", "ibd_ch01.pdf")))
	assert.False(t, inv.Has(filepath.Join(root, "ibd")))
	assert.False(t, inv.Has(filepath.Join(root, "..", "elsewhere.pdf")))

	resources := []catalog.ResourceEntry{
		{Key: "ibd_ch03", Path: filepath.Join(root, "ibd", "courses", "ibd_ch03.pdf")},
		{Key: "ibd_ch01", Path: filepath.Join(root, "ibd", "courses", "ibd_ch01.pdf")},
		{Key: "ibd_ch00", Path: filepath.Join(root, "ibd", "courses", "ibd_ch00.pdf")},
	}
	missing := inv.Missing(resources)
	require.Len(t, missing, 2)
	assert.Equal(t, catalog.ResourceKey("ibd_ch00"), missing[0].Key)
	assert.Equal(t, catalog.ResourceKey("ibd_ch03"), missing[1].Key)
}

func TestInventoryScanMissingRoot(t *testing.T) {
	inv, err := NewInventory(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	require.NoError(t, inv.Scan())
	assert.Zero(t, inv.Len())
}

func TestInventoryRemoveDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "x.pdf"), "x")
	writeFile(t, filepath.Join(root, "a", "b", "y.pdf"), "y")
	writeFile(t, filepath.Join(root, "ab.pdf"), "z")

	inv, err := NewInventory(root)
	require.NoError(t, err)
	require.NoError(t, inv.Scan())
	require.Equal(t, 3, inv.Len())

	inv.remove(filepath.Join(root, "a"))
	assert.Equal(t, 1, inv.Len())
	assert.True(t, inv.Has(filepath.Join(root, "ab.pdf")))
}

func TestInventoryWatchTracksChanges(t *testing.T) {
	root := t.TempDir()
	inv, err := NewInventory(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- inv.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Watch registers the root before it reacts to events; wait until a
	// file created at the top level shows up.
	top := filepath.Join(root, "top.pdf")
	require.Eventually(t, func() bool {
		if inv.Has(top) {
			return true
		}
		_ = os.WriteFile(top, []byte("t"), 0o644)
		return false
	}, 5*time.Second, 50*time.Millisecond)

	nested := filepath.Join(root, "s1", "ibd", "ibd_ch01.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(nested), 0o755))
	writeFile(t, nested, "n")
	require.Eventually(t, func() bool { return inv.Has(nested) }, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, os.Remove(top))
	require.Eventually(t, func() bool { return !inv.Has(top) }, 5*time.Second, 50*time.Millisecond)
}

func TestCleanRelative(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"ibd/courses/ibd_ch01.pdf", "ibd/courses/ibd_ch01.pdf", true},
		{" ibd//courses/./x.pdf ", "ibd/courses/x.pdf", true},
		{`ibd\tps\x.pdf`, "ibd/tps/x.pdf", true},
		{"", "", false},
		{"/etc/passwd", "", false},
		{"../secret.pdf", "", false},
		{"ibd/../../x.pdf", "", false},
		{"ibd/", "", false},
		{".", "", false},
	}
	for _, tc := range cases {
		got, err := CleanRelative(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidPath, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestUploadTargetPrefersCaption(t *testing.T) {
	got, err := UploadTarget("ibd/courses/ibd_ch01.pdf", "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "ibd/courses/ibd_ch01.pdf", got)

	got, err = UploadTarget("  ", "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "scan.pdf", got)

	_, err = UploadTarget("", "")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestSaveUpload(t *testing.T) {
	root := t.TempDir()
	dst, n, err := SaveUpload(root, "ibd/tps/ibd_tp01.pdf", strings.NewReader("content"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, filepath.Join(root, "ibd", "tps", "ibd_tp01.pdf"), dst)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")

	_, _, err = SaveUpload(root, "../escape.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestNopLedger(t *testing.T) {
	var l Ledger = NopLedger{}
	assert.False(t, l.Enabled())
	u, err := l.Record(context.Background(), Upload{Path: "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", u.Path)
	recent, err := l.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
