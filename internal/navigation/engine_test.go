package navigation

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/m3rciful/studybot/internal/catalog"
	"github.com/m3rciful/studybot/internal/history"
)

const chatID int64 = 777

type call struct {
	op   string
	text string
	path string
}

type fakeTransport struct {
	mu        sync.Mutex
	nextID    int
	calls     []call
	notices   []Notice
	failSend  bool
	failEdit  bool
	failDoc   bool
	replaceOn bool
}

var errBoom = errors.New("boom")

func (f *fakeTransport) SendMenu(_ context.Context, chat int64, text string, _ [][]catalog.OptionRef) (history.MessageHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "send", text: text})
	if f.failSend {
		return history.MessageHandle{}, errBoom
	}
	f.nextID++
	return history.MessageHandle{ChatID: chat, MessageID: strconv.Itoa(f.nextID)}, nil
}

func (f *fakeTransport) EditMenu(_ context.Context, h history.MessageHandle, text string, _ [][]catalog.OptionRef) (history.MessageHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "edit", text: text})
	if f.failEdit {
		return history.MessageHandle{}, errBoom
	}
	if f.replaceOn {
		f.nextID++
		return history.MessageHandle{ChatID: h.ChatID, MessageID: strconv.Itoa(f.nextID)}, nil
	}
	return h, nil
}

func (f *fakeTransport) SendDocument(_ context.Context, _ int64, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "doc", path: path})
	if f.failDoc {
		return errBoom
	}
	return nil
}

func (f *fakeTransport) Notify(_ context.Context, n Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	return nil
}

func (f *fakeTransport) lastNotice() Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.notices) == 0 {
		return Notice{}
	}
	return f.notices[len(f.notices)-1]
}

func testCatalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Build(catalog.Definition{
		Semesters: []catalog.SemesterDef{
			{Key: "s1", Label: "semestre 1", Modules: []catalog.ModuleDef{
				{Key: "ibd", Label: "Bases de données", Content: catalog.ContentCounts{Courses: 5, TPs: 3}},
				{Key: "algo", Label: "Algorithmique"},
			}},
			{Key: "s2", Label: "semestre 2", Modules: []catalog.ModuleDef{
				{Key: "java", Label: "Java", Content: catalog.ContentCounts{Courses: 2}},
			}},
		},
	}, "res")
	require.NoError(t, err)
	return cat
}

func newEngine(t testing.TB) (*Engine, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	e, err := New(Options{Catalog: testCatalog(t), Transport: tr})
	require.NoError(t, err)
	return e, tr
}

func press(t testing.TB, e *Engine, h history.MessageHandle, key string) Outcome {
	t.Helper()
	out, err := e.Select(context.Background(), Selection{Handle: h, CallbackID: "cb", Key: key})
	require.NoError(t, err)
	return out
}

func TestResolve(t *testing.T) {
	cat := testCatalog(t)
	cases := map[string]Kind{
		"home":          GoHome,
		"back":          GoBack,
		"s1":            ShowMenu,
		"ibd":           ShowMenu,
		"ibd_courses":   ShowMenu,
		"ibd_ch03":      DeliverResource,
		"algo_courses":  Unresolved,
		"does_not_help": Unresolved,
		"":              Unresolved,
	}
	for key, want := range cases {
		got := Resolve(cat, key)
		assert.Equal(t, want, got.Kind, key)
		assert.Equal(t, key, got.Key)
	}
	res := Resolve(cat, "ibd_tp02").Resource
	assert.Equal(t, "res/ibd/tps/ibd_tp02.pdf", res.Path)
}

func TestResolve_MenuWinsOverResource(t *testing.T) {
	l := stubLookup{
		root:      &catalog.MenuEntry{Key: "root"},
		menus:     map[string]*catalog.MenuEntry{"x": {Key: "x"}},
		resources: map[string]catalog.ResourceEntry{"x": {Key: "x", Path: "x.pdf"}},
	}
	assert.Equal(t, ShowMenu, Resolve(l, "x").Kind)
}

type stubLookup struct {
	root      *catalog.MenuEntry
	menus     map[string]*catalog.MenuEntry
	resources map[string]catalog.ResourceEntry
}

func (s stubLookup) Root() *catalog.MenuEntry { return s.root }

func (s stubLookup) Menu(key string) (*catalog.MenuEntry, error) {
	if m, ok := s.menus[key]; ok {
		return m, nil
	}
	return nil, catalog.ErrNotFound
}

func (s stubLookup) Resource(key string) (catalog.ResourceEntry, error) {
	if r, ok := s.resources[key]; ok {
		return r, nil
	}
	return catalog.ResourceEntry{}, catalog.ErrNotFound
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Options{Transport: &fakeTransport{}})
	assert.Error(t, err)
	_, err = New(Options{Catalog: testCatalog(t)})
	assert.Error(t, err)
	_, err = New(Options{Catalog: stubLookup{}, Transport: &fakeTransport{}})
	assert.Error(t, err)
}

func TestStart_SendsRoot(t *testing.T) {
	e, tr := newEngine(t)
	out, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Depth)
	assert.Equal(t, catalog.RootKey, out.View.Menu)
	assert.Equal(t, "send", tr.calls[0].op)
	assert.Equal(t, 1, e.Conversations())

	depth, err := e.Depth(out.View.Handle)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestStart_TransportFailure(t *testing.T) {
	e, tr := newEngine(t)
	tr.failSend = true
	_, err := e.Start(context.Background(), chatID)
	require.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, 0, e.Conversations())
}

func TestShortcut(t *testing.T) {
	e, _ := newEngine(t)
	out, err := e.Shortcut(context.Background(), chatID, "s2")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Depth)
	assert.Equal(t, catalog.MenuKey("s2"), out.View.Menu)

	back := press(t, e, out.View.Handle, catalog.KeyBack)
	assert.Equal(t, GoBack, back.Action.Kind)
	assert.Equal(t, catalog.RootKey, back.View.Menu, "back at the bottom of a shortcut goes home")

	_, err = e.Shortcut(context.Background(), chatID, "nope")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestSelect_StartS1IbdBackReturnsSameView(t *testing.T) {
	e, _ := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	h := start.View.Handle

	s1 := press(t, e, h, "s1")
	assert.Equal(t, 2, s1.Depth)
	ibd := press(t, e, h, "ibd")
	assert.Equal(t, 3, ibd.Depth)

	back := press(t, e, h, catalog.KeyBack)
	assert.Equal(t, 2, back.Depth)
	assert.Same(t, s1.View, back.View)
}

func TestSelect_HomeFromAnyDepth(t *testing.T) {
	e, tr := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	h := start.View.Handle
	press(t, e, h, "s1")
	press(t, e, h, "ibd")
	press(t, e, h, "ibd_courses")

	home := press(t, e, h, catalog.KeyHome)
	assert.Equal(t, 1, home.Depth)
	assert.Equal(t, start.View.Text, home.View.Text)
	assert.Equal(t, start.View.Rows, home.View.Rows)
	assert.Equal(t, start.View.Text, tr.calls[len(tr.calls)-1].text)
}

func TestSelect_BackAtDepthOneEqualsHome(t *testing.T) {
	e, _ := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)

	back := press(t, e, start.View.Handle, catalog.KeyBack)
	home := press(t, e, start.View.Handle, catalog.KeyHome)
	assert.Equal(t, 1, back.Depth)
	assert.Equal(t, home.Depth, back.Depth)
	assert.Equal(t, home.View.Text, back.View.Text)
	assert.Equal(t, home.View.Menu, back.View.Menu)
}

func TestSelect_RepeatedMenuPushesEachTime(t *testing.T) {
	e, _ := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	for k := 1; k <= 4; k++ {
		out := press(t, e, start.View.Handle, "s1")
		assert.Equal(t, k+1, out.Depth)
	}
}

func TestSelect_Unresolved(t *testing.T) {
	e, tr := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	h := start.View.Handle
	press(t, e, h, "s1")
	press(t, e, h, "algo")

	out := press(t, e, h, "algo_courses")
	assert.Equal(t, Unresolved, out.Action.Kind)
	assert.Equal(t, 3, out.Depth)
	assert.Equal(t, NoticeUnavailable, tr.lastNotice().Text)
	assert.Equal(t, "cb", tr.lastNotice().CallbackID)
}

func TestSelect_DeliverResourceKeepsDepth(t *testing.T) {
	e, tr := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	h := start.View.Handle
	press(t, e, h, "s1")
	press(t, e, h, "ibd")
	list := press(t, e, h, "ibd_courses")

	out := press(t, e, h, "ibd_ch02")
	assert.Equal(t, DeliverResource, out.Action.Kind)
	assert.Equal(t, list.Depth, out.Depth)
	assert.Same(t, list.View, out.View)
	last := tr.calls[len(tr.calls)-1]
	assert.Equal(t, "doc", last.op)
	assert.Equal(t, "res/ibd/courses/ibd_ch02.pdf", last.path)
	assert.Empty(t, tr.lastNotice().Text, "successful delivery is only acknowledged")
}

func TestSelect_DeliverResourceAtRoot(t *testing.T) {
	e, tr := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)

	out := press(t, e, start.View.Handle, "ibd_ch01")
	assert.Equal(t, DeliverResource, out.Action.Kind)
	assert.Equal(t, 1, out.Depth)
	assert.Equal(t, start.View.Menu, out.View.Menu)
	assert.Equal(t, "doc", tr.calls[len(tr.calls)-1].op)

	again := press(t, e, start.View.Handle, catalog.KeyBack)
	assert.Equal(t, 1, again.Depth)
}

func TestSelect_DeliverResourceAfterBack(t *testing.T) {
	e, tr := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	h := start.View.Handle
	press(t, e, h, "s1")
	press(t, e, h, "ibd")
	back := press(t, e, h, catalog.KeyBack)
	require.Equal(t, 2, back.Depth)

	out := press(t, e, h, "ibd_tp03")
	assert.Equal(t, DeliverResource, out.Action.Kind)
	assert.Equal(t, 2, out.Depth)
	assert.Same(t, back.View, out.View)
	assert.Equal(t, "res/ibd/tps/ibd_tp03.pdf", tr.calls[len(tr.calls)-1].path)

	up := press(t, e, h, catalog.KeyBack)
	assert.Equal(t, 1, up.Depth)
}

func TestSelect_DeliveryFailure(t *testing.T) {
	e, tr := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	h := start.View.Handle
	press(t, e, h, "s1")
	tr.failDoc = true

	out, err := e.Select(context.Background(), Selection{Handle: h, CallbackID: "cb", Key: "ibd_tp01"})
	require.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, 2, out.Depth)
	assert.Equal(t, NoticeFileUnavailable, tr.lastNotice().Text)
}

func TestSelect_EditFailureLeavesHistory(t *testing.T) {
	e, tr := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	h := start.View.Handle
	s1 := press(t, e, h, "s1")
	tr.failEdit = true

	for _, key := range []string{"ibd", catalog.KeyBack, catalog.KeyHome} {
		_, err := e.Select(context.Background(), Selection{Handle: h, Key: key})
		require.ErrorIs(t, err, ErrDeliveryFailed, key)
		depth, derr := e.Depth(h)
		require.NoError(t, derr)
		assert.Equal(t, 2, depth, key)
		top, verr := e.View(h)
		require.NoError(t, verr)
		assert.Same(t, s1.View, top, key)
	}
}

func TestSelect_UnknownMessageSeedsRoot(t *testing.T) {
	e, _ := newEngine(t)
	h := history.MessageHandle{ChatID: chatID, MessageID: "99"}
	_, err := e.Depth(h)
	require.ErrorIs(t, err, ErrNoHistory)

	out := press(t, e, h, "s2")
	assert.Equal(t, 2, out.Depth)
	back := press(t, e, h, catalog.KeyBack)
	assert.Equal(t, catalog.RootKey, back.View.Menu)
}

func TestSelect_ReplacedMessageMovesHistory(t *testing.T) {
	e, tr := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	old := start.View.Handle
	tr.replaceOn = true

	out := press(t, e, old, "s1")
	assert.NotEqual(t, old, out.View.Handle)
	_, err = e.Depth(old)
	assert.ErrorIs(t, err, ErrNoHistory)
	depth, err := e.Depth(out.View.Handle)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)
	assert.Equal(t, 1, e.Conversations())
}

func TestSelect_IndependentMessages(t *testing.T) {
	e, _ := newEngine(t)
	a, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	b, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)

	press(t, e, a.View.Handle, "s1")
	press(t, e, a.View.Handle, "ibd")
	out := press(t, e, b.View.Handle, "s2")
	assert.Equal(t, 2, out.Depth)
	da, _ := e.Depth(a.View.Handle)
	assert.Equal(t, 3, da)
}

func TestSelect_ConcurrentPressesSerialize(t *testing.T) {
	e, _ := newEngine(t)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Select(context.Background(), Selection{Handle: start.View.Handle, Key: "s1"})
		}()
	}
	wg.Wait()
	depth, err := e.Depth(start.View.Handle)
	require.NoError(t, err)
	assert.Equal(t, 21, depth)
	assert.Equal(t, 0, e.locks.size())
}

func TestOnOutcome(t *testing.T) {
	var kinds []Kind
	e, err := New(Options{
		Catalog:   testCatalog(t),
		Transport: &fakeTransport{},
		OnOutcome: func(k Kind, _ error) { kinds = append(kinds, k) },
	})
	require.NoError(t, err)
	start, err := e.Start(context.Background(), chatID)
	require.NoError(t, err)
	press(t, e, start.View.Handle, "s1")
	press(t, e, start.View.Handle, "zzz")
	assert.Equal(t, []Kind{GoHome, ShowMenu, Unresolved}, kinds)
}

// Depth tracks the number of menu pushes minus the pops, never below one,
// whatever sequence of keys is pressed.
func TestSelect_DepthModel(t *testing.T) {
	cat := testCatalog(t)
	keys := []string{"s1", "s2", "ibd", "algo", "ibd_courses", "ibd_ch01", "algo_tps", "back", "home", "nope"}
	rapid.Check(t, func(rt *rapid.T) {
		tr := &fakeTransport{}
		e, err := New(Options{Catalog: cat, Transport: tr})
		if err != nil {
			rt.Fatal(err)
		}
		start, err := e.Start(context.Background(), chatID)
		if err != nil {
			rt.Fatal(err)
		}
		model := 1
		presses := rapid.SliceOfN(rapid.SampledFrom(keys), 0, 40).Draw(rt, "presses")
		for _, key := range presses {
			out, err := e.Select(context.Background(), Selection{Handle: start.View.Handle, Key: key})
			if err != nil {
				rt.Fatalf("select %q: %v", key, err)
			}
			switch Resolve(cat, key).Kind {
			case ShowMenu:
				model++
			case GoBack:
				if model > 1 {
					model--
				}
			case GoHome:
				model = 1
			}
			if out.Depth != model {
				rt.Fatalf("after %q depth %d, want %d", key, out.Depth, model)
			}
		}
	})
}
