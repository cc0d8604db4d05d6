package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/studybot/internal/catalog"
)

func view(menu string) *View {
	return NewView(MessageHandle{ChatID: 1, MessageID: "10"}, &catalog.MenuEntry{Key: catalog.MenuKey(menu), Text: menu})
}

func TestStack_PushPop(t *testing.T) {
	root := view("semesters")
	s := NewStack(root)
	require.Equal(t, 1, s.Depth())

	s1 := view("s1")
	pushed := s.Push(s1)
	assert.Equal(t, 1, s.Depth(), "receiver must not change")
	assert.Equal(t, 2, pushed.Depth())
	assert.Same(t, s1, pushed.Top())
	assert.Same(t, root, pushed.Root())

	popped := pushed.Pop()
	assert.Equal(t, 1, popped.Depth())
	assert.Same(t, root, popped.Top())
	assert.Equal(t, 2, pushed.Depth())

	assert.Equal(t, 1, popped.Pop().Depth(), "pop never empties the stack")
}

func TestStack_PushDoesNotAlias(t *testing.T) {
	base := NewStack(view("root")).Push(view("a"))
	left := base.Push(view("left"))
	right := base.Push(view("right"))
	assert.Equal(t, catalog.MenuKey("left"), left.Top().Menu)
	assert.Equal(t, catalog.MenuKey("right"), right.Top().Menu)
}

func TestStack_Rebind(t *testing.T) {
	s := NewStack(view("root")).Push(view("s1"))
	moved := s.Rebind(MessageHandle{ChatID: 1, MessageID: "11"})
	for _, v := range moved.Views() {
		assert.Equal(t, "11", v.Handle.MessageID)
	}
	for _, v := range s.Views() {
		assert.Equal(t, "10", v.Handle.MessageID)
	}
}

func TestMessageHandle(t *testing.T) {
	h := MessageHandle{ChatID: -100, MessageID: "42"}
	id, chat := h.MessageSig()
	assert.Equal(t, "42", id)
	assert.Equal(t, int64(-100), chat)
	assert.Equal(t, "-100:42", h.Key())
	assert.True(t, MessageHandle{}.IsZero())
}

func TestMemoryStore_GetPutDelete(t *testing.T) {
	m := NewMemoryStore()
	_, ok := m.Get("k")
	assert.False(t, ok)

	m.Put("k", NewStack(view("root")))
	got, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, got.Depth())
	assert.Equal(t, 1, m.Len())

	m.Delete("k")
	assert.Equal(t, 0, m.Len())
}

func TestMemoryStore_Sweep(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := NewMemoryStore(WithIdleTTL(time.Hour), WithClock(clock))

	m.Put("old", NewStack(view("root")))
	now = now.Add(45 * time.Minute)
	m.Put("fresh", NewStack(view("root")))
	now = now.Add(30 * time.Minute)

	assert.Equal(t, 1, m.Sweep())
	_, ok := m.Get("old")
	assert.False(t, ok)
	_, ok = m.Get("fresh")
	assert.True(t, ok)
}

func TestMemoryStore_GetRefreshesIdleTimer(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryStore(WithIdleTTL(time.Hour), WithClock(func() time.Time { return now }))
	m.Put("k", NewStack(view("root")))
	now = now.Add(50 * time.Minute)
	_, _ = m.Get("k")
	now = now.Add(50 * time.Minute)
	assert.Equal(t, 0, m.Sweep())
}

func TestMemoryStore_SweepDisabled(t *testing.T) {
	m := NewMemoryStore()
	m.Put("k", NewStack(view("root")))
	assert.Equal(t, 0, m.Sweep())
}

func TestMemoryStore_RunStopsOnCancel(t *testing.T) {
	m := NewMemoryStore(WithIdleTTL(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 5*time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	m := NewMemoryStore(WithIdleTTL(time.Hour))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := MessageHandle{ChatID: int64(i), MessageID: "1"}.Key()
			for j := 0; j < 100; j++ {
				s, ok := m.Get(key)
				if !ok {
					s = NewStack(view("root"))
				}
				m.Put(key, s.Push(view("x")))
				m.Sweep()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, m.Len())
}
