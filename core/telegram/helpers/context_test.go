package helpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studybot/core/logger"
)

type updateContext struct {
	tele.Context
	vals map[string]any
}

func (c *updateContext) Chat() *tele.Chat    { return &tele.Chat{ID: 9} }
func (c *updateContext) Sender() *tele.User  { return &tele.User{ID: 7} }
func (c *updateContext) Update() tele.Update { return tele.Update{ID: 42} }
func (c *updateContext) Get(k string) any    { return c.vals[k] }
func (c *updateContext) Set(k string, v any) { c.vals[k] = v }

func TestBuildContextCachesMeta(t *testing.T) {
	c := &updateContext{vals: map[string]any{}}
	ctx := BuildContext(c)
	assert.Equal(t, 42, logger.UpdateIDFrom(ctx))
	assert.Equal(t, int64(7), logger.UserIDFrom(ctx))
	assert.Equal(t, int64(9), logger.ChatIDFrom(ctx))
	assert.Equal(t, logger.BuildRID(42, 9, 7), logger.RIDFrom(ctx))
	assert.Equal(t, ctx, BuildContext(c))

	tagged := WithHandler(c, "start")
	assert.Equal(t, "start", logger.HandlerFrom(tagged))
	assert.Equal(t, "start", logger.HandlerFrom(BuildContext(c)))
}

func TestBuildContextFollowsBase(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	SetBaseContext(parent)
	t.Cleanup(func() { SetBaseContext(nil) })

	ctx := BuildContext(&updateContext{vals: map[string]any{}})
	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.NotNil(t, BuildContext(nil))
}
