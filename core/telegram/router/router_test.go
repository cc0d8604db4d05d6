package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/studybot/core/telegram"
)

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "not found" }

type stubFallbacks struct{ calls *[]string }

func (f stubFallbacks) handler(name string) tele.HandlerFunc {
	return func(tele.Context) error {
		*f.calls = append(*f.calls, name)
		return nil
	}
}

func (f stubFallbacks) UnknownText() tele.HandlerFunc     { return f.handler("text") }
func (f stubFallbacks) UnknownDocument() tele.HandlerFunc { return f.handler("document") }
func (f stubFallbacks) UnknownCallback() tele.HandlerFunc { return f.handler("callback") }

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "start", normalizeHandlerName("/Start"))
	assert.Equal(t, "s1", normalizeHandlerName(" /s1 "))
	assert.Equal(t, "a_b", normalizeHandlerName("a b"))
	assert.Equal(t, "unknown", normalizeHandlerName("/"))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", errorCode(fmt.Errorf("wrap: %w", codedErr{})))
	assert.Equal(t, "TG_403", errorCode(fmt.Errorf("send: %w", &tele.Error{Code: 403})))
	assert.Equal(t, "CANCELLED", errorCode(fmt.Errorf("nav: %w", context.Canceled)))
	assert.Equal(t, "TIMEOUT", errorCode(context.DeadlineExceeded))
	assert.Equal(t, "ERRORSTRING", errorCode(errors.New("boom")))
}

func TestApplyFallbacks(t *testing.T) {
	var calls []string
	reg := tg.NewRegistry()
	opts := ApplyFallbacks(reg, stubFallbacks{calls: &calls})

	require.NoError(t, reg.CallbackNotFound()(nil))
	require.NoError(t, opts.UnknownText(nil))
	require.NoError(t, opts.UnknownDocument(nil))
	assert.Nil(t, opts.Document)
	assert.Equal(t, []string{"callback", "text", "document"}, calls)
}
