package sender

import (
	"context"
	"errors"
	"net"
	"net/url"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newTestDispatcher(t *testing.T, retries int) *Dispatcher {
	t.Helper()
	d := NewDispatcher(Options{Workers: 1, MaxRetries: retries, RetryBackoff: time.Millisecond, MaxDuration: time.Second})
	t.Cleanup(d.Close)
	return d
}

func TestDoRetriesTransientErrors(t *testing.T) {
	d := newTestDispatcher(t, 2)
	var calls int
	err := d.Do(context.Background(), "menu.send", "sendMessage", func() error {
		calls++
		if calls < 3 {
			return timeoutErr{}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Zero(t, d.ErrorCount())
}

func TestDoStopsOnPermanentErrors(t *testing.T) {
	d := newTestDispatcher(t, 3)
	boom := errors.New("telegram: Bad Request: chat not found (400)")
	var calls int
	err := d.Do(context.Background(), "menu.send", "sendMessage", func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), d.ErrorCount())

	assert.Error(t, d.Do(context.Background(), "x", "", nil))
}

func TestDoHonoursCancelledContext(t *testing.T) {
	d := newTestDispatcher(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Do(ctx, "menu.send", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnqueue(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	var ran atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "notice.send", "sendMessage", func() error {
		ran.Add(1)
		return nil
	}))
	d.Close()
	assert.Equal(t, int32(1), ran.Load())
	assert.ErrorIs(t, d.Enqueue(context.Background(), "notice.send", "", func() error { return nil }), ErrQueueClosed)
}

func TestSanitizeError(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAE-x_y/sendDocument": EOF`)
	got := SanitizeError(err)
	assert.NotContains(t, got, "123456")
	assert.Contains(t, got, "bot<redacted>/sendDocument")
	assert.Empty(t, SanitizeError(nil))
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "http_4xx", classifyError(&tele.Error{Code: 403, Description: "Forbidden"}))
	assert.Equal(t, "http_5xx", classifyError(errors.New("telegram: internal (502)")))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))
}

func TestRetryable(t *testing.T) {
	dial := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	assert.True(t, IsTransient(dial))
	assert.True(t, IsTransient(&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: dial}))
	assert.True(t, IsTransient(timeoutErr{}))
	assert.True(t, IsTransient(syscall.ECONNRESET))
	assert.False(t, IsTransient(errors.New("boom")))
	assert.False(t, IsTransient(nil))

	assert.True(t, Retryable(errors.New("telegram: Bad Gateway (502)")))
	assert.False(t, Retryable(errors.New("telegram: Bad Request: chat not found (400)")))

	assert.Equal(t, time.Second, retryDelay(errors.New("x"), time.Second))
}
