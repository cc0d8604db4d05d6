package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/studybot/internal/navigation"
)

func TestObserveOutcome(t *testing.T) {
	m := New()
	m.ObserveOutcome(navigation.ShowMenu, nil)
	m.ObserveOutcome(navigation.ShowMenu, nil)
	m.ObserveOutcome(navigation.DeliverResource, fmt.Errorf("send: %w", navigation.ErrDeliveryFailed))
	m.ObserveOutcome(navigation.GoBack, errors.New("edit failed"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.actions.WithLabelValues("menu", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("resource", "delivery_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("back", "error")))
}

func TestUpdatesUploadsAndMissing(t *testing.T) {
	m := New()
	m.ObserveUpdate("callback")
	m.ObserveRateLimited("message")
	m.ObserveUpload(nil)
	m.SetMissing(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.updates.WithLabelValues("callback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.missing))
}

func TestHandlerExposesGaugeFunc(t *testing.T) {
	m := New()
	m.GaugeFunc("conversations", "Open navigation histories.", func() float64 { return 3 })
	m.ObserveOutcome(navigation.GoHome, nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "studybot_conversations 3")
	assert.Contains(t, string(body), `studybot_nav_actions_total{kind="home",status="ok"} 1`)
}

func TestGaugeFuncRegistersOnce(t *testing.T) {
	m := New()
	m.GaugeFunc("send_errors", "Failed sends.", func() float64 { return 1 })
	assert.NotPanics(t, func() {
		m.GaugeFunc("send_errors", "Failed sends.", func() float64 { return 2 })
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "studybot_send_errors 1")
}
