package telegram

import (
	"net"
	"net/http"
	"time"

	coreconfig "github.com/m3rciful/studybot/core/config"
	"github.com/m3rciful/studybot/core/telegram/sender"
)

const (
	dialTimeout       = 5 * time.Second
	tlsTimeout        = 5 * time.Second
	idleConnTimeout   = 30 * time.Second
	headerTimeout     = 20 * time.Second
	keepAliveInterval = 30 * time.Second
	retryBackoff      = 2 * time.Second
)

// BuildHTTPClient returns the Bot API client. The request timeout and the
// retry budget come from the telegram config section.
func BuildHTTPClient(cfg coreconfig.TelegramConfig) *http.Client {
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsTimeout,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &replayTransport{
			base:    base,
			retries: cfg.HTTPRetries,
			backoff: retryBackoff,
		},
	}
}

// replayTransport replays requests that failed before any response arrived.
// Requests whose body cannot be rebuilt, such as streamed uploads, are sent once.
type replayTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *replayTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; attempt <= t.retries && err != nil; attempt++ {
		if !sender.IsTransient(err) || (req.Body != nil && req.GetBody == nil) {
			return nil, err
		}
		if werr := t.wait(req, attempt); werr != nil {
			return nil, werr
		}
		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			next.Body = body
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}

func (t *replayTransport) wait(req *http.Request, attempt int) error {
	delay := t.backoff * time.Duration(attempt)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
