package sender

import (
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	tele "gopkg.in/telebot.v4"
)

// IsTransient reports network failures worth repeating at the HTTP level:
// timeouts, refused or failed dials and connections reset mid-response.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Retryable extends IsTransient with Bot API answers that succeed on a later
// attempt: flood waits and server-side failures.
func Retryable(err error) bool {
	if IsTransient(err) {
		return true
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}
	return httpStatusFromError(err) >= http.StatusInternalServerError
}

// retryDelay returns the wait requested by a flood error, else fallback.
func retryDelay(err error, fallback time.Duration) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		if wait := time.Duration(flood.RetryAfter) * time.Second; wait > fallback {
			return wait
		}
	}
	return fallback
}
