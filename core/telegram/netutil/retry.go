// Package netutil classifies transport failures of Bot API calls.
package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// Transient reports whether err is a network failure that a repeated call may
// not hit again: timeouts, failed dials, reset connections and responses cut
// short. API errors returned by Telegram itself are never transient here.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
