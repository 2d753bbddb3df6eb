package mailing

import (
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"strings"
	"syscall"
)

// Sentinel errors returned (wrapped) by providers.
var (
	// ErrTransport is a transient network or session failure. Retried, with
	// a session recycle before the next attempt.
	ErrTransport = errors.New("mail transport failure")
	// ErrAuth means the provider rejected our credentials. Not retried.
	ErrAuth = errors.New("mail provider rejected credentials")
	// ErrMisconfigured means a required secret is missing. Not retried.
	ErrMisconfigured = errors.New("mail provider is not configured")
	// ErrRejected means the provider refused this message. Not retried.
	ErrRejected = errors.New("mail provider rejected the message")
)

// IsPermanent reports whether retrying err cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrMisconfigured) || errors.Is(err, ErrRejected)
}

// IsTransport reports whether err looks like a network/session failure that
// warrants discarding the provider session.
func IsTransport(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	if errors.Is(err, ErrTransport) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range []string{"timeout", "connection reset", "broken pipe", "connection refused", "eof"} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// classifySMTP maps an SMTP reply error onto the sentinel taxonomy.
func classifySMTP(err error) error {
	if err == nil {
		return nil
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch {
		case tpErr.Code == 530 || tpErr.Code == 534 || tpErr.Code == 535:
			return wrapErr(ErrAuth, err)
		case tpErr.Code >= 500:
			return wrapErr(ErrRejected, err)
		default:
			return wrapErr(ErrTransport, err)
		}
	}
	return wrapErr(ErrTransport, err)
}

// classifyStatus maps an HTTP API status code onto the sentinel taxonomy.
func classifyStatus(code int) error {
	switch {
	case code == 401 || code == 403:
		return ErrAuth
	case code == 408 || code == 429 || code >= 500:
		return ErrTransport
	case code >= 400:
		return ErrRejected
	}
	return nil
}

// wrapErr keeps both the sentinel and the cause visible to errors.Is.
func wrapErr(sentinel, cause error) error {
	return &providerError{sentinel: sentinel, cause: cause}
}

type providerError struct {
	sentinel error
	cause    error
}

func (e *providerError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *providerError) Unwrap() []error {
	return []error{e.sentinel, e.cause}
}
