package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/minio/minio-go/v7"
)

// TransientError marks an error as safe to retry (429, 5xx, network
// timeout). The portal catalog and the archive uploads wrap their
// retryable failures in it.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP
// status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// transientPatterns are string heuristics for wrapped transport errors
// that lose their type on the way up: the generic HTTP-client shapes plus
// the browser's websocket drops.
var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"transport connection broken",
	// chromedp loses the browser over a websocket; a dropped socket is
	// recoverable, a crashed browser is not.
	"websocket: close 1006",
	"websocket: bad handshake",
}

// IsTransient reports whether the error (or anything in its chain) is
// retryable: an explicit TransientError, a throttled or failing object
// store, a network timeout, a reset connection, or one of the known
// transport shapes.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	// The object store reports throttling and server trouble with typed
	// responses; classify those by status, not by message.
	var storeErr minio.ErrorResponse
	if errors.As(err, &storeErr) {
		return storeErr.Code == "SlowDown" || IsTransientHTTPStatus(storeErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether the status code indicates a
// server-side condition that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
