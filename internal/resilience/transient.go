package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// StatusError is an HTTP response with an unexpected status code.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// statusCoder is implemented by HTTP client errors that carry a status code,
// such as StatusError and jina.APIError.
type statusCoder interface {
	HTTPStatus() int
}

// IsTransientStatus reports whether an HTTP status indicates a temporary
// server-side problem.
func IsTransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err looks temporary: an HTTP error with a
// transient status, a network timeout, a reset or refused connection, or a known transient
// message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return IsTransientStatus(sc.HTTPStatus())
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
