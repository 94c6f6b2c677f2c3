package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// IsTransient returns true for errors that are safe to retry: network
// timeouts, connection resets, DNS failures, and the usual wrapped-client
// strings that do not survive errors.Is.
func IsTransient(err error) bool {
	if err == nil {
		return false
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
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"i/o timeout",
		"device not configured", // serial port unplugged mid-read
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
