package httpx

import (
	"errors"
	"fmt"
	"time"
)

// CircuitOpenError is returned when the breaker rejects a request without
// attempting any network I/O. RetryAfter is the remaining cooldown.
type CircuitOpenError struct {
	Source     string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("%s: circuit open, retry in %ds", e.Source, int(e.RetryAfter.Seconds()))
}

// StatusError reports a non-2xx HTTP response. It is terminal: the client
// never retries application-level failures.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// IsCircuitOpen reports whether err is a breaker rejection.
func IsCircuitOpen(err error) bool {
	var coe *CircuitOpenError
	return errors.As(err, &coe)
}
