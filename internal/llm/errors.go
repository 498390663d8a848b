package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrProviderUnavailable is wrapped by every selection failure.
var ErrProviderUnavailable = errors.New("no healthy LLM provider")

// Category groups provider failures for operators. It never drives control
// flow.
type Category string

const (
	CategoryNotConfigured Category = "not_configured"
	CategoryAuth          Category = "auth"
	CategoryRateLimit     Category = "rate_limit"
	CategoryNetwork       Category = "network"
	CategoryOther         Category = "other"
)

// StatusError is a non-2xx reply from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Classify maps an error from Query or Probe to a Category.
func Classify(err error) Category {
	if err == nil {
		return ""
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusUnauthorized, se.StatusCode == http.StatusForbidden:
			return CategoryAuth
		case se.StatusCode == http.StatusTooManyRequests:
			return CategoryRateLimit
		case se.StatusCode == http.StatusRequestTimeout, se.StatusCode >= 500:
			return CategoryNetwork
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid_api_key"), strings.Contains(msg, "unauthorized"), strings.Contains(msg, "401"):
		return CategoryAuth
	case strings.Contains(msg, "rate_limit"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return CategoryRateLimit
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "connection"):
		return CategoryNetwork
	default:
		return CategoryOther
	}
}
