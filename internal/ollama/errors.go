package ollama

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates the provider could not be reached at all
// (connection refused, DNS failure, timeout). Callers may retry.
//
// Check with errors.Is:
//
//	if errors.Is(err, ollama.ErrUnavailable) { ... }
var ErrUnavailable = errors.New("provider unavailable")

// ProviderError indicates the provider responded, but with an error status
// or a payload missing the expected fields. Callers should not blindly
// retry; the request itself is likely at fault.
//
// Check with errors.As:
//
//	var perr *ollama.ProviderError
//	if errors.As(err, &perr) { ... perr.StatusCode ... }
type ProviderError struct {
	Endpoint   string // provider endpoint path, e.g. "/embed"
	StatusCode int    // HTTP status, 0 if the payload was malformed
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error on %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error on %s: %s", e.Endpoint, e.Message)
}
