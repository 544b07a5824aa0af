// Package external contains the thin HTTP clients for the upstream
// market-data providers. Clients perform one bounded request per call and
// carry no retry logic of their own; retries and fallback are the refresh
// orchestrator's responsibility.
package external

import (
	"errors"
)

var (
	// ErrRateLimited signals that the provider throttled the request. For
	// Alpha Vantage this is detected from the response body, not the status
	// code.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrUnavailable signals that no usable price could be obtained: unknown
	// symbol, malformed payload, or a missing/non-positive price field.
	ErrUnavailable = errors.New("price unavailable")
)
