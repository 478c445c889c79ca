package domain

import "errors"

// Error kinds surfaced to dashboard consumers. Their messages are part of the
// wire contract and are rendered verbatim by clients.
var (
	ErrWeatherFetch = errors.New("Failed to fetch weather data")
	ErrCryptoFetch  = errors.New("Failed to fetch crypto data")
	ErrNewsFetch    = errors.New("Failed to fetch news data")
	ErrUnknown      = errors.New("Failed to fetch data")
)

// Errors raised below the provider boundary.
var (
	ErrUpstreamStatus    = errors.New("upstream returned non-2xx status")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrRateLimited       = errors.New("rate limited")
	ErrLockHeld          = errors.New("lock already held")
)
