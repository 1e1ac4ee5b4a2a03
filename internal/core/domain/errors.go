package domain

import "errors"

// ErrorKind tags error events emitted to the view layer.
type ErrorKind string

const (
	KindGeocodeNotFound      ErrorKind = "geocode_not_found"
	KindGeocodeTransport     ErrorKind = "geocode_transport_error"
	KindUpstreamUnavailable  ErrorKind = "upstream_unavailable"
	KindUpstreamUnauthorized ErrorKind = "upstream_unauthorized"
	KindMalformedResponse    ErrorKind = "malformed_response"
	KindCacheWrite           ErrorKind = "cache_write_error"
	KindDetailLoad           ErrorKind = "detail_load_error"
	KindSearchInProgress     ErrorKind = "search_in_progress"
	KindUnknown              ErrorKind = "unknown"
)

var (
	ErrGeocodeNotFound      = errors.New("place not found")
	ErrGeocodeTransport     = errors.New("geocoding service unreachable")
	ErrUpstreamUnavailable  = errors.New("listing service unavailable")
	ErrUpstreamUnauthorized = errors.New("listing service session expired")
	ErrMalformedResponse    = errors.New("malformed upstream response")
	ErrCacheWrite           = errors.New("result cache write failed")
	ErrDetailLoad           = errors.New("detail page could not be loaded")
	ErrSearchInProgress     = errors.New("search already in progress")
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrGeocodeNotFound, KindGeocodeNotFound},
	{ErrGeocodeTransport, KindGeocodeTransport},
	{ErrUpstreamUnauthorized, KindUpstreamUnauthorized},
	{ErrMalformedResponse, KindMalformedResponse},
	{ErrUpstreamUnavailable, KindUpstreamUnavailable},
	{ErrCacheWrite, KindCacheWrite},
	{ErrDetailLoad, KindDetailLoad},
	{ErrSearchInProgress, KindSearchInProgress},
}

// KindOf classifies a (possibly wrapped) error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// UserCorrectable reports whether the error should be shown as an inline
// "place not found" message. Transport failures of the geocoder surface the
// same way.
func UserCorrectable(err error) bool {
	return errors.Is(err, ErrGeocodeNotFound) || errors.Is(err, ErrGeocodeTransport)
}
