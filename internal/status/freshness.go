package status

import (
	"net/http"
	"time"
)

// Freshness is the outcome of evaluating a conditional read.
type Freshness int

const (
	// Full means the caller needs the record body.
	Full Freshness = iota
	// NotModified means the caller's copy is current; no body is sent.
	NotModified
)

// Evaluate decides a conditional read with second-granularity, UTC
// semantics. No conditional instant always yields Full. A supplied instant
// that is not earlier than lastModified yields NotModified: a client
// polling at exactly the record's own timestamp must get 304.
func Evaluate(ifModifiedSince *time.Time, lastModified time.Time) Freshness {
	if ifModifiedSince == nil {
		return Full
	}
	ims := ifModifiedSince.UTC().Truncate(time.Second)
	last := lastModified.UTC().Truncate(time.Second)
	if ims.Before(last) {
		return Full
	}
	return NotModified
}

// FormatHTTPDate renders t as an RFC 7231 HTTP-date (GMT).
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// ParseHTTPDate parses an HTTP-date in any of the three accepted formats.
func ParseHTTPDate(s string) (time.Time, error) {
	return http.ParseTime(s)
}
