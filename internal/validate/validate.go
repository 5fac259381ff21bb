// Package validate holds the pure input validators for handles, status
// fields, URIs, and webhook targets. Nothing here touches persisted state;
// the mutation services call these before committing anything.
package validate

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kenshaw/emoji"
)

// Field length caps, in characters (URI cap is in encoded bytes).
const (
	MaxNameLen   = 40
	MaxStatusLen = 100
	MaxMediaLen  = 100
	MaxURIBytes  = 500
)

var (
	// localHandleRe matches handles created on this server.
	localHandleRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,40}$`)
	// followHandleRe matches federated @localpart@domain handles accepted
	// into a follow set. The domain part is a dot-separated sequence of
	// DNS-label-like segments.
	followHandleRe = regexp.MustCompile(`^@[a-zA-Z0-9_]{1,40}@(([a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9\-]*[a-zA-Z0-9])\.)*([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9\-]*[A-Za-z0-9])$`)
)

// Username reports whether s is a valid local account handle.
func Username(s string) bool {
	return localHandleRe.MatchString(s)
}

// FollowHandle reports whether s is a valid federated handle.
func FollowHandle(s string) bool {
	return followHandleRe.MatchString(s)
}

// Text reports whether s is free of C0 and C1 control characters
// (U+0000-U+001F, U+007F, U+0080-U+009F).
func Text(s string) bool {
	for _, r := range s {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return false
		}
	}
	return true
}

// Emoji reports whether s is empty (clearing the field) or exactly one
// entry in the emoji sequence table.
func Emoji(s string) bool {
	if s == "" {
		return true
	}
	return emoji.FromCode(s) != nil
}

// URI parses s as an absolute RFC 3986 URI and returns its normalized form
// (lowercased scheme and host). The normalized encoding must fit in
// MaxURIBytes bytes.
func URI(s string) (string, bool) {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	normalized := u.String()
	if len(normalized) > MaxURIBytes {
		return "", false
	}
	return normalized, true
}

// WebhookURL validates a webhook target: http or https, a host, and no
// userinfo, query, or fragment. Only scheme, host, and path may carry
// information. Returns the normalized URL used for deduplication.
func WebhookURL(s string) (string, bool) {
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if u.Host == "" || u.User != nil || u.RawQuery != "" || u.Fragment != "" || u.ForceQuery {
		return "", false
	}
	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	return u.String(), true
}

// RuneLen returns the length of s in characters, the unit the field caps
// are expressed in.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
