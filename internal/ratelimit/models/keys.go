package models

import "strings"

// SanitizeKeySegment escapes the key delimiter so a client-controlled value
// cannot spill into an adjacent key segment.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewIPKey builds the bucket key for a client IP within a scope, e.g.
// "rl:submissions:ip:203.0.113.7". IPv6 colons are escaped.
func NewIPKey(scope Scope, ip string) string {
	if ip == "" {
		ip = "unknown"
	}
	return "rl:" + string(scope) + ":ip:" + SanitizeKeySegment(ip)
}
