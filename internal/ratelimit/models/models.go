package models

import "time"

// RateLimitResult is the outcome of one rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Limit is a number of requests allowed per window.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// Scope names the group of endpoints a limit applies to.
type Scope string

const ScopeSubmissions Scope = "submissions"
