package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIPKey(t *testing.T) {
	assert.Equal(t, "rl:submissions:ip:203.0.113.7", NewIPKey(ScopeSubmissions, "203.0.113.7"))
	assert.Equal(t, "rl:submissions:ip:2001_db8__1", NewIPKey(ScopeSubmissions, "2001:db8::1"))
	assert.Equal(t, "rl:submissions:ip:unknown", NewIPKey(ScopeSubmissions, ""))
}
