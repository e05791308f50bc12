// Package ratelimit defines per-client request quotas grouped into named
// policies, with interchangeable backing stores.
package ratelimit

import (
	"context"
	"time"
)

// Policy names known to the service.
const (
	PolicyChat    = "chat"
	PolicyContact = "contact"
	PolicyAdmin   = "admin"
	PolicyGeneral = "general"
)

// Policy is an immutable quota definition.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// DefaultPolicies returns the quotas applied by the API.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		PolicyChat:    {Name: PolicyChat, Limit: 10, Window: time.Minute},
		PolicyContact: {Name: PolicyContact, Limit: 5, Window: time.Minute},
		PolicyAdmin:   {Name: PolicyAdmin, Limit: 30, Window: time.Minute},
		PolicyGeneral: {Name: PolicyGeneral, Limit: 100, Window: time.Minute},
	}
}

// Result is the outcome of a consume attempt. A denied request is a normal
// result, not an error; errors mean the backing store itself failed.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// ResetSeconds returns the whole seconds until the window resets, at
// least 1 so clients never busy-loop on a zero Retry-After.
func (r *Result) ResetSeconds() int {
	secs := int(time.Until(r.ResetAt).Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter checks and consumes quota for a client key under a policy.
// Implementations must make the read-modify-write atomic per key.
type Limiter interface {
	Allow(ctx context.Context, policy Policy, key string) (*Result, error)
}
