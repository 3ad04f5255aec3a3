package domain

import "time"

// ValidationScope is the rate limit scope of the number validation endpoint.
const ValidationScope = "number_validation"

// MessageRoute binds a URL path to the fixed message and sender it sends.
// The path doubles as the route's rate limit scope.
type MessageRoute struct {
	Path    string
	Message string
	Sender  string
}

// Scope returns the rate limit scope for the route.
func (r MessageRoute) Scope() string { return r.Path }

// LimitPolicy is the per-scope, per-client quota.
type LimitPolicy struct {
	Amount int
	Window time.Duration
}

// Enabled reports whether calls should go through the limiter at all.
func (p LimitPolicy) Enabled() bool { return p.Amount > 0 }
