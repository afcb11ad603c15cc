package config

import "time"

const (
	// Session lifetime, renewed on every write.
	SessionTTL = 7 * 24 * time.Hour

	// Non-system messages retained per session unless overridden at creation.
	DefaultContextWindow = 10

	// Expired session sweep interval.
	PurgeInterval = 1 * time.Hour

	// Generation request timeout.
	GenerateTimeout = 90 * time.Second

	// Response variants requested per generate call.
	GenerateVariants = 3
)
