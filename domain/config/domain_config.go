package config

import "time"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Matrix constraints. MatrixMax is shared by clamping and classification;
	// the two must never be configured from different values.
	MatrixMax float64

	// Card constraints
	MaxContentLength   int
	MaxDetailsLength   int
	MaxCardsPerProject int

	// Lock constraints
	LockLease      time.Duration
	LockSweepEvery time.Duration

	// Commit retry policy for transient save failures
	CommitMaxRetries    int
	CommitInitialDelay  time.Duration
	CommitMaxDelay      time.Duration
	CommitBackoffFactor float64
	CommitJitterFactor  float64

	// Idea generation
	MaxDraftsPerRequest int

	// Validation settings
	AllowEmptyContent bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MatrixMax: 520,

		MaxContentLength:   500,
		MaxDetailsLength:   5000,
		MaxCardsPerProject: 1000,

		LockLease:      90 * time.Second,
		LockSweepEvery: 15 * time.Second,

		CommitMaxRetries:    3,
		CommitInitialDelay:  100 * time.Millisecond,
		CommitMaxDelay:      2 * time.Second,
		CommitBackoffFactor: 2.0,
		CommitJitterFactor:  0.1,

		MaxDraftsPerRequest: 10,

		AllowEmptyContent: false,
	}
}
