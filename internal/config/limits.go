// Package config carries the resource limits and runtime knobs shared by
// the validator, transaction manager, and traversal packages, read from the
// environment the way the teacher's runtime components do.
package config

import (
	"os"
	"strconv"
)

// Limits bounds document size to keep mutation, validation, and traversal
// predictable under a single-threaded cooperative scheduling model (§4.4,
// §5).
type Limits struct {
	MaxDocumentSizeBytes int64
	MaxBlockCount        int
	MaxBlockSizeBytes    int64
	MaxNestingDepth      int
	MaxEdgesPerBlock     int
}

// DefaultLimits returns the spec's stated defaults (§4.4).
func DefaultLimits() Limits {
	return Limits{
		MaxDocumentSizeBytes: 50 * 1024 * 1024,
		MaxBlockCount:        100_000,
		MaxBlockSizeBytes:    5 * 1024 * 1024,
		MaxNestingDepth:      50,
		MaxEdgesPerBlock:     1_000,
	}
}

// LimitsFromEnv overlays DefaultLimits with any UCP_LIMIT_* environment
// overrides, falling back to the default on a missing or malformed value.
func LimitsFromEnv() Limits {
	l := DefaultLimits()
	l.MaxDocumentSizeBytes = envInt64("UCP_LIMIT_MAX_DOCUMENT_SIZE_BYTES", l.MaxDocumentSizeBytes)
	l.MaxBlockCount = envInt("UCP_LIMIT_MAX_BLOCK_COUNT", l.MaxBlockCount)
	l.MaxBlockSizeBytes = envInt64("UCP_LIMIT_MAX_BLOCK_SIZE_BYTES", l.MaxBlockSizeBytes)
	l.MaxNestingDepth = envInt("UCP_LIMIT_MAX_NESTING_DEPTH", l.MaxNestingDepth)
	l.MaxEdgesPerBlock = envInt("UCP_LIMIT_MAX_EDGES_PER_BLOCK", l.MaxEdgesPerBlock)
	return l
}

// TransactionTimeoutSecondsFromEnv returns the transaction commit timeout in
// seconds, default 30 (§4.6).
func TransactionTimeoutSecondsFromEnv() int {
	return envInt("UCP_TRANSACTION_TIMEOUT_SECONDS", 30)
}

// MaxSnapshotsFromEnv returns the optional snapshot retention cap, 0 meaning
// unbounded (§4.7).
func MaxSnapshotsFromEnv() int {
	return envInt("UCP_MAX_SNAPSHOTS", 0)
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
