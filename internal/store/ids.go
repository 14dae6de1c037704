package store

import "github.com/google/uuid"

// IDGenerator supplies ids for objects put without one.
// Implemented by UUIDGenerator (production) and testutil.FixedIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates random (version 4) UUIDs.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate returns a new UUID as a hyphenated string.
func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}
