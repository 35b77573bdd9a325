package results

import "github.com/google/uuid"

// NewRunID returns a time-ordered UUIDv7 run identifier, falling back to a
// random UUIDv4 if v7 generation fails.
func NewRunID() string {
	id := uuid.New().String()
	if v7, err := uuid.NewV7(); err == nil {
		id = v7.String()
	}
	return id
}
