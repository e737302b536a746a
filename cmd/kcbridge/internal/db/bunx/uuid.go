package bunx

import "github.com/google/uuid"

// NewUUIDv7 returns a time-ordered UUIDv7 string. Session token ids use it so
// they sort by issue time in logs.
//
// It panics only when the entropy source fails, in which case nothing else
// in the process can issue credentials safely either.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
