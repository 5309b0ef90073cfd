package util

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewSessionToken generates a fresh ULID for use as a session token.
// ULIDs are sortable by creation time, which makes stale sessions easy
// to spot in redis.
func NewSessionToken() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.Reader, 0)

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
