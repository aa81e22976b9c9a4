package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs are lexicographically sortable by
// creation time, which makes them usable both as DynamoDB partition keys and
// as time-ordered sort keys for reading history.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
