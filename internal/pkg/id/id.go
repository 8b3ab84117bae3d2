package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a fresh ULID for user and OTP record keys. Time-ordered
// identifiers keep the Dynamo partition keys sortable by creation.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
