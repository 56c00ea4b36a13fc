package uuidv7

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// New returns a UUIDv7 per RFC 9562 (time-ordered, millisecond precision).
// Ids minted by one process sort in creation order.
func New() (uuid.UUID, error) {
	return uuid.NewV7()
}

// Timestamp returns the creation time embedded in a UUIDv7.
func Timestamp(u uuid.UUID) (time.Time, error) {
	if u.Version() != 7 {
		return time.Time{}, errors.New("uuidv7: not a version 7 uuid")
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC(), nil
}
