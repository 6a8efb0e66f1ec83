package utils

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// NewRoomID returns a fresh random room identifier in the nine-digit range
// other chat clients of the store use, so ids stay easy to share by hand.
func NewRoomID() int64 {
	const span = 900_000_000

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Fallback to the clock if crypto/rand is unavailable.
		return 100_000_000 + time.Now().UnixNano()%span
	}
	return 100_000_000 + int64(binary.BigEndian.Uint64(buf[:])%span)
}
