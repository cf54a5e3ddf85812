package utils

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// GenerateOrderCode returns a random 7-digit zero-padded order code.
func GenerateOrderCode() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Random source failed, fall back to a timestamp-derived code
		return TimestampOrderCode()
	}
	n := binary.BigEndian.Uint64(b[:]) % 10000000
	return fmt.Sprintf("%07d", n)
}

// TimestampOrderCode derives a 7-digit code from the current unix
// millisecond clock. Used as the last resort when random codes keep
// colliding; the orders table's unique index is the real guarantee.
func TimestampOrderCode() string {
	ms := time.Now().UnixMilli()
	return fmt.Sprintf("%07d", ms%10000000)
}
