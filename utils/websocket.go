package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateConnID returns a short random id for a websocket connection.
func GenerateConnID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Random source failed, use a timestamp instead
		return fmt.Sprintf("%d%x", time.Now().UnixNano(), b)
	}
	return hex.EncodeToString(b)
}

// Now returns the current time formatted for broadcast payloads.
func Now() string {
	return time.Now().Format("2006-01-02 15:04:05")
}
