package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SessionID string

// NewSessionID generates a session ID from the given time and a random suffix
func NewSessionID(now time.Time) SessionID {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return SessionID(fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix))
}

func (x SessionID) String() string {
	return string(x)
}
