package model

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single chat bubble. Content is HTML.
type Turn struct {
	Role    Role
	Content string
}

// IsBot reports whether the turn was produced by the assistant
func (x Turn) IsBot() bool {
	return x.Role == RoleAssistant
}

// Transcript represents the chat conversation of one session
type Transcript struct {
	Turns     []Turn
	SessionID SessionID
	// OriginURL stays empty until the first successful analysis
	OriginURL string
	SavedAt   time.Time
}

// NewTranscript creates an empty transcript for the session
func NewTranscript(sessionID SessionID) *Transcript {
	return &Transcript{
		SessionID: sessionID,
	}
}

// Clone returns a copy whose turns can be appended independently
func (x *Transcript) Clone() *Transcript {
	if x == nil {
		return nil
	}
	cloned := *x
	cloned.Turns = append([]Turn(nil), x.Turns...)
	return &cloned
}

// Expired reports whether the transcript was saved more than ttl before now
func (x *Transcript) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(x.SavedAt) > ttl
}
