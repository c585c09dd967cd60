package model

import (
	"time"
)

const ActionAnalyze = "analyze"

// AnalyzeRequest is the payload sent to the analysis webhook
type AnalyzeRequest struct {
	WebsiteURL string    `json:"websiteUrl"`
	SessionID  SessionID `json:"sessionId"`
	Timestamp  string    `json:"timestamp"`
	Action     string    `json:"action"`
}

// ChatRequest is the payload sent to the chat webhook
type ChatRequest struct {
	Message    string    `json:"message"`
	WebsiteURL string    `json:"websiteUrl"`
	SessionID  SessionID `json:"sessionId"`
	Timestamp  string    `json:"timestamp"`
}

// Timestamp formats t as ISO-8601 with millisecond precision in UTC
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
