package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/model"
)

var (
	// ErrNotFound is returned when no transcript is stored under the key
	ErrNotFound = goerr.New("transcript not found")
	// ErrMalformed is returned when the stored record cannot be decoded or lacks required fields
	ErrMalformed = goerr.New("malformed transcript record")
)

// Repository defines the interface for transcript persistence
type Repository interface {
	// PutTranscript replaces the transcript stored under key
	PutTranscript(ctx context.Context, key string, transcript *model.Transcript) error

	// GetTranscript retrieves the transcript stored under key
	GetTranscript(ctx context.Context, key string) (*model.Transcript, error)

	// DeleteTranscript removes the transcript. Missing keys are ignored.
	DeleteTranscript(ctx context.Context, key string) error
}
