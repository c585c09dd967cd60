package transcript

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/model"
	"github.com/m-mizutani/seochat/pkg/repository"
	"github.com/m-mizutani/seochat/pkg/utils/clock"
	"github.com/m-mizutani/seochat/pkg/utils/logging"
)

const (
	DefaultKey = "seo_chat_history"
	DefaultTTL = 24 * time.Hour
)

// Store owns the persisted transcript and the in-memory copy that turns are appended to
type Store struct {
	repo repository.Repository
	key  string
	ttl  time.Duration

	mu          sync.Mutex
	current     *model.Transcript
	subscribers []func(model.Turn)
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// WithTTL sets how long a saved transcript stays loadable
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

func New(repo repository.Repository, opts ...Option) *Store {
	s := &Store{
		repo:    repo,
		key:     DefaultKey,
		ttl:     DefaultTTL,
		current: model.NewTranscript(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to be called with every appended turn
func (s *Store) Subscribe(fn func(model.Turn)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Current returns a copy of the in-memory transcript
func (s *Store) Current() *model.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Reset replaces the in-memory transcript with an empty one for sessionID. Nothing is persisted.
func (s *Store) Reset(sessionID model.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = model.NewTranscript(sessionID)
}

// Restore makes t the in-memory transcript
func (s *Store) Restore(t *model.Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = t.Clone()
}

// Seed appends turns to the in-memory transcript without persisting or notifying
func (s *Store) Seed(turns ...model.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Turns = append(s.current.Turns, turns...)
}

// SetOriginURL records the analysed website on the in-memory transcript
func (s *Store) SetOriginURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.OriginURL = url
}

// Append adds turn, persists the whole transcript and then notifies subscribers.
// Subscribers are not notified when persisting fails.
func (s *Store) Append(ctx context.Context, turn model.Turn) error {
	s.mu.Lock()
	s.current.Turns = append(s.current.Turns, turn)
	snapshot := s.current.Clone()
	s.mu.Unlock()

	if err := s.Persist(ctx, snapshot); err != nil {
		return err
	}

	s.mu.Lock()
	if s.current.SessionID == snapshot.SessionID {
		s.current.SavedAt = snapshot.SavedAt
	}
	subscribers := append([]func(model.Turn){}, s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(turn)
	}
	return nil
}

// Persist writes t under the store key, replacing the previous document. SavedAt is stamped on t.
func (s *Store) Persist(ctx context.Context, t *model.Transcript) error {
	t.SavedAt = clock.Now(ctx)
	if err := s.repo.PutTranscript(ctx, s.key, t); err != nil {
		return goerr.Wrap(err, "failed to persist transcript",
			goerr.V("key", s.key),
			goerr.V("session_id", t.SessionID))
	}
	return nil
}

// Load returns the saved transcript, or nil when there is none. Expired and malformed records are deleted and reported as nil.
func (s *Store) Load(ctx context.Context) (*model.Transcript, error) {
	logger := logging.From(ctx)

	t, err := s.repo.GetTranscript(ctx, s.key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil

	case errors.Is(err, repository.ErrMalformed):
		logger.Debug("discarding malformed transcript", logging.ErrAttr(err))
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil

	case err != nil:
		return nil, goerr.Wrap(err, "failed to load transcript", goerr.V("key", s.key))
	}

	if t.Expired(clock.Now(ctx), s.ttl) {
		logger.Debug("discarding expired transcript",
			"session_id", t.SessionID,
			"saved_at", t.SavedAt,
			"age", clock.Since(ctx, t.SavedAt),
		)
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return t, nil
}

// Clear deletes the persisted transcript
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.DeleteTranscript(ctx, s.key); err != nil {
		return goerr.Wrap(err, "failed to clear transcript", goerr.V("key", s.key))
	}
	return nil
}
