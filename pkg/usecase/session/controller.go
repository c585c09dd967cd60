package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/adapter"
	"github.com/m-mizutani/seochat/pkg/model"
	"github.com/m-mizutani/seochat/pkg/usecase/transcript"
	"github.com/m-mizutani/seochat/pkg/utils/clock"
	"github.com/m-mizutani/seochat/pkg/utils/logging"
	"github.com/m-mizutani/seochat/pkg/utils/markup"
	"github.com/m-mizutani/seochat/pkg/validator"
)

// Controller owns the session state and drives validation, webhook calls and the transcript
type Controller struct {
	store           *transcript.Store
	webhook         adapter.Webhook
	validator       *validator.URL
	analyzeEndpoint string
	chatEndpoint    string
	messages        Messages

	mu         sync.Mutex
	sessionID  model.SessionID
	websiteURL string
	// generation changes whenever the session is replaced; responses carrying an older value are dropped
	generation uint64

	analyzing atomic.Bool
	chatting  atomic.Bool
}

// NewInput contains parameters for creating a new controller
type NewInput struct {
	Store           *transcript.Store
	Webhook         adapter.Webhook
	Validator       *validator.URL
	AnalyzeEndpoint string
	// ChatEndpoint defaults to AnalyzeEndpoint
	ChatEndpoint string
	Messages     Messages
}

func New(input NewInput) (*Controller, error) {
	if input.Store == nil {
		return nil, goerr.New("transcript store is required")
	}
	if input.Webhook == nil {
		return nil, goerr.New("webhook client is required")
	}
	if input.AnalyzeEndpoint == "" {
		return nil, goerr.New("webhook URL is required")
	}

	v := input.Validator
	if v == nil {
		v = validator.NewURL(validator.Strict)
	}
	chatEndpoint := input.ChatEndpoint
	if chatEndpoint == "" {
		chatEndpoint = input.AnalyzeEndpoint
	}

	return &Controller{
		store:           input.Store,
		webhook:         input.Webhook,
		validator:       v,
		analyzeEndpoint: input.AnalyzeEndpoint,
		chatEndpoint:    chatEndpoint,
		messages:        input.Messages.merge(DefaultMessages()),
	}, nil
}

type token struct {
	generation uint64
	sessionID  model.SessionID
	websiteURL string
}

// SessionID returns the current session identifier
func (c *Controller) SessionID() model.SessionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// WebsiteURL returns the URL of the last successful analysis in this session
func (c *Controller) WebsiteURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.websiteURL
}

// Restore loads the saved transcript into the session. If there is none a new
// session is started with the greeting, and false is returned.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	saved, err := c.store.Load(ctx)
	if err != nil {
		return false, goerr.Wrap(err, "failed to restore transcript")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if saved == nil {
		c.rotate(ctx)
		c.store.Seed(c.greeting())
		return false, nil
	}

	c.generation++
	c.sessionID = saved.SessionID
	c.websiteURL = saved.OriginURL
	c.store.Restore(saved)
	logging.From(ctx).Debug("transcript restored",
		"session_id", saved.SessionID,
		"turns", len(saved.Turns),
	)
	return true, nil
}

// Analyze starts a new analysis session for rawURL. Validation errors leave the
// session untouched. Webhook failures add an error turn and are returned.
func (c *Controller) Analyze(ctx context.Context, rawURL string) (*model.Turn, error) {
	websiteURL, err := c.validator.Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	if !c.analyzing.CompareAndSwap(false, true) {
		return nil, goerr.Wrap(model.ErrBusy, "analysis is in progress")
	}
	defer c.analyzing.Store(false)

	c.mu.Lock()
	tk := c.rotate(ctx)
	if err := c.store.Clear(ctx); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	notice := assistantTurn(strings.ReplaceAll(c.messages.Analyzing, "{url}", websiteURL))
	if err := c.store.Append(ctx, notice); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	logger := logging.From(ctx).With("session_id", tk.sessionID)
	logger.Info("requesting analysis", "url", websiteURL)

	resp, sendErr := c.webhook.Send(ctx, c.analyzeEndpoint, &model.AnalyzeRequest{
		WebsiteURL: websiteURL,
		SessionID:  tk.sessionID,
		Timestamp:  model.Timestamp(clock.Now(ctx)),
		Action:     model.ActionAnalyze,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if tk.generation != c.generation {
		logger.Info("discarding analysis response for replaced session")
		return nil, goerr.Wrap(model.ErrStale, "analysis response arrived after session changed",
			goerr.V("session_id", tk.sessionID))
	}

	if sendErr != nil {
		if err := c.store.Append(ctx, assistantTurn(c.messages.AnalyzeFailed)); err != nil {
			logger.Warn("failed to save error turn", logging.ErrAttr(err))
		}
		return nil, sendErr
	}

	c.websiteURL = websiteURL
	c.store.SetOriginURL(websiteURL)

	reply := assistantTurn(analysisText(resp, c.messages.FindingsTitle))
	if err := c.store.Append(ctx, reply); err != nil {
		return &reply, err
	}
	return &reply, nil
}

// Chat sends message within the current session. Blank messages are ignored and return nil.
func (c *Controller) Chat(ctx context.Context, message string) (*model.Turn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil
	}

	if !c.chatting.CompareAndSwap(false, true) {
		return nil, goerr.Wrap(model.ErrBusy, "previous message is still being answered")
	}
	defer c.chatting.Store(false)

	c.mu.Lock()
	tk := c.current()
	if err := c.store.Append(ctx, model.Turn{Role: model.RoleUser, Content: markup.Escape(message)}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	logger := logging.From(ctx).With("session_id", tk.sessionID)
	logger.Debug("sending chat message", "length", len(message))

	resp, sendErr := c.webhook.Send(ctx, c.chatEndpoint, &model.ChatRequest{
		Message:    message,
		WebsiteURL: tk.websiteURL,
		SessionID:  tk.sessionID,
		Timestamp:  model.Timestamp(clock.Now(ctx)),
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if tk.generation != c.generation {
		logger.Info("discarding chat response for replaced session")
		return nil, goerr.Wrap(model.ErrStale, "chat response arrived after session changed",
			goerr.V("session_id", tk.sessionID))
	}

	if sendErr != nil {
		if err := c.store.Append(ctx, assistantTurn(c.messages.ChatFailed)); err != nil {
			logger.Warn("failed to save error turn", logging.ErrAttr(err))
		}
		return nil, sendErr
	}

	reply := assistantTurn(chatText(resp))
	if err := c.store.Append(ctx, reply); err != nil {
		return &reply, err
	}
	return &reply, nil
}

// Clear deletes the saved transcript and starts a new session with the greeting
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.rotate(ctx)
	c.store.Seed(c.greeting())
	return nil
}

// rotate replaces the session. c.mu must be held.
func (c *Controller) rotate(ctx context.Context) token {
	c.generation++
	c.sessionID = model.NewSessionID(clock.Now(ctx))
	c.websiteURL = ""
	c.store.Reset(c.sessionID)
	return c.current()
}

// current returns the token of the active session. c.mu must be held.
func (c *Controller) current() token {
	return token{
		generation: c.generation,
		sessionID:  c.sessionID,
		websiteURL: c.websiteURL,
	}
}

func (c *Controller) greeting() model.Turn {
	return assistantTurn(c.messages.Greeting)
}

func assistantTurn(text string) model.Turn {
	return model.Turn{Role: model.RoleAssistant, Content: markup.ToHTML(text)}
}
