package repository

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/model"
)

// record is the persisted shape of a transcript
type record struct {
	Messages   *[]recordMessage `json:"messages"`
	CurrentURL string           `json:"currentUrl"`
	SessionID  *string          `json:"sessionId"`
	Timestamp  *int64           `json:"timestamp"`
}

type recordMessage struct {
	IsBot   bool   `json:"isBot" firestore:"isBot"`
	Content string `json:"content" firestore:"content"`
}

func newRecord(t *model.Transcript) *record {
	messages := make([]recordMessage, 0, len(t.Turns))
	for _, turn := range t.Turns {
		messages = append(messages, recordMessage{
			IsBot:   turn.IsBot(),
			Content: turn.Content,
		})
	}
	sessionID := string(t.SessionID)
	ts := t.SavedAt.UnixMilli()

	return &record{
		Messages:   &messages,
		CurrentURL: t.OriginURL,
		SessionID:  &sessionID,
		Timestamp:  &ts,
	}
}

func (r *record) toTranscript() (*model.Transcript, error) {
	switch {
	case r.Messages == nil:
		return nil, goerr.Wrap(ErrMalformed, "messages is missing", goerr.T(model.TagPersistence))
	case r.SessionID == nil || *r.SessionID == "":
		return nil, goerr.Wrap(ErrMalformed, "sessionId is missing", goerr.T(model.TagPersistence))
	case r.Timestamp == nil:
		return nil, goerr.Wrap(ErrMalformed, "timestamp is missing", goerr.T(model.TagPersistence))
	}

	turns := make([]model.Turn, 0, len(*r.Messages))
	for _, msg := range *r.Messages {
		role := model.RoleUser
		if msg.IsBot {
			role = model.RoleAssistant
		}
		turns = append(turns, model.Turn{Role: role, Content: msg.Content})
	}

	return &model.Transcript{
		Turns:     turns,
		SessionID: model.SessionID(*r.SessionID),
		OriginURL: r.CurrentURL,
		SavedAt:   time.UnixMilli(*r.Timestamp),
	}, nil
}

func encodeTranscript(t *model.Transcript) ([]byte, error) {
	data, err := json.Marshal(newRecord(t))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal transcript")
	}
	return data, nil
}

func decodeTranscript(data []byte) (*model.Transcript, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, goerr.Wrap(ErrMalformed, "failed to unmarshal transcript",
			goerr.V("cause", err.Error()),
			goerr.T(model.TagPersistence))
	}
	return r.toTranscript()
}
