package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/model"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collectionTranscripts = "transcripts"

// Firestore implements Repository using one document per key
type Firestore struct {
	client *firestore.Client
}

var _ Repository = &Firestore{}

type firestoreMessage struct {
	IsBot   bool   `firestore:"isBot"`
	Content string `firestore:"content"`
}

type firestoreTranscript struct {
	Messages   []firestoreMessage `firestore:"messages"`
	CurrentURL string             `firestore:"currentUrl"`
	SessionID  string             `firestore:"sessionId"`
	Timestamp  int64              `firestore:"timestamp"`
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("project ID is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) doc(key string) *firestore.DocumentRef {
	return r.client.Collection(collectionTranscripts).Doc(key)
}

func (r *Firestore) PutTranscript(ctx context.Context, key string, transcript *model.Transcript) error {
	rec := newRecord(transcript)
	doc := firestoreTranscript{
		Messages:   make([]firestoreMessage, 0, len(*rec.Messages)),
		CurrentURL: rec.CurrentURL,
		SessionID:  *rec.SessionID,
		Timestamp:  *rec.Timestamp,
	}
	for _, msg := range *rec.Messages {
		doc.Messages = append(doc.Messages, firestoreMessage(msg))
	}

	if _, err := r.doc(key).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put transcript",
			goerr.V("key", key),
			goerr.T(model.TagPersistence))
	}
	return nil
}

func (r *Firestore) GetTranscript(ctx context.Context, key string) (*model.Transcript, error) {
	snap, err := r.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "no transcript in firestore", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to get transcript",
			goerr.V("key", key),
			goerr.T(model.TagPersistence))
	}

	data := snap.Data()
	for _, field := range []string{"messages", "sessionId", "timestamp"} {
		if _, ok := data[field]; !ok {
			return nil, goerr.Wrap(ErrMalformed, "required field is missing",
				goerr.V("field", field),
				goerr.T(model.TagPersistence))
		}
	}

	var doc firestoreTranscript
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(ErrMalformed, "failed to decode transcript",
			goerr.V("cause", err.Error()),
			goerr.T(model.TagPersistence))
	}

	messages := make([]recordMessage, 0, len(doc.Messages))
	for _, msg := range doc.Messages {
		messages = append(messages, recordMessage(msg))
	}
	rec := record{
		Messages:   &messages,
		CurrentURL: doc.CurrentURL,
		SessionID:  &doc.SessionID,
		Timestamp:  &doc.Timestamp,
	}
	return rec.toTranscript()
}

func (r *Firestore) DeleteTranscript(ctx context.Context, key string) error {
	if _, err := r.doc(key).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return goerr.Wrap(err, "failed to delete transcript",
			goerr.V("key", key),
			goerr.T(model.TagPersistence))
	}
	return nil
}
