package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/seochat/pkg/adapter"
	"github.com/m-mizutani/seochat/pkg/model"
	"github.com/m-mizutani/seochat/pkg/repository"
)

func newTranscript() *model.Transcript {
	return &model.Transcript{
		Turns: []model.Turn{
			{Role: model.RoleAssistant, Content: "Hello! Paste your website URL."},
			{Role: model.RoleUser, Content: "how is my &lt;title&gt;?"},
			{Role: model.RoleAssistant, Content: "<p><strong>Good</strong></p>"},
		},
		SessionID: "session_1700000000000_abcdefghi",
		OriginURL: "https://example.com",
		SavedAt:   time.UnixMilli(1700000000123),
	}
}

func testRepository(t *testing.T, repo repository.Repository, key string) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetTranscript(ctx, key)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, repository.ErrNotFound))
	})

	t.Run("put and get", func(t *testing.T) {
		want := newTranscript()
		gt.NoError(t, repo.PutTranscript(ctx, key, want))

		got, err := repo.GetTranscript(ctx, key)
		gt.NoError(t, err).Required()
		gt.Equal(t, got.Turns, want.Turns)
		gt.Equal(t, got.SessionID, want.SessionID)
		gt.Equal(t, got.OriginURL, want.OriginURL)
		gt.Equal(t, got.SavedAt.UnixMilli(), want.SavedAt.UnixMilli())
	})

	t.Run("put replaces whole document", func(t *testing.T) {
		replaced := &model.Transcript{
			Turns:     []model.Turn{{Role: model.RoleUser, Content: "only"}},
			SessionID: "session_2",
			SavedAt:   time.UnixMilli(1700000001000),
		}
		gt.NoError(t, repo.PutTranscript(ctx, key, replaced))

		got, err := repo.GetTranscript(ctx, key)
		gt.NoError(t, err).Required()
		gt.A(t, got.Turns).Length(1)
		gt.Equal(t, got.OriginURL, "")
		gt.Equal(t, got.SessionID, model.SessionID("session_2"))
	})

	t.Run("delete", func(t *testing.T) {
		gt.NoError(t, repo.DeleteTranscript(ctx, key))
		_, err := repo.GetTranscript(ctx, key)
		gt.True(t, errors.Is(err, repository.ErrNotFound))
		gt.NoError(t, repo.DeleteTranscript(ctx, key))
	})
}

func TestStorageRepository(t *testing.T) {
	testRepository(t, repository.NewStorage(adapter.NewMemoryStorage()), "seo_chat_history")
}

func TestStorageRepositoryWireFormat(t *testing.T) {
	ctx := context.Background()
	storage := adapter.NewMemoryStorage()
	repo := repository.NewStorage(storage)

	storage.SetRaw("seo_chat_history", []byte(`{
		"messages": [
			{"isBot": true, "content": "welcome"},
			{"isBot": false, "content": "hi"}
		],
		"currentUrl": "https://example.com",
		"sessionId": "session_1_x",
		"timestamp": 1700000000000
	}`))

	got, err := repo.GetTranscript(ctx, "seo_chat_history")
	gt.NoError(t, err).Required()
	gt.Equal(t, got.Turns, []model.Turn{
		{Role: model.RoleAssistant, Content: "welcome"},
		{Role: model.RoleUser, Content: "hi"},
	})
	gt.Equal(t, got.OriginURL, "https://example.com")
	gt.Equal(t, got.SavedAt.UnixMilli(), int64(1700000000000))

	gt.NoError(t, repo.PutTranscript(ctx, "seo_chat_history", got))
	raw, ok := storage.Raw("seo_chat_history")
	gt.True(t, ok)
	gt.S(t, string(raw)).Contains(`"isBot":true`)
	gt.S(t, string(raw)).Contains(`"currentUrl":"https://example.com"`)
	gt.S(t, string(raw)).Contains(`"sessionId":"session_1_x"`)
	gt.S(t, string(raw)).Contains(`"timestamp":1700000000000`)
}

func TestStorageRepositoryMalformed(t *testing.T) {
	testCases := map[string]string{
		"not json":          `{{{`,
		"missing messages":  `{"currentUrl": "", "sessionId": "s", "timestamp": 1}`,
		"null messages":     `{"messages": null, "sessionId": "s", "timestamp": 1}`,
		"missing sessionId": `{"messages": [], "timestamp": 1}`,
		"empty sessionId":   `{"messages": [], "sessionId": "", "timestamp": 1}`,
		"missing timestamp": `{"messages": [], "sessionId": "s"}`,
		"wrong type":        `{"messages": "hello", "sessionId": "s", "timestamp": 1}`,
	}

	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			storage := adapter.NewMemoryStorage()
			storage.SetRaw("k", []byte(raw))

			_, err := repository.NewStorage(storage).GetTranscript(context.Background(), "k")
			gt.Error(t, err)
			gt.True(t, errors.Is(err, repository.ErrMalformed))
			gt.True(t, goerr.HasTag(err, model.TagPersistence))
		})
	}
}
