package adapter_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/seochat/pkg/adapter"
)

func put(t *testing.T, s adapter.Storage, key string, data string) {
	t.Helper()
	w, err := s.Put(context.Background(), key)
	gt.NoError(t, err).Required()
	_, err = w.Write([]byte(data))
	gt.NoError(t, err).Required()
	gt.NoError(t, w.Close()).Required()
}

func get(t *testing.T, s adapter.Storage, key string) (string, error) {
	t.Helper()
	r, err := s.Get(context.Background(), key)
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	gt.NoError(t, err)
	return string(data), nil
}

func testStorage(t *testing.T, s adapter.Storage) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := get(t, s, "missing")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, adapter.ErrNotFound))
	})

	t.Run("put and get", func(t *testing.T) {
		put(t, s, "history", `{"v":1}`)
		data, err := get(t, s, "history")
		gt.NoError(t, err)
		gt.Equal(t, data, `{"v":1}`)
	})

	t.Run("put overwrites", func(t *testing.T) {
		put(t, s, "history", `{"v":2}`)
		data, err := get(t, s, "history")
		gt.NoError(t, err)
		gt.Equal(t, data, `{"v":2}`)
	})

	t.Run("delete", func(t *testing.T) {
		gt.NoError(t, s.Delete(ctx, "history"))
		_, err := get(t, s, "history")
		gt.True(t, errors.Is(err, adapter.ErrNotFound))
	})

	t.Run("delete missing key", func(t *testing.T) {
		gt.NoError(t, s.Delete(ctx, "never-written"))
	})
}

func TestMemoryStorage(t *testing.T) {
	testStorage(t, adapter.NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := adapter.NewFileStorage(filepath.Join(dir, "nested"))
	gt.NoError(t, err).Required()
	testStorage(t, s)

	t.Run("no temp files left behind", func(t *testing.T) {
		put(t, s, "history", `{}`)
		entries, err := os.ReadDir(filepath.Join(dir, "nested"))
		gt.NoError(t, err)
		gt.A(t, entries).Length(1)
		gt.Equal(t, entries[0].Name(), "history.json")
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := s.Put(context.Background(), "../escape")
		gt.Error(t, err)
	})
}

func TestSQLiteStorage(t *testing.T) {
	s, err := adapter.NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "seochat.db"))
	gt.NoError(t, err).Required()
	defer func() { _ = s.Close() }()

	testStorage(t, s)
}

func TestCloudStorage(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET is not set")
	}
	prefix := os.Getenv("TEST_GCS_PREFIX") + "test-" + time.Now().Format("20060102150405") + "/"

	s, err := adapter.NewCloudStorage(context.Background(), bucket, prefix)
	gt.NoError(t, err).Required()
	testStorage(t, s)
}
