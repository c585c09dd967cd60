package adapter

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/model"
	"google.golang.org/api/option"
)

// ErrNotFound is returned by Storage.Get when the key does not exist
var ErrNotFound = goerr.New("object not found")

// Storage is the interface for transcript storage
type Storage interface {
	// Put returns a writer that replaces the object stored at key when closed
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	// Get loads the object stored at key. It returns ErrNotFound if absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// cloudStorage implements Storage interface using Cloud Storage
type cloudStorage struct {
	bucketName string
	prefix     string
	client     *storage.Client
}

// NewCloudStorage creates a new Cloud Storage client. Objects are stored as prefix+key.
func NewCloudStorage(ctx context.Context, bucketName, prefix string, opts ...option.ClientOption) (Storage, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &cloudStorage{
		bucketName: bucketName,
		prefix:     prefix,
		client:     client,
	}, nil
}

func (s *cloudStorage) object(key string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucketName).Object(s.prefix + key)
}

func (s *cloudStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	writer := s.object(key).NewWriter(ctx)
	writer.ContentType = "application/json"
	return writer, nil
}

func (s *cloudStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := s.object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, goerr.Wrap(ErrNotFound, "object does not exist", goerr.V("key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage",
			goerr.V("bucket", s.bucketName),
			goerr.V("key", key),
			goerr.T(model.TagPersistence))
	}
	return reader, nil
}

func (s *cloudStorage) Delete(ctx context.Context, key string) error {
	err := s.object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return goerr.Wrap(err, "failed to delete from storage",
			goerr.V("bucket", s.bucketName),
			goerr.V("key", key),
			goerr.T(model.TagPersistence))
	}
	return nil
}
