package repository

import (
	"context"
	"errors"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/adapter"
	"github.com/m-mizutani/seochat/pkg/model"
	"github.com/m-mizutani/seochat/pkg/utils/safe"
)

// storageRepo keeps transcripts as JSON documents in a blob storage
type storageRepo struct {
	storage adapter.Storage
}

// NewStorage creates a Repository on top of a blob storage backend
func NewStorage(storage adapter.Storage) Repository {
	return &storageRepo{storage: storage}
}

func (r *storageRepo) PutTranscript(ctx context.Context, key string, transcript *model.Transcript) error {
	data, err := encodeTranscript(transcript)
	if err != nil {
		return err
	}

	writer, err := r.storage.Put(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to create storage writer", goerr.V("key", key))
	}

	if _, err := writer.Write(data); err != nil {
		safe.Close(ctx, writer)
		return goerr.Wrap(err, "failed to write transcript", goerr.V("key", key))
	}
	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer", goerr.V("key", key))
	}
	return nil
}

func (r *storageRepo) GetTranscript(ctx context.Context, key string) (*model.Transcript, error) {
	reader, err := r.storage.Get(ctx, key)
	if errors.Is(err, adapter.ErrNotFound) {
		return nil, goerr.Wrap(ErrNotFound, "no transcript in storage", goerr.V("key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get transcript from storage", goerr.V("key", key))
	}
	defer safe.Close(ctx, reader)

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read transcript", goerr.V("key", key))
	}

	return decodeTranscript(data)
}

func (r *storageRepo) DeleteTranscript(ctx context.Context, key string) error {
	if err := r.storage.Delete(ctx, key); err != nil {
		return goerr.Wrap(err, "failed to delete transcript", goerr.V("key", key))
	}
	return nil
}
