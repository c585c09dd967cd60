package adapter

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/model"
)

// fileStorage stores each key as a JSON file in a directory
type fileStorage struct {
	dir string
}

// NewFileStorage creates the directory if needed
func NewFileStorage(dir string) (Storage, error) {
	if dir == "" {
		return nil, goerr.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, goerr.Wrap(err, "failed to create storage directory", goerr.V("dir", dir))
	}
	return &fileStorage{dir: dir}, nil
}

func (s *fileStorage) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", goerr.New("invalid storage key", goerr.V("key", key))
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *fileStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create temp file", goerr.V("dir", s.dir), goerr.T(model.TagPersistence))
	}
	return &fileWriter{File: tmp, dest: path}, nil
}

func (s *fileStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, goerr.Wrap(ErrNotFound, "object does not exist", goerr.V("key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open file", goerr.V("path", path), goerr.T(model.TagPersistence))
	}
	return f, nil
}

func (s *fileStorage) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "failed to remove file", goerr.V("path", path), goerr.T(model.TagPersistence))
	}
	return nil
}

// fileWriter renames the temp file over the destination on Close so readers never see a partial document
type fileWriter struct {
	*os.File
	dest string
}

func (w *fileWriter) Close() error {
	if err := w.File.Close(); err != nil {
		_ = os.Remove(w.Name())
		return goerr.Wrap(err, "failed to close temp file", goerr.V("path", w.Name()))
	}
	if err := os.Rename(w.Name(), w.dest); err != nil {
		_ = os.Remove(w.Name())
		return goerr.Wrap(err, "failed to replace file", goerr.V("path", w.dest), goerr.T(model.TagPersistence))
	}
	return nil
}
