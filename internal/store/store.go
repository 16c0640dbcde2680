// Package store persists a bot's whole state as one JSON document.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Proton-105/emerans-bots/pkg/metrics"
)

// Normalizer is implemented by documents that backfill defaults after decoding.
type Normalizer interface {
	Normalize()
}

// Store owns the in-memory document of one bot and rewrites its file after every change.
// It is created once at process start and injected into the handlers that need it.
type Store[D any] struct {
	mu   sync.Mutex
	name string
	path string
	doc  *D
	log  *slog.Logger
}

// Open loads the document at path. A missing or empty file yields newDoc().
func Open[D any](ctx context.Context, name, path string, newDoc func() *D, log *slog.Logger) (*Store[D], error) {
	if log == nil {
		log = slog.Default()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := newDoc()
	found, err := readJSON(path, doc)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", name, err)
	}
	if n, ok := any(doc).(Normalizer); ok {
		n.Normalize()
	}

	log.Info("document loaded", slog.String("store", name), slog.String("path", path), slog.Bool("found", found))

	return &Store[D]{
		name: name,
		path: path,
		doc:  doc,
		log:  log,
	}, nil
}

// View runs fn against the current document. fn must not retain the pointer.
func (s *Store[D]) View(fn func(doc *D)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.doc)
}

// Update runs fn and, when it succeeds, rewrites the file before returning.
// If fn returns an error nothing is saved and the error is returned unchanged.
// fn is expected to validate before it mutates.
func (s *Store[D]) Update(ctx context.Context, fn func(doc *D) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.doc); err != nil {
		return err
	}
	return s.saveLocked(ctx)
}

// Save rewrites the file with the current document.
func (s *Store[D]) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

// Path returns the backing file path.
func (s *Store[D]) Path() string {
	return s.path
}

func (s *Store[D]) saveLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := writeJSONAtomic(s.path, s.doc)
	metrics.RecordStoreSave(s.name, time.Since(start), err)
	if err != nil {
		s.log.Error("document save failed", slog.String("store", s.name), slog.Any("error", err))
		return fmt.Errorf("save %s store: %w", s.name, err)
	}
	return nil
}
