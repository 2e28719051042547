// Package store holds the authoritative copy of a metadata document. Commits
// are joined into the current document, so concurrent writers converge.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gihan9a/semilattice/internal/utils"

	"github.com/fsnotify/fsnotify"
)

// JoinFunc merges two copies of a document
type JoinFunc[T any] func(a, b T) T

// Listener is called after every change of the document
type Listener func()

// Store keeps a document in memory and optionally mirrors it to a JSON file
type Store[T any] struct {
	mu        sync.RWMutex
	doc       T
	join      JoinFunc[T]
	file      string
	lastHash  string
	version   uint64
	listeners map[string]Listener
	watcher   *fsnotify.Watcher
	logger    *slog.Logger
}

// New creates a store holding initial. When file is not empty the document is
// loaded from it if it exists and every commit is written back to it.
func New[T any](initial T, join JoinFunc[T], file string, logger *slog.Logger) (*Store[T], error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store[T]{
		doc:       initial,
		join:      join,
		file:      file,
		listeners: make(map[string]Listener),
		logger:    logger,
	}

	if file == "" {
		return s, nil
	}

	data, err := os.ReadFile(file)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.persist(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("error reading document file: %w", err)
	default:
		var loaded T
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("error parsing document file %s: %w", file, err)
		}
		s.doc = join(initial, loaded)
		s.lastHash = utils.CalculateHash(data)
	}
	return s, nil
}

// Fetch returns a deep copy of the current document
func (s *Store[T]) Fetch() (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.doc)
}

// Commit joins doc into the current document
func (s *Store[T]) Commit(doc T) error {
	cp, err := clone(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.doc = s.join(s.doc, cp)
	s.version++
	err = s.persist()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// Version counts the changes applied since the store was created
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// OnChange registers a listener and returns a function removing it
func (s *Store[T]) OnChange(l Listener) func() {
	id := utils.GenerateRandomID()

	s.mu.Lock()
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store[T]) notify() {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l()
	}
}

// persist writes the document to its file. Callers hold s.mu.
func (s *Store[T]) persist() error {
	if s.file == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}

	if dir := filepath.Dir(s.file); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create document directory: %w", err)
		}
	}

	// Write to a sibling file first so readers never see a partial document
	tmp := s.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("error writing document file: %w", err)
	}
	if err := os.Rename(tmp, s.file); err != nil {
		return fmt.Errorf("error replacing document file: %w", err)
	}
	s.lastHash = utils.CalculateHash(data)
	return nil
}

func clone[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("error copying document: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("error copying document: %w", err)
	}
	return out, nil
}
