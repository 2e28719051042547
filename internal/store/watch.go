package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gihan9a/semilattice/internal/utils"

	"github.com/fsnotify/fsnotify"
)

// Watch starts reloading the document when its file is changed by someone
// else. Edits are joined into the current document like commits.
func (s *Store[T]) Watch() error {
	if s.file == "" {
		return fmt.Errorf("store has no document file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory, the file itself is replaced on every commit
	if err := watcher.Add(filepath.Dir(s.file)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.file, err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	go s.watchFile(watcher)
	return nil
}

// Close stops watching the document file
func (s *Store[T]) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if watcher != nil {
		return watcher.Close()
	}
	return nil
}

// watchFile monitors the document file and merges outside edits
func (s *Store[T]) watchFile(watcher *fsnotify.Watcher) {
	target := filepath.Clean(s.file)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// Only process writes to the document file itself
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if err := s.reload(); err != nil {
				s.logger.Warn("Unable to reload document file", "file", s.file, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Watcher error", "error", err)
		}
	}
}

// reload reads the document file and joins it when it differs from what the
// store wrote last
func (s *Store[T]) reload() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return err
	}
	hash := utils.CalculateHash(data)

	s.mu.Lock()
	if hash == s.lastHash {
		s.mu.Unlock()
		return nil
	}
	var loaded T
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("error parsing document file: %w", err)
	}
	s.doc = s.join(s.doc, loaded)
	s.version++
	s.lastHash = hash
	s.mu.Unlock()

	s.logger.Info("Document file changed on disk", "file", s.file)
	s.notify()
	return nil
}
