// Package store persists generated worlds, one per language and slot.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var ErrInvalidWorld = errors.New("world needs a language and a title or prompt")

// World is one saved generation.
type World struct {
	ID        string    `yaml:"id"`
	Language  string    `yaml:"language"`
	Slot      int       `yaml:"slot"`
	Title     string    `yaml:"title"`
	Prompt    string    `yaml:"prompt"`
	Provider  string    `yaml:"provider,omitempty"`
	Source    string    `yaml:"source,omitempty"`
	CreatedAt time.Time `yaml:"createdAt"`
}

type file struct {
	Worlds []World `yaml:"worlds"`
}

// Store is a YAML file of worlds guarded by a mutex. Every write rewrites
// the whole file.
type Store struct {
	path   string
	mu     sync.Mutex
	worlds []World
	now    func() time.Time
}

// Open loads the store at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse store %s: %w", path, err)
	}
	s.worlds = f.Worlds
	return s, nil
}

// Put saves w in its (language, slot) position and returns the world it
// replaced, if any. ID and CreatedAt are filled in when empty.
func (s *Store) Put(w World) (*World, error) {
	w.Language = strings.TrimSpace(w.Language)
	if w.Language == "" || (strings.TrimSpace(w.Title) == "" && strings.TrimSpace(w.Prompt) == "") {
		return nil, ErrInvalidWorld
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var prev *World
	next := make([]World, 0, len(s.worlds)+1)
	for _, existing := range s.worlds {
		if existing.Language == w.Language && existing.Slot == w.Slot {
			old := existing
			prev = &old
			continue
		}
		next = append(next, existing)
	}
	next = append(next, w)

	if err := s.save(next); err != nil {
		return nil, err
	}
	s.worlds = next
	return prev, nil
}

// Get returns the world saved for language and slot.
func (s *Store) Get(language string, slot int) (World, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.worlds {
		if w.Language == language && w.Slot == slot {
			return w, true
		}
	}
	return World{}, false
}

// List returns the worlds newest first, optionally limited to one language.
func (s *Store) List(language string) []World {
	s.mu.Lock()
	out := make([]World, 0, len(s.worlds))
	for _, w := range s.worlds {
		if language == "" || w.Language == language {
			out = append(out, w)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete removes the world with id. It reports whether one was found.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]World, 0, len(s.worlds))
	for _, w := range s.worlds {
		if w.ID != id {
			next = append(next, w)
		}
	}
	if len(next) == len(s.worlds) {
		return false, nil
	}
	if err := s.save(next); err != nil {
		return false, err
	}
	s.worlds = next
	return true, nil
}

func (s *Store) save(worlds []World) error {
	data, err := yaml.Marshal(file{Worlds: worlds})
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}
