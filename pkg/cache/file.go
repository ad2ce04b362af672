package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	DefaultFileName = ".solramp-cache.json"
)

// File persists entries in a single JSON document so the token list survives
// between CLI invocations
type File struct {
	filePath string
	mu       sync.RWMutex
	entries  map[string]fileEntry
	now      func() time.Time
}

type fileEntry struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
}

type fileDocument struct {
	Entries map[string]fileEntry `json:"entries"`
}

// NewFile creates a file store. An empty path defaults to the home directory.
func NewFile(filePath string) (*File, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	f := &File{
		filePath: filePath,
		entries:  make(map[string]fileEntry),
		now:      time.Now,
	}

	if err := f.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load cache: %w", err)
		}
	}

	return f, nil
}

func (f *File) load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return err
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal cache: %w", err)
	}

	if doc.Entries != nil {
		f.entries = doc.Entries
	}
	return nil
}

// save must be called with the write lock held
func (f *File) save() error {
	data, err := json.MarshalIndent(fileDocument{Entries: f.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := f.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}

	if err := os.Rename(tempFile, f.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func (f *File) Get(_ context.Context, key string, dst any) (bool, error) {
	f.mu.RLock()
	entry, ok := f.entries[key]
	f.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if !entry.ExpiresAt.IsZero() && !f.now().Before(entry.ExpiresAt) {
		return false, nil
	}

	if err := json.Unmarshal(entry.Value, dst); err != nil {
		return false, fmt.Errorf("failed to decode cached %q: %w", key, err)
	}
	return true, nil
}

func (f *File) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}

	entry := fileEntry{Value: data}
	if ttl > 0 {
		entry.ExpiresAt = f.now().Add(ttl)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[key] = entry
	return f.save()
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.entries[key]; !ok {
		return nil
	}
	delete(f.entries, key)
	return f.save()
}

// Path returns the backing file path
func (f *File) Path() string {
	return f.filePath
}
