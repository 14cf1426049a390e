// Package cachestore implements the content-addressed on-disk cache
// shared by evidence producers: deterministic key derivation from an
// audio descriptor plus function name and parameters, and atomic writes
// via temp-file-then-rename.
package cachestore

import (
	"crypto/sha1" //nolint:gosec // content-addressing, not a security boundary
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/farcloser/turnmark/internal/apperr"
)

// Store is a directory-backed content-addressed cache. The disabled store
// returned by NewStore("") makes Get always miss and Put a no-op, matching
// the "cache_dir may be None" behavior of producers.
type Store struct {
	dir      string
	disabled bool
}

// NewStore returns a Store rooted at dir. An empty dir disables caching.
func NewStore(dir string) *Store {
	if dir == "" {
		return &Store{disabled: true}
	}

	return &Store{dir: dir}
}

// Key derives the deterministic cache key for an audio descriptor, a
// function name, and a parameter set. params is marshaled with sorted
// keys so the digest is stable across map iteration order.
func Key(audioPath string, absPath string, size int64, modTimeUnixNano int64, funcName string, params map[string]any) (string, error) {
	normalized := normalizeParams(params)

	descriptor := map[string]any{
		"func":       funcName,
		"audio_path": audioPath,
		"path":       absPath,
		"size":       size,
		"mtime":      modTimeUnixNano,
		"params":     normalized,
	}

	payload, err := json.Marshal(descriptor)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling cache descriptor: %w", apperr.ErrInternal, err)
	}

	sum := sha1.Sum(payload) //nolint:gosec // content-addressing, not a security boundary

	return hex.EncodeToString(sum[:]), nil
}

// normalizeParams copies params into a fresh map; encoding/json already
// sorts map keys when marshaling, but this keeps the descriptor's shape
// explicit regardless of encoder internals.
func normalizeParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	return out
}

// path returns the on-disk path for a cache key with the given extension
// (e.g. ".npz" equivalent — this implementation uses ".json").
func (s *Store) path(key, ext string) string {
	return filepath.Join(s.dir, key+ext)
}

// Has reports whether a cached artifact exists for key.
func (s *Store) Has(key, ext string) bool {
	if s.disabled {
		return false
	}

	_, err := os.Stat(s.path(key, ext))

	return err == nil
}

// Get reads and JSON-decodes a cached artifact into v. Returns (false,
// nil) on a cache miss.
func (s *Store) Get(key, ext string, v any) (bool, error) {
	if s.disabled {
		return false, nil
	}

	data, err := os.ReadFile(s.path(key, ext)) //nolint:gosec // key is a derived hex digest, ext is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("%w: reading cache entry: %w", apperr.ErrIO, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: decoding cache entry: %w", apperr.ErrInternal, err)
	}

	return true, nil
}

// Put JSON-encodes v and atomically writes it under key (write to a
// temp file in the same directory, then rename), per the spec's
// requirement that parallel item evaluation be cache-write-safe.
func (s *Store) Put(key, ext string, v any) error {
	if s.disabled {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil { //nolint:gosec // cache directory, not security-sensitive
		return fmt.Errorf("%w: creating cache directory: %w", apperr.ErrIO, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding cache entry: %w", apperr.ErrInternal, err)
	}

	final := s.path(key, ext)

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp cache file: %w", apperr.ErrIO, err)
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("%w: writing temp cache file: %w", apperr.ErrIO, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("%w: closing temp cache file: %w", apperr.ErrIO, err)
	}

	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("%w: renaming temp cache file into place: %w", apperr.ErrIO, err)
	}

	return nil
}
