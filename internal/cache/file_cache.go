package cache

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type CacheService[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
	GenerateKey(params ...interface{}) string
}

var errStale = errors.New("stale cache entry")

// entry is the document written for one key. Sum is the sha256 of the
// encoded Data and guards against truncated or hand edited files.
type entry[T any] struct {
	Data   T         `json:"data"`
	Stored time.Time `json:"stored_at"`
	Sum    string    `json:"sum"`
}

type Option func(*options)

type options struct {
	maxAge time.Duration
}

// WithMaxAge expires entries older than age. Zero keeps entries forever.
func WithMaxAge(age time.Duration) Option {
	return func(o *options) { o.maxAge = age }
}

// FileCache stores one JSON document per key under a directory. Stale or
// corrupt documents are removed on read and reported as misses.
type FileCache[T any] struct {
	dir  string
	opts options
}

func NewFileCache[T any](dir, subDir string, opts ...Option) *FileCache[T] {
	fc := &FileCache[T]{dir: filepath.Join(dir, subDir)}
	for _, opt := range opts {
		opt(&fc.opts)
	}
	return fc
}

func (fc *FileCache[T]) GenerateKey(params ...interface{}) string {
	var b strings.Builder
	for _, param := range params {
		fmt.Fprintf(&b, "%v_", param)
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (fc *FileCache[T]) path(key string) string {
	return filepath.Join(fc.dir, key+".json")
}

func checksum(raw json.RawMessage) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (fc *FileCache[T]) read(key string) (T, error) {
	var zero T
	raw, err := os.ReadFile(fc.path(key))
	if err != nil {
		return zero, err
	}

	var doc entry[json.RawMessage]
	if err := json.Unmarshal(raw, &doc); err != nil {
		return zero, err
	}
	if doc.Sum != checksum(doc.Data) {
		return zero, errStale
	}
	if fc.opts.maxAge > 0 && time.Since(doc.Stored) > fc.opts.maxAge {
		return zero, errStale
	}

	var data T
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return zero, err
	}
	return data, nil
}

func (fc *FileCache[T]) Get(key string) (T, bool) {
	data, err := fc.read(key)
	if err == nil {
		return data, true
	}
	if !errors.Is(err, os.ErrNotExist) {
		os.Remove(fc.path(key))
	}
	return data, false
}

func (fc *FileCache[T]) Set(key string, data T) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode cache data: %w", err)
	}
	doc, err := json.Marshal(entry[json.RawMessage]{Data: encoded, Stored: time.Now(), Sum: checksum(encoded)})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := os.MkdirAll(fc.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(fc.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	_, werr := tmp.Write(doc)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fc.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}
	return nil
}
