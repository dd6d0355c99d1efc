// Package cache persists per-file scan results in BadgerDB so repeated runs
// over an unchanged corpus skip pattern matching.
//
// Keys are content addressed: a file's text digest, the rules version and a
// caller-supplied salt (the scan windows). Pass-2 keys add the MethodIndex
// digest, since call filtering depends on the whole corpus. A nil *Cache is
// a valid, always-missing cache.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"

	"github.com/phobologic/javamap/internal/model"
	"github.com/phobologic/javamap/internal/rules"
)

// Config holds configuration for a cache instance.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps the cache in RAM; useful for tests.
	InMemory bool

	// Salt distinguishes results produced under different scan settings.
	Salt string

	// Logger receives BadgerDB's internal logs. Nil disables them.
	Logger *slog.Logger
}

// Cache is safe for concurrent use.
type Cache struct {
	db   *badger.DB
	salt string
	log  *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens or creates the cache.
func Open(cfg Config) (*Cache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Cache{db: db, salt: cfg.Salt, log: log}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

// Digest returns the content digest of text.
func Digest(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 16)
}

func (c *Cache) methodsKey(path, text string) []byte {
	return []byte("m1:" + rules.Version + ":" + c.salt + ":" + path + ":" + Digest(text))
}

func (c *Cache) resultKey(path, text, indexDigest string) []byte {
	return []byte("m2:" + rules.Version + ":" + c.salt + ":" + path + ":" + Digest(text) + ":" + indexDigest)
}

// Methods returns the cached pass-1 result for a file.
func (c *Cache) Methods(path, text string) ([]model.MethodRef, bool) {
	if c == nil {
		return nil, false
	}
	var refs []model.MethodRef
	if !c.get(c.methodsKey(path, text), &refs) {
		return nil, false
	}
	return refs, true
}

// PutMethods stores a pass-1 result.
func (c *Cache) PutMethods(path, text string, refs []model.MethodRef) {
	if c == nil {
		return
	}
	c.put(c.methodsKey(path, text), refs)
}

// Result returns the cached pass-2 result for a file under an index digest.
func (c *Cache) Result(path, text, indexDigest string) (model.FileResult, bool) {
	if c == nil {
		return model.FileResult{}, false
	}
	var res model.FileResult
	if !c.get(c.resultKey(path, text, indexDigest), &res) {
		return model.FileResult{}, false
	}
	return res, true
}

// PutResult stores a pass-2 result.
func (c *Cache) PutResult(path, text, indexDigest string, res model.FileResult) {
	if c == nil {
		return
	}
	c.put(c.resultKey(path, text, indexDigest), res)
}

// get decodes the value at key into v. Failures are logged and read as a miss.
func (c *Cache) get(key []byte, v any) bool {
	if c == nil {
		return false
	}
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.log.Warn("cache read failed", slog.String("key", string(key)), slog.Any("error", err))
		}
		return false
	}
	return true
}

func (c *Cache) put(key []byte, v any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("cache encode failed", slog.String("key", string(key)), slog.Any("error", err))
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		c.log.Warn("cache write failed", slog.String("key", string(key)), slog.Any("error", err))
	}
}
