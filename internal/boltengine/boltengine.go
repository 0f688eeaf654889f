// Package boltengine adapts go.etcd.io/bbolt to the same Set/Get/Remove
// capability interface internal/kvs implements: a thin translation layer,
// not a second storage engine to maintain.
package boltengine

import (
	"path/filepath"

	"github.com/dreamerlzl/ignitekv/pkg/errors"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var bucketName = []byte("kv")

// Engine adapts a bbolt database file to Set/Get/Remove.
type Engine struct {
	db  *bbolt.DB
	log *zap.SugaredLogger
}

// Open opens (creating if necessary) a bbolt database file inside dataDir.
func Open(dataDir string, log *zap.SugaredLogger) (*Engine, error) {
	path := filepath.Join(dataDir, "bolt.db")

	db, err := bbolt.Open(path, 0644, nil)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to open bolt database").
			WithPath(path)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create bolt bucket").
			WithPath(path)
	}

	log.Infow("bolt engine opened", "path", path)
	return &Engine{db: db, log: log}, nil
}

// Set stores key=value, overwriting any prior value.
func (e *Engine) Set(key, value string) error {
	return e.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(value))
	})
}

// Get retrieves key's current value.
func (e *Engine) Get(key string) (string, error) {
	var value string
	var found bool

	err := e.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v != nil {
			found = true
			value = string(v)
		}
		return nil
	})
	if err != nil {
		return "", errors.NewStorageError(err, errors.ErrorCodeIO, "bolt read transaction failed").
			WithFileName("bolt.db")
	}
	if !found {
		return "", errors.NewKeyNotFoundError(key)
	}

	return value, nil
}

// Remove deletes key, returning a KeyNotFound error if it didn't exist.
func (e *Engine) Remove(key string) error {
	var found bool

	err := e.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if v := b.Get([]byte(key)); v != nil {
			found = true
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "bolt write transaction failed").
			WithFileName("bolt.db")
	}
	if !found {
		return errors.NewKeyNotFoundError(key)
	}

	return nil
}

// Close closes the underlying bbolt database.
func (e *Engine) Close() error {
	return e.db.Close()
}
