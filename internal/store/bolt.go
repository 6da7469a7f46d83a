package store

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/malonaz/polychat/internal/file"
)

var boltBucket = []byte("polychat")

// BoltBackend implements a Backend on a single bolt bucket.
type BoltBackend struct {
	db *bolt.DB
}

// NewBoltBackend opens or creates the database at path.
func NewBoltBackend(path string) (*BoltBackend, error) {
	if err := file.CreateDirectoryIfNotExist(filepath.Dir(path)); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating bucket")
	}
	return &BoltBackend{db: db}, nil
}

// Get implements Backend.
func (b *BoltBackend) Get(key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		// Values are only valid for the lifetime of the transaction.
		if v := tx.Bucket(boltBucket).Get([]byte(key)); v != nil {
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading key")
	}
	return value, nil
}

// Put implements Backend.
func (b *BoltBackend) Put(key string, value []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), value)
	})
	return errors.Wrap(err, "writing key")
}

// Delete implements Backend.
func (b *BoltBackend) Delete(key string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
	return errors.Wrap(err, "deleting key")
}

// Close closes the database.
func (b *BoltBackend) Close() error {
	return b.db.Close()
}
