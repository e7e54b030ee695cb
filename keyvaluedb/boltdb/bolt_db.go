package boltdb

import (
	"bytes"
	"fmt"
	"time"

	"github.com/alphabill-org/chainauthority/keyvaluedb"
	"github.com/alphabill-org/chainauthority/types"
	bolt "go.etcd.io/bbolt"
)

// all records are kept in single bucket, use separate db files to partition
var recordsBucket = []byte("records")

// BoltDB is a keyvaluedb.Store backed by a bbolt file, values are CBOR encoded.
type BoltDB struct {
	db *bolt.DB
}

func New(dbFile string) (*BoltDB, error) {
	db, err := bolt.Open(dbFile, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	}); err != nil {
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return &BoltDB{db: db}, nil
}

func (db *BoltDB) Path() string {
	return db.db.Path()
}

func (db *BoltDB) Read(key []byte, v any) (found bool, err error) {
	err = db.db.View(func(tx *bolt.Tx) error {
		found, err = bucket{tx.Bucket(recordsBucket)}.Read(key, v)
		return err
	})
	return found, err
}

func (db *BoltDB) Keys(prefix []byte) (keys [][]byte, err error) {
	err = db.db.View(func(tx *bolt.Tx) error {
		keys, err = bucket{tx.Bucket(recordsBucket)}.Keys(prefix)
		return err
	})
	return keys, err
}

func (db *BoltDB) Update(fn func(keyvaluedb.ReadWriter) error) error {
	return db.db.Update(func(tx *bolt.Tx) error {
		return fn(bucket{tx.Bucket(recordsBucket)})
	})
}

func (db *BoltDB) Close() error {
	return db.db.Close()
}

// bucket implements keyvaluedb.ReadWriter on the bucket of an open bolt
// transaction.
type bucket struct {
	b *bolt.Bucket
}

func (b bucket) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return false, err
	}
	data := b.b.Get(key)
	if data == nil {
		return false, nil
	}
	if err := types.Cbor.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decoding record %x: %w", key, err)
	}
	return true, nil
}

func (b bucket) Keys(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	c := b.b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		// keys are only valid for the life of the transaction
		keys = append(keys, bytes.Clone(k))
	}
	return keys, nil
}

func (b bucket) Write(key []byte, v any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return err
	}
	data, err := types.Cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding record %x: %w", key, err)
	}
	return b.b.Put(key, data)
}

func (b bucket) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	return b.b.Delete(key)
}
