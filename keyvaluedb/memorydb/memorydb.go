package memorydb

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alphabill-org/chainauthority/keyvaluedb"
	"github.com/alphabill-org/chainauthority/types"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MemoryDB is a keyvaluedb.Store which keeps the records in a map. Values
// are encoded the same way as in the persistent store.
type MemoryDB struct {
	mu      sync.RWMutex
	records records
}

func New() *MemoryDB {
	return &MemoryDB{records: make(records)}
}

func (db *MemoryDB) Read(key []byte, value any) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.records.Read(key, value)
}

func (db *MemoryDB) Keys(prefix []byte) ([][]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.records.Keys(prefix)
}

// Update runs fn on a copy of the records which replaces the content of the
// DB when fn succeeds. fn must use the view it is given, calling methods of
// the DB from within fn deadlocks.
func (db *MemoryDB) Update(fn func(keyvaluedb.ReadWriter) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	pending := maps.Clone(db.records)
	if err := fn(pending); err != nil {
		return err
	}
	db.records = pending
	return nil
}

type records map[string][]byte

func (r records) Read(key []byte, value any) (bool, error) {
	if err := keyvaluedb.CheckKeyAndValue(key, value); err != nil {
		return false, err
	}
	data, ok := r[string(key)]
	if !ok {
		return false, nil
	}
	if err := types.Cbor.Unmarshal(data, value); err != nil {
		return true, fmt.Errorf("decoding record %x: %w", key, err)
	}
	return true, nil
}

func (r records) Keys(prefix []byte) ([][]byte, error) {
	var matching []string
	for _, k := range maps.Keys(r) {
		if strings.HasPrefix(k, string(prefix)) {
			matching = append(matching, k)
		}
	}
	slices.Sort(matching)
	keys := make([][]byte, len(matching))
	for i, k := range matching {
		keys[i] = []byte(k)
	}
	return keys, nil
}

func (r records) Write(key []byte, value any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, value); err != nil {
		return err
	}
	data, err := types.Cbor.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding record %x: %w", key, err)
	}
	r[string(key)] = data
	return nil
}

func (r records) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	delete(r, string(key))
	return nil
}
