package keyvaluedb

// Reader gives read access to the records of the store.
type Reader interface {
	// Read decodes the record stored under the key into value. Returns false
	// when there is no such record.
	Read(key []byte, value any) (bool, error)
	// Keys returns the keys which start with prefix in ascending order.
	Keys(prefix []byte) ([][]byte, error)
}

// ReadWriter is the view of the store passed to Store.Update.
type ReadWriter interface {
	Reader
	Write(key []byte, value any) error
	Delete(key []byte) error
}

// Store is a key-value store of CBOR encoded records. Records are only
// changed through Update so that reading and modifying a record is atomic.
type Store interface {
	Reader
	// Update calls fn with read-write view of the store. The changes made by
	// fn are applied when it returns nil and discarded otherwise. Only one
	// update runs at a time.
	Update(fn func(ReadWriter) error) error
}
