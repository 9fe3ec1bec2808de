package kv

// DB is an ordered key value store with snapshot isolated read transactions
type DB interface {
	// Tx runs fn inside a transaction that is committed if fn returns nil
	Tx(isUpdate bool, fn func(Tx) error) error
	// NewTx opens a transaction the caller must Commit or Discard. A read only
	// transaction is a consistent snapshot of the store as of the time it was opened.
	NewTx(isUpdate bool) Tx
	// Batch returns a write batch for bulk loading
	Batch() Batch
	// DropPrefix deletes every key starting with one of the given prefixes
	DropPrefix(prefix ...[]byte) error
	Close() error
}

// IterOpts configure an Iterator. Seek positions the iterator at the first key >= Seek
// (or the last key <= Seek when Reverse is set).
type IterOpts struct {
	Prefix  []byte `json:"prefix"`
	Seek    []byte `json:"seek"`
	Reverse bool   `json:"reverse"`
}

type Tx interface {
	// Get returns the value of the key or nil if it does not exist
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	NewIterator(opts IterOpts) Iterator
	Commit() error
	Discard()
}

type Iterator interface {
	Seek(key []byte)
	Close()
	Valid() bool
	Item() Item
	Next()
}

type Item interface {
	Key() []byte
	Value() ([]byte, error)
}

type Batch interface {
	// Flush writes the batch. Cancel is a noop after Flush.
	Flush() error
	// Cancel discards the unflushed writes of the batch
	Cancel()
	Set(key, value []byte) error
	Delete(key []byte) error
}
