package badger

import (
	"github.com/dgraph-io/badger/v3"
)

type badgerBatch struct {
	batch *badger.WriteBatch
	done  bool
}

func (b *badgerBatch) Set(key, value []byte) error {
	return b.batch.Set(key, value)
}

func (b *badgerBatch) Delete(key []byte) error {
	return b.batch.Delete(key)
}

func (b *badgerBatch) Flush() error {
	b.done = true
	return b.batch.Flush()
}

func (b *badgerBatch) Cancel() {
	if b.done {
		return
	}
	b.done = true
	b.batch.Cancel()
}
