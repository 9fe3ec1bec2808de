package badger

import (
	"bytes"

	"github.com/autom8ter/viewkit/kv"
	"github.com/dgraph-io/badger/v3"
)

type badgerIterator struct {
	opts kv.IterOpts
	iter *badger.Iterator
}

func (b *badgerIterator) Seek(key []byte) {
	b.iter.Seek(key)
}

func (b *badgerIterator) Close() {
	b.iter.Close()
}

func (b *badgerIterator) Valid() bool {
	if !b.iter.Valid() {
		return false
	}
	if b.opts.Prefix != nil {
		return bytes.HasPrefix(b.iter.Item().Key(), b.opts.Prefix)
	}
	return true
}

func (b *badgerIterator) Item() kv.Item {
	return badgerItem{item: b.iter.Item()}
}

func (b *badgerIterator) Next() {
	b.iter.Next()
}
