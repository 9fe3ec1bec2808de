package badger

import (
	"bytes"

	"github.com/autom8ter/viewkit/kv"
	"github.com/autom8ter/viewkit/kv/kvutil"
	"github.com/dgraph-io/badger/v3"
)

type badgerTx struct {
	txn *badger.Txn
}

func (b *badgerTx) NewIterator(kopts kv.IterOpts) kv.Iterator {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.PrefetchSize = 10
	opts.Reverse = kopts.Reverse
	iter := &badgerIterator{iter: b.txn.NewIterator(opts), opts: kopts}
	switch {
	case kopts.Seek != nil:
		iter.Seek(kopts.Seek)
	case kopts.Prefix != nil && kopts.Reverse:
		end := kvutil.NextPrefix(kopts.Prefix)
		if end == nil {
			iter.iter.Rewind()
			break
		}
		iter.iter.Seek(end)
		// the end key itself is outside of the prefix
		if iter.iter.Valid() && !bytes.HasPrefix(iter.iter.Item().Key(), kopts.Prefix) {
			iter.iter.Next()
		}
	case kopts.Prefix != nil:
		iter.iter.Seek(kopts.Prefix)
	default:
		iter.iter.Rewind()
	}
	return iter
}

func (b *badgerTx) Get(key []byte) ([]byte, error) {
	i, err := b.txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	return i.ValueCopy(nil)
}

func (b *badgerTx) Set(key, value []byte) error {
	return b.txn.Set(key, value)
}

func (b *badgerTx) Delete(key []byte) error {
	return b.txn.Delete(key)
}

func (b *badgerTx) Commit() error {
	return b.txn.Commit()
}

func (b *badgerTx) Discard() {
	b.txn.Discard()
}
