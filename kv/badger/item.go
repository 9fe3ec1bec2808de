package badger

import (
	"github.com/autom8ter/viewkit/errors"
	"github.com/dgraph-io/badger/v3"
)

// badgerItem copies keys and values out of badger's buffers so they outlive the iterator position
type badgerItem struct {
	item *badger.Item
}

func (i badgerItem) Key() []byte {
	return i.item.KeyCopy(nil)
}

func (i badgerItem) Value() ([]byte, error) {
	bits, err := i.item.ValueCopy(nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to read value of %s", string(i.item.Key()))
	}
	return bits, nil
}
