package badger_test

import (
	"fmt"
	"testing"

	"github.com/autom8ter/viewkit/kv"
	"github.com/autom8ter/viewkit/kv/badger"
	"github.com/stretchr/testify/assert"
)

func Test(t *testing.T) {
	db, err := badger.New("")
	assert.Nil(t, err)
	defer db.Close()
	data := map[string]string{}
	for i := 0; i < 10; i++ {
		data[fmt.Sprintf("key.%d", i)] = fmt.Sprint(i)
	}
	t.Run("set", func(t *testing.T) {
		assert.Nil(t, db.Tx(true, func(tx kv.Tx) error {
			for k, v := range data {
				assert.Nil(t, tx.Set([]byte(k), []byte(v)))
			}
			return nil
		}))
	})
	t.Run("get", func(t *testing.T) {
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			for k, v := range data {
				data, err := tx.Get([]byte(k))
				assert.Nil(t, err)
				assert.EqualValues(t, string(v), string(data))
			}
			missing, err := tx.Get([]byte("missing"))
			assert.Nil(t, err)
			assert.Nil(t, missing)
			return nil
		}))
	})
	t.Run("batch", func(t *testing.T) {
		batch := db.Batch()
		assert.Nil(t, batch.Set([]byte("other.1"), []byte("1")))
		assert.Nil(t, batch.Flush())
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			data, err := tx.Get([]byte("other.1"))
			assert.Nil(t, err)
			assert.EqualValues(t, "1", string(data))
			return nil
		}))
	})
	t.Run("iterate prefix", func(t *testing.T) {
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			iter := tx.NewIterator(kv.IterOpts{
				Prefix: []byte("key."),
			})
			defer iter.Close()
			i := 0
			for iter.Valid() {
				item := iter.Item()
				assert.Equal(t, fmt.Sprintf("key.%d", i), string(item.Key()))
				val, _ := item.Value()
				assert.EqualValues(t, string(val), data[string(item.Key())])
				i++
				iter.Next()
			}
			assert.Equal(t, len(data), i)
			return nil
		}))
	})
	t.Run("iterate prefix reverse", func(t *testing.T) {
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			iter := tx.NewIterator(kv.IterOpts{
				Prefix:  []byte("key."),
				Reverse: true,
			})
			defer iter.Close()
			i := 9
			for iter.Valid() {
				assert.Equal(t, fmt.Sprintf("key.%d", i), string(iter.Item().Key()))
				i--
				iter.Next()
			}
			assert.Equal(t, -1, i)
			return nil
		}))
	})
	t.Run("seek", func(t *testing.T) {
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			iter := tx.NewIterator(kv.IterOpts{Seek: []byte("key.45")})
			defer iter.Close()
			assert.True(t, iter.Valid())
			assert.Equal(t, "key.5", string(iter.Item().Key()))
			return nil
		}))
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			iter := tx.NewIterator(kv.IterOpts{Seek: []byte("key.45"), Reverse: true})
			defer iter.Close()
			assert.True(t, iter.Valid())
			assert.Equal(t, "key.4", string(iter.Item().Key()))
			return nil
		}))
	})
	t.Run("snapshot isolation", func(t *testing.T) {
		snapshot := db.NewTx(false)
		defer snapshot.Discard()
		assert.Nil(t, db.Tx(true, func(tx kv.Tx) error {
			return tx.Set([]byte("key.0"), []byte("changed"))
		}))
		val, err := snapshot.Get([]byte("key.0"))
		assert.Nil(t, err)
		assert.Equal(t, "0", string(val))
	})
	t.Run("drop prefix", func(t *testing.T) {
		assert.Nil(t, db.DropPrefix([]byte("other.")))
		assert.Nil(t, db.Tx(false, func(tx kv.Tx) error {
			data, err := tx.Get([]byte("other.1"))
			assert.Nil(t, err)
			assert.Nil(t, data)
			return nil
		}))
	})
}
