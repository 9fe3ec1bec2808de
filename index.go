package viewkit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/autom8ter/viewkit/internal/indexing"
	"github.com/autom8ter/viewkit/kv"
	"github.com/autom8ter/viewkit/kv/kvutil"
)

// IndexEntry is a single row of a view index
type IndexEntry struct {
	Key        collate.Value `json:"key"`
	Value      collate.Value `json:"value"`
	DocumentID string        `json:"id"`
	Sequence   uint64        `json:"seq"`
}

// Index is an ordered view index. Entries are sorted by key (in the order of the index's collator),
// then by document id.
type Index interface {
	// OpenSnapshot opens an immutable view of the index. Writes made after the snapshot was opened are not visible to it.
	OpenSnapshot(ctx context.Context) (Snapshot, error)
}

// Snapshot is a consistent read only view of an index. Cursors are positioned in the gap between two entries.
type Snapshot interface {
	// First returns a cursor before the first entry
	First() Cursor
	// Last returns a cursor after the last entry
	Last() Cursor
	// Seek returns a cursor before the first entry whose key is >= key
	Seek(key collate.Value) Cursor
	// SeekAfter returns a cursor after the last entry whose key is <= key
	SeekAfter(key collate.Value) Cursor
	// UpdateSeq returns the database sequence the index is current with
	UpdateSeq() uint64
	// TotalRows returns the number of entries in the index
	TotalRows() int
	Close()
}

// Cursor moves across the entries of a snapshot. ok is false once the cursor has moved past the first or last entry.
type Cursor interface {
	Next() (entry IndexEntry, ok bool, err error)
	Prev() (entry IndexEntry, ok bool, err error)
	Close()
}

type kvIndex struct {
	db       kv.DB
	view     string
	collator collate.Collator
}

// NewIndex returns the index of a view stored in db. The collator must be the one the index was written with.
func NewIndex(db kv.DB, view string, collator collate.Collator) Index {
	return &kvIndex{db: db, view: view, collator: collator}
}

func (i *kvIndex) OpenSnapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Cancelled, "query aborted")
	}
	tx := i.db.NewTx(false)
	gen, err := activeGeneration(tx, i.view)
	if err != nil {
		tx.Discard()
		return nil, errors.Wrap(err, errors.Unavailable, "failed to open snapshot of view %s", i.view)
	}
	if gen == 0 {
		tx.Discard()
		return nil, errors.New(errors.Unavailable, "view %s has not been built", i.view)
	}
	seq, err := tx.Get(indexing.ViewSeqKey(i.view, gen))
	if err != nil {
		tx.Discard()
		return nil, errors.Wrap(err, errors.Unavailable, "failed to open snapshot of view %s", i.view)
	}
	count, err := tx.Get(indexing.ViewCountKey(i.view, gen))
	if err != nil {
		tx.Discard()
		return nil, errors.Wrap(err, errors.Unavailable, "failed to open snapshot of view %s", i.view)
	}
	return &kvSnapshot{
		tx:        tx,
		prefix:    indexing.ViewPrefix(i.view, gen),
		collator:  i.collator,
		updateSeq: indexing.DecodeUint(seq),
		totalRows: int(indexing.DecodeUint(count)),
	}, nil
}

type kvSnapshot struct {
	tx        kv.Tx
	prefix    []byte
	collator  collate.Collator
	updateSeq uint64
	totalRows int
	once      sync.Once
}

func (s *kvSnapshot) cursor(pos []byte) Cursor {
	return &kvCursor{tx: s.tx, prefix: s.prefix, pos: pos}
}

func (s *kvSnapshot) First() Cursor {
	return s.cursor(append([]byte{}, s.prefix...))
}

func (s *kvSnapshot) Last() Cursor {
	return s.cursor(kvutil.NextPrefix(s.prefix))
}

func (s *kvSnapshot) Seek(key collate.Value) Cursor {
	return s.cursor(append(append([]byte{}, s.prefix...), s.collator.Key(key)...))
}

func (s *kvSnapshot) SeekAfter(key collate.Value) Cursor {
	return s.cursor(kvutil.NextPrefix(append(append([]byte{}, s.prefix...), s.collator.Key(key)...)))
}

func (s *kvSnapshot) UpdateSeq() uint64 {
	return s.updateSeq
}

func (s *kvSnapshot) TotalRows() int {
	return s.totalRows
}

func (s *kvSnapshot) Close() {
	s.once.Do(s.tx.Discard)
}

// kvCursor keeps its position as a raw key: entries with keys >= pos are after the cursor.
type kvCursor struct {
	tx      kv.Tx
	prefix  []byte
	pos     []byte
	iter    kv.Iterator
	reverse bool
}

func (c *kvCursor) open(reverse bool) {
	if c.iter != nil {
		c.iter.Close()
	}
	c.reverse = reverse
	c.iter = c.tx.NewIterator(kv.IterOpts{Seek: c.pos, Reverse: reverse})
	if reverse && c.iter.Valid() && bytes.Equal(c.iter.Item().Key(), c.pos) {
		c.iter.Next()
	}
}

func (c *kvCursor) Next() (IndexEntry, bool, error) {
	if c.iter == nil || c.reverse {
		c.open(false)
	}
	entry, key, ok, err := c.read()
	if !ok || err != nil {
		return entry, ok, err
	}
	c.pos = kvutil.Successor(key)
	c.iter.Next()
	return entry, true, nil
}

func (c *kvCursor) Prev() (IndexEntry, bool, error) {
	if c.iter == nil || !c.reverse {
		c.open(true)
	}
	entry, key, ok, err := c.read()
	if !ok || err != nil {
		return entry, ok, err
	}
	c.pos = key
	c.iter.Next()
	return entry, true, nil
}

func (c *kvCursor) read() (IndexEntry, []byte, bool, error) {
	if !c.iter.Valid() {
		return IndexEntry{}, nil, false, nil
	}
	item := c.iter.Item()
	key := item.Key()
	if !bytes.HasPrefix(key, c.prefix) {
		return IndexEntry{}, nil, false, nil
	}
	bits, err := item.Value()
	if err != nil {
		return IndexEntry{}, nil, false, errors.Wrap(err, errors.Unavailable, "failed to read index entry")
	}
	var entry IndexEntry
	if err := json.Unmarshal(bits, &entry); err != nil {
		return IndexEntry{}, nil, false, errors.Wrap(err, errors.Internal, "corrupt index entry")
	}
	return entry, key, true, nil
}

func (c *kvCursor) Close() {
	if c.iter != nil {
		c.iter.Close()
		c.iter = nil
	}
}
