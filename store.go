package viewkit

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/autom8ter/viewkit/errors"
	"github.com/autom8ter/viewkit/internal/indexing"
	"github.com/autom8ter/viewkit/kv"
	"github.com/dgraph-io/ristretto"
	"github.com/tidwall/gjson"
)

// DocumentStore resolves the documents referenced by view rows
type DocumentStore interface {
	// Fetch returns the revision of a document written at seq. A seq of 0 returns the current revision.
	// Missing (and, for the current revision, deleted) documents return an errors.NotFound error.
	Fetch(ctx context.Context, id string, seq uint64) (*Document, error)
}

// revision is the persisted form of an immutable document revision
type revision struct {
	ID          string                `json:"id"`
	Rev         string                `json:"rev"`
	Seq         uint64                `json:"seq"`
	Deleted     bool                  `json:"deleted,omitempty"`
	Conflicts   []string              `json:"conflicts,omitempty"`
	Attachments map[string]Attachment `json:"attachments,omitempty"`
	Body        json.RawMessage       `json:"body"`
}

func newRevision(doc *Document) *revision {
	return &revision{
		ID:          doc.ID,
		Rev:         doc.Rev,
		Seq:         doc.Sequence,
		Deleted:     doc.Deleted,
		Conflicts:   doc.Conflicts,
		Attachments: doc.Attachments,
		Body:        doc.Body(),
	}
}

func (r *revision) document() *Document {
	d := &Document{
		ID:        r.ID,
		Rev:       r.Rev,
		Sequence:  r.Seq,
		Deleted:   r.Deleted,
		Conflicts: append([]string(nil), r.Conflicts...),
		result:    gjson.ParseBytes(r.Body),
	}
	if r.Attachments != nil {
		d.Attachments = make(map[string]Attachment, len(r.Attachments))
		for name, a := range r.Attachments {
			d.Attachments[name] = a
		}
	}
	return d
}

// kvStore reads documents from the kv database. Revisions never change once written so they are cached by sequence.
type kvStore struct {
	db    kv.DB
	cache *ristretto.Cache
	// mu is held exclusively while revisions are deleted so that no fetch caches a deleted revision
	mu sync.RWMutex
}

func newDocumentStore(db kv.DB, cacheSize int64) (*kvStore, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cacheSize * 10,
		MaxCost:     cacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to create document cache")
	}
	return &kvStore{db: db, cache: cache}, nil
}

func (s *kvStore) Fetch(ctx context.Context, id string, seq uint64) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Cancelled, "fetch aborted")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		rev    *revision
		latest = seq == 0
	)
	if err := s.db.Tx(false, func(tx kv.Tx) error {
		if latest {
			current, err := currentSequence(tx, id)
			if err != nil {
				return err
			}
			seq = current
		}
		var err error
		rev, err = s.readRevision(tx, seq)
		return err
	}); err != nil {
		return nil, err
	}
	if rev == nil || rev.ID != id || (latest && rev.Deleted) {
		return nil, errors.New(errors.NotFound, "document not found: %s", id)
	}
	return rev.document(), nil
}

// current returns the current revision of a document inside tx, or nil if it has never been written
func (s *kvStore) current(tx kv.Tx, id string) (*revision, error) {
	seq, err := currentSequence(tx, id)
	if err != nil || seq == 0 {
		return nil, err
	}
	return s.readRevision(tx, seq)
}

func (s *kvStore) readRevision(tx kv.Tx, seq uint64) (*revision, error) {
	if seq == 0 {
		return nil, nil
	}
	if cached, ok := s.cache.Get(seq); ok {
		return cached.(*revision), nil
	}
	bits, err := tx.Get(indexing.RevisionKey(seq))
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to read revision %d", seq)
	}
	if bits == nil {
		return nil, nil
	}
	var rev revision
	if err := json.Unmarshal(bits, &rev); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "corrupt revision %d", seq)
	}
	s.cache.Set(seq, &rev, 1)
	return &rev, nil
}

// evict runs flush, which deletes the given revisions, and drops them from the cache
func (s *kvStore) evict(seqs []uint64, flush func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := flush(); err != nil {
		return err
	}
	for _, seq := range seqs {
		s.cache.Del(seq)
	}
	return nil
}

func (s *kvStore) writeRevision(tx kv.Tx, rev *revision) error {
	bits, err := json.Marshal(rev)
	if err != nil {
		return errors.Wrap(err, errors.Internal, "failed to encode revision")
	}
	if err := tx.Set(indexing.RevisionKey(rev.Seq), bits); err != nil {
		return err
	}
	return tx.Set(indexing.DocumentKey(rev.ID), indexing.EncodeUint(rev.Seq))
}

func (s *kvStore) close() {
	s.cache.Close()
}

// currentSequence returns the sequence of the current revision of a document, 0 if it has never been written
func currentSequence(tx kv.Tx, id string) (uint64, error) {
	bits, err := tx.Get(indexing.DocumentKey(id))
	if err != nil {
		return 0, errors.Wrap(err, errors.Internal, "failed to read document: %s", id)
	}
	return indexing.DecodeUint(bits), nil
}
