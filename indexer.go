package viewkit

import (
	"context"
	"encoding/json"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/autom8ter/viewkit/internal/indexing"
	"github.com/autom8ter/viewkit/kv"
)

// viewIndexer maintains the index of a single view
type viewIndexer struct {
	view     View
	collator collate.Collator
	logger   Logger
}

type indexRow struct {
	path  []byte
	value []byte
}

// activeGeneration returns the generation of the view index that is queried and kept up to date.
// 0 means the view has never been built.
func activeGeneration(tx kv.Tx, view string) (uint64, error) {
	bits, err := tx.Get(indexing.ViewGenerationKey(view))
	if err != nil {
		return 0, errors.Wrap(err, errors.Internal, "failed to read generation of view %s", view)
	}
	return indexing.DecodeUint(bits), nil
}

// rows runs the map function over a document. Map failures are logged and the document contributes no rows.
func (x viewIndexer) rows(ctx context.Context, gen uint64, doc *Document) []indexRow {
	if doc.Deleted {
		return nil
	}
	var (
		rows    []indexRow
		ordinal uint32
	)
	err := x.view.Map(doc.Clone(), func(key, value any) error {
		k, err := collate.From(key)
		if err != nil {
			return errors.Wrap(err, errors.Validation, "invalid key emitted")
		}
		v, err := collate.From(value)
		if err != nil {
			return errors.Wrap(err, errors.Validation, "invalid value emitted")
		}
		bits, err := json.Marshal(IndexEntry{Key: k, Value: v, DocumentID: doc.ID, Sequence: doc.Sequence})
		if err != nil {
			return errors.Wrap(err, errors.Internal, "failed to encode index entry")
		}
		rows = append(rows, indexRow{
			path:  indexing.Entry(x.view.Name, gen, x.collator.Key(k)).SetDocumentID(doc.ID, ordinal).Path(),
			value: bits,
		})
		ordinal++
		return nil
	})
	if err != nil {
		x.logger.Warn(ctx, "map function failed, document skipped", map[string]any{
			"view":  x.view.Name,
			"id":    doc.ID,
			"error": err.Error(),
		})
		return nil
	}
	return rows
}

// update replaces the rows a document contributes to the index inside tx
func (x viewIndexer) update(ctx context.Context, tx kv.Tx, doc *Document) error {
	gen, err := activeGeneration(tx, x.view.Name)
	if err != nil {
		return err
	}
	if gen == 0 {
		return errors.New(errors.Unavailable, "view %s has not been built", x.view.Name)
	}
	backref := indexing.BackrefKey(x.view.Name, gen, doc.ID)
	bits, err := tx.Get(backref)
	if err != nil {
		return errors.Wrap(err, errors.Internal, "failed to read back index")
	}
	var previous [][]byte
	if bits != nil {
		if err := json.Unmarshal(bits, &previous); err != nil {
			return errors.Wrap(err, errors.Internal, "corrupt back index")
		}
	}
	for _, path := range previous {
		if err := tx.Delete(path); err != nil {
			return errors.Wrap(err, errors.Internal, "failed to delete index entry")
		}
	}
	rows := x.rows(ctx, gen, doc)
	paths := make([][]byte, 0, len(rows))
	for _, row := range rows {
		if err := tx.Set(row.path, row.value); err != nil {
			return errors.Wrap(err, errors.Internal, "failed to write index entry")
		}
		paths = append(paths, row.path)
	}
	if len(paths) == 0 {
		err = tx.Delete(backref)
	} else {
		bits, _ = json.Marshal(paths)
		err = tx.Set(backref, bits)
	}
	if err != nil {
		return errors.Wrap(err, errors.Internal, "failed to write back index")
	}
	count, err := tx.Get(indexing.ViewCountKey(x.view.Name, gen))
	if err != nil {
		return errors.Wrap(err, errors.Internal, "failed to read row count")
	}
	total := int64(indexing.DecodeUint(count)) + int64(len(paths)) - int64(len(previous))
	if total < 0 {
		return errors.New(errors.Internal, "negative row count for view %s", x.view.Name)
	}
	if err := tx.Set(indexing.ViewCountKey(x.view.Name, gen), indexing.EncodeUint(uint64(total))); err != nil {
		return err
	}
	return tx.Set(indexing.ViewSeqKey(x.view.Name, gen), indexing.EncodeUint(doc.Sequence))
}

// rebuild maps every current document into the generation after the active one and returns it with
// its row count. The active generation is left untouched until the caller switches to the new one.
// A failed rebuild drops whatever it wrote.
func (x viewIndexer) rebuild(ctx context.Context, db kv.DB, store *kvStore) (rows int, gen uint64, err error) {
	tx := db.NewTx(false)
	defer tx.Discard()
	active, err := activeGeneration(tx, x.view.Name)
	if err != nil {
		return 0, 0, err
	}
	gen = active + 1
	seq, err := tx.Get(indexing.SequenceKey())
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.Internal, "failed to read sequence")
	}
	// leftovers of an interrupted rebuild
	if err := db.DropPrefix(indexing.ViewPrefixes(x.view.Name, gen)...); err != nil {
		return 0, 0, errors.Wrap(err, errors.Internal, "failed to clear view %s", x.view.Name)
	}
	defer func() {
		if err != nil {
			if dropErr := db.DropPrefix(indexing.ViewPrefixes(x.view.Name, gen)...); dropErr != nil {
				x.logger.Error(ctx, "failed to drop partial view index", dropErr, map[string]any{
					"view":       x.view.Name,
					"generation": gen,
				})
			}
		}
	}()
	batch := db.Batch()
	defer batch.Cancel()
	var total uint64
	iter := tx.NewIterator(kv.IterOpts{Prefix: indexing.DocumentPrefix()})
	defer iter.Close()
	for iter.Valid() {
		if err := ctx.Err(); err != nil {
			return 0, 0, errors.Wrap(err, errors.Cancelled, "rebuild of view %s aborted", x.view.Name)
		}
		bits, err := iter.Item().Value()
		if err != nil {
			return 0, 0, errors.Wrap(err, errors.Internal, "failed to read document")
		}
		rev, err := store.readRevision(tx, indexing.DecodeUint(bits))
		if err != nil {
			return 0, 0, err
		}
		iter.Next()
		if rev == nil || rev.Deleted {
			continue
		}
		rows := x.rows(ctx, gen, rev.document())
		if len(rows) == 0 {
			continue
		}
		paths := make([][]byte, 0, len(rows))
		for _, row := range rows {
			if err := batch.Set(row.path, row.value); err != nil {
				return 0, 0, errors.Wrap(err, errors.Internal, "failed to write index entry")
			}
			paths = append(paths, row.path)
		}
		refs, _ := json.Marshal(paths)
		if err := batch.Set(indexing.BackrefKey(x.view.Name, gen, rev.ID), refs); err != nil {
			return 0, 0, errors.Wrap(err, errors.Internal, "failed to write back index")
		}
		total += uint64(len(rows))
	}
	if err := batch.Set(indexing.ViewCountKey(x.view.Name, gen), indexing.EncodeUint(total)); err != nil {
		return 0, 0, errors.Wrap(err, errors.Internal, "failed to write row count")
	}
	if err := batch.Set(indexing.ViewSeqKey(x.view.Name, gen), indexing.EncodeUint(indexing.DecodeUint(seq))); err != nil {
		return 0, 0, errors.Wrap(err, errors.Internal, "failed to write view sequence")
	}
	if err := batch.Flush(); err != nil {
		return 0, 0, errors.Wrap(err, errors.Internal, "failed to flush view %s", x.view.Name)
	}
	return int(total), gen, nil
}

// retire deletes a generation that is no longer active. Deletes are versioned, so snapshots opened
// before the switch keep reading the retired generation.
func (x viewIndexer) retire(ctx context.Context, db kv.DB, gen uint64) error {
	if gen == 0 {
		return nil
	}
	tx := db.NewTx(false)
	defer tx.Discard()
	batch := db.Batch()
	defer batch.Cancel()
	for _, prefix := range indexing.ViewPrefixes(x.view.Name, gen) {
		iter := tx.NewIterator(kv.IterOpts{Prefix: prefix})
		for ; iter.Valid(); iter.Next() {
			if err := batch.Delete(iter.Item().Key()); err != nil {
				iter.Close()
				return errors.Wrap(err, errors.Internal, "failed to delete retired entry of view %s", x.view.Name)
			}
		}
		iter.Close()
	}
	if err := batch.Flush(); err != nil {
		return errors.Wrap(err, errors.Internal, "failed to retire generation %d of view %s", gen, x.view.Name)
	}
	return nil
}
