package viewkit

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/autom8ter/viewkit/internal/indexing"
	"github.com/autom8ter/viewkit/kv"
	"github.com/autom8ter/viewkit/kv/registry"
	"github.com/samber/lo"
	"github.com/segmentio/ksuid"
)

// DB is an embedded document database queried through map/reduce views
type DB struct {
	config    Config
	kv        kv.DB
	store     *kvStore
	collator  collate.Collator
	logger    Logger
	initViews []View
	// writeMu serializes writes and view definitions
	writeMu sync.Mutex
	mu      sync.RWMutex
	views   map[string]View
}

// Open opens a database and defines the views of the config and options
func Open(ctx context.Context, cfg Config, opts ...DBOpt) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &DB{
		config: cfg,
		views:  map[string]View{},
	}
	for _, o := range opts {
		o(d)
	}
	if d.logger == nil {
		logger, err := NewLogger(cfg.LogLevel, map[string]any{"provider": cfg.Provider})
		if err != nil {
			return nil, errors.Wrap(err, errors.Validation, "failed to create logger")
		}
		d.logger = logger
	}
	if d.collator == nil {
		collator, err := cfg.Collator()
		if err != nil {
			return nil, err
		}
		d.collator = collator
	}
	db, err := registry.Open(cfg.Provider, cfg.Params)
	if err != nil {
		return nil, err
	}
	d.kv = db
	store, err := newDocumentStore(db, cfg.DocumentCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	d.store = store
	for _, view := range append(append([]View{}, cfg.Views...), d.initViews...) {
		if err := d.DefineView(ctx, view); err != nil {
			_ = d.Close(ctx)
			return nil, err
		}
	}
	d.logger.Debug(ctx, "database opened", map[string]any{
		"collation": d.collator.Name(),
		"views":     len(d.views),
	})
	return d, nil
}

// DefineView adds or replaces a view. The view's index is rebuilt from every document unless the
// persisted index was built from an identical definition. Queries keep reading the previous index
// until the rebuild completes; a failed rebuild leaves the previous definition and index in place.
func (d *DB) DefineView(ctx context.Context, view View) error {
	compiled, err := view.compile()
	if err != nil {
		return err
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	signature := compiled.signature() + ":" + d.collator.Name()
	signatures := map[string]string{}
	if err := d.kv.Tx(false, func(tx kv.Tx) error {
		bits, err := tx.Get(indexing.ViewsKey())
		if err != nil || bits == nil {
			return err
		}
		return json.Unmarshal(bits, &signatures)
	}); err != nil {
		return errors.Wrap(err, errors.Internal, "failed to read view definitions")
	}
	if signatures[compiled.Name] != signature {
		x := viewIndexer{view: compiled, collator: d.collator, logger: d.logger}
		rows, gen, err := x.rebuild(ctx, d.kv, d.store)
		if err != nil {
			return err
		}
		signatures[compiled.Name] = signature
		bits, _ := json.Marshal(signatures)
		var retired uint64
		if err := d.kv.Tx(true, func(tx kv.Tx) error {
			active, err := activeGeneration(tx, compiled.Name)
			if err != nil {
				return err
			}
			retired = active
			if err := tx.Set(indexing.ViewGenerationKey(compiled.Name), indexing.EncodeUint(gen)); err != nil {
				return err
			}
			return tx.Set(indexing.ViewsKey(), bits)
		}); err != nil {
			_ = d.kv.DropPrefix(indexing.ViewPrefixes(compiled.Name, gen)...)
			return errors.Wrap(err, errors.Internal, "failed to activate view %s", compiled.Name)
		}
		indexRebuilds.WithLabelValues(compiled.Name).Inc()
		d.logger.Info(ctx, "view index rebuilt", map[string]any{
			"view":       compiled.Name,
			"rows":       rows,
			"generation": gen,
		})
		if err := x.retire(ctx, d.kv, retired); err != nil {
			d.logger.Error(ctx, "failed to retire view generation", err, map[string]any{
				"view":       compiled.Name,
				"generation": retired,
			})
		}
	}
	d.mu.Lock()
	d.views[compiled.Name] = compiled
	d.mu.Unlock()
	return nil
}

// Views returns the defined views sorted by name
func (d *DB) Views() []View {
	d.mu.RLock()
	defer d.mu.RUnlock()
	views := lo.Values(d.views)
	sort.Slice(views, func(i, j int) bool {
		return views[i].Name < views[j].Name
	})
	return views
}

func (d *DB) view(name string) (View, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	view, ok := d.views[name]
	if !ok {
		return View{}, errors.New(errors.NotFound, "view not found: %s", name)
	}
	return view, nil
}

// Index returns the index of a view
func (d *DB) Index(name string) (Index, error) {
	if _, err := d.view(name); err != nil {
		return nil, err
	}
	return NewIndex(d.kv, name, d.collator), nil
}

// Executor returns a query executor for a view
func (d *DB) Executor(name string) (*Executor, error) {
	view, err := d.view(name)
	if err != nil {
		return nil, err
	}
	return NewExecutor(
		NewIndex(d.kv, name, d.collator),
		d.store,
		WithReduce(view.Reduce),
		WithCollator(d.collator),
		WithLogger(d.logger),
		WithReduceChunkSize(d.config.ReduceChunkSize),
		WithFetchConcurrency(d.config.FetchConcurrency),
		WithViewName(name),
	), nil
}

// Query runs a query against a view
func (d *DB) Query(ctx context.Context, view string, q QuerySpec) (*QueryResult, error) {
	executor, err := d.Executor(view)
	if err != nil {
		return nil, err
	}
	return executor.Execute(ctx, q)
}

// Store returns the database's document store
func (d *DB) Store() DocumentStore {
	return d.store
}

// Get returns the current revision of a document
func (d *DB) Get(ctx context.Context, id string) (*Document, error) {
	return d.store.Fetch(ctx, id, 0)
}

// Put writes a new revision of a document. doc.Rev must be the current revision of the document
// (empty for new or deleted documents). A missing id is generated.
func (d *DB) Put(ctx context.Context, doc *Document) (*Document, error) {
	if doc.ID == "" {
		doc = doc.Clone()
		doc.ID = ksuid.New().String()
	}
	if err := validateID(doc.ID); err != nil {
		return nil, err
	}
	return d.write(ctx, doc.ID, func(current *revision) (*Document, error) {
		switch {
		case current == nil && doc.Rev != "":
			return nil, errors.New(errors.Conflict, "document %s does not exist", doc.ID)
		case current != nil && current.Deleted && doc.Rev != "" && doc.Rev != current.Rev:
			return nil, errors.New(errors.Conflict, "document %s: stale revision %s", doc.ID, doc.Rev)
		case current != nil && !current.Deleted && doc.Rev != current.Rev:
			return nil, errors.New(errors.Conflict, "document %s: stale revision %s", doc.ID, doc.Rev)
		}
		next := doc.Clone()
		next.Deleted = false
		next.LocalSeq = nil
		next.Conflicts = nil
		prev := ""
		if current != nil {
			prev = current.Rev
			if !current.Deleted {
				next.Conflicts = current.Conflicts
			}
		}
		attachments, err := resolveAttachments(next.Attachments, current)
		if err != nil {
			return nil, err
		}
		next.Attachments = attachments
		next.Rev = nextRevision(prev, next)
		return next, nil
	})
}

// PutRevision stores a revision created elsewhere (e.g. by replication) keeping its revision id.
// If the document already has a different current revision, the revision with the highest
// generation wins and the other one is recorded as a conflict.
func (d *DB) PutRevision(ctx context.Context, doc *Document) (*Document, error) {
	if err := validateID(doc.ID); err != nil {
		return nil, err
	}
	if !validRevision(doc.Rev) {
		return nil, errors.New(errors.Validation, "invalid revision: %q", doc.Rev)
	}
	if doc.Deleted {
		return nil, errors.New(errors.Validation, "deleted revisions must be written with Delete")
	}
	return d.write(ctx, doc.ID, func(current *revision) (*Document, error) {
		incoming := doc.Clone()
		incoming.LocalSeq = nil
		attachments, err := resolveAttachments(incoming.Attachments, current)
		if err != nil {
			return nil, err
		}
		incoming.Attachments = attachments
		if current == nil || current.Deleted {
			incoming.Conflicts = nil
			return incoming, nil
		}
		if current.Rev == incoming.Rev || lo.Contains(current.Conflicts, incoming.Rev) {
			return nil, nil
		}
		winner, loser := current.document(), incoming.Rev
		if revisionLess(current.Rev, incoming.Rev) {
			winner, loser = incoming, current.Rev
		}
		conflicts := lo.Uniq(append(append([]string{}, current.Conflicts...), loser))
		conflicts = lo.Without(conflicts, winner.Rev)
		sort.Strings(conflicts)
		winner.Conflicts = conflicts
		return winner, nil
	})
}

// Delete deletes a document by writing a tombstone revision. If rev names a conflicting revision
// of the document, the conflict is resolved instead and the current revision is kept.
func (d *DB) Delete(ctx context.Context, id string, rev string) (*Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return d.write(ctx, id, func(current *revision) (*Document, error) {
		switch {
		case current == nil || current.Deleted:
			return nil, errors.New(errors.NotFound, "document not found: %s", id)
		case lo.Contains(current.Conflicts, rev):
			resolved := current.document()
			resolved.Conflicts = lo.Without(resolved.Conflicts, rev)
			if len(resolved.Conflicts) == 0 {
				resolved.Conflicts = nil
			}
			return resolved, nil
		case current.Rev != rev:
			return nil, errors.New(errors.Conflict, "document %s: stale revision %s", id, rev)
		}
		tombstone := NewDocument(id)
		tombstone.Deleted = true
		tombstone.Rev = nextRevision(current.Rev, tombstone)
		return tombstone, nil
	})
}

// write runs fn against the current revision of a document and stores the revision it returns,
// updating every view index in the same transaction. A nil revision leaves the document unchanged.
func (d *DB) write(ctx context.Context, id string, fn func(current *revision) (*Document, error)) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Cancelled, "write aborted")
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	d.mu.RLock()
	views := lo.Values(d.views)
	d.mu.RUnlock()
	var written *Document
	err := d.kv.Tx(true, func(tx kv.Tx) error {
		current, err := d.store.current(tx, id)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			written = current.document()
			return nil
		}
		seqBits, err := tx.Get(indexing.SequenceKey())
		if err != nil {
			return errors.Wrap(err, errors.Internal, "failed to read sequence")
		}
		next.Sequence = indexing.DecodeUint(seqBits) + 1
		if err := tx.Set(indexing.SequenceKey(), indexing.EncodeUint(next.Sequence)); err != nil {
			return errors.Wrap(err, errors.Internal, "failed to write sequence")
		}
		if err := d.store.writeRevision(tx, newRevision(next)); err != nil {
			return errors.Wrap(err, errors.Internal, "failed to write document %s", id)
		}
		for _, view := range views {
			x := viewIndexer{view: view, collator: d.collator, logger: d.logger}
			if err := x.update(ctx, tx, next); err != nil {
				return err
			}
		}
		written = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.logger.Debug(ctx, "document written", map[string]any{
		"id":  written.ID,
		"rev": written.Rev,
		"seq": written.Sequence,
	})
	return written.Clone(), nil
}

// Compact removes every revision that is no longer the current revision of a document.
// Queries materializing documents while a compaction runs may fail with errors.FetchFailed.
func (d *DB) Compact(ctx context.Context) (int, error) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	tx := d.kv.NewTx(false)
	defer tx.Discard()
	live := map[uint64]struct{}{}
	docs := tx.NewIterator(kv.IterOpts{Prefix: indexing.DocumentPrefix()})
	for ; docs.Valid(); docs.Next() {
		bits, err := docs.Item().Value()
		if err != nil {
			docs.Close()
			return 0, errors.Wrap(err, errors.Internal, "failed to read document")
		}
		live[indexing.DecodeUint(bits)] = struct{}{}
	}
	docs.Close()
	batch := d.kv.Batch()
	defer batch.Cancel()
	var removed []uint64
	revs := tx.NewIterator(kv.IterOpts{Prefix: indexing.RevisionPrefix()})
	defer revs.Close()
	for ; revs.Valid(); revs.Next() {
		if err := ctx.Err(); err != nil {
			return 0, errors.Wrap(err, errors.Cancelled, "compaction aborted")
		}
		key := revs.Item().Key()
		seq := indexing.RevisionSeq(key)
		if _, ok := live[seq]; ok {
			continue
		}
		if err := batch.Delete(key); err != nil {
			return 0, errors.Wrap(err, errors.Internal, "failed to delete revision")
		}
		removed = append(removed, seq)
	}
	if err := d.store.evict(removed, batch.Flush); err != nil {
		return 0, errors.Wrap(err, errors.Internal, "failed to compact")
	}
	d.logger.Info(ctx, "database compacted", map[string]any{"removed": len(removed)})
	return len(removed), nil
}

// Close closes the database
func (d *DB) Close(ctx context.Context) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	d.store.close()
	if err := d.kv.Close(); err != nil {
		return errors.Wrap(err, errors.Internal, "failed to close database")
	}
	return nil
}

func validateID(id string) error {
	switch {
	case id == "":
		return errors.New(errors.Validation, "empty document id")
	case strings.HasPrefix(id, "_"):
		return errors.New(errors.Validation, "document ids may not start with an underscore: %s", id)
	case strings.ContainsRune(id, 0):
		return errors.New(errors.Validation, "document ids may not contain NUL")
	}
	return nil
}

// resolveAttachments computes the digest of new attachments and replaces stubs with the attachment
// of the current revision
func resolveAttachments(attachments map[string]Attachment, current *revision) (map[string]Attachment, error) {
	if len(attachments) == 0 {
		return nil, nil
	}
	resolved := make(map[string]Attachment, len(attachments))
	for name, a := range attachments {
		if a.Stub && a.Data == nil {
			var existing Attachment
			ok := false
			if current != nil && !current.Deleted {
				existing, ok = current.Attachments[name]
			}
			if !ok {
				return nil, errors.New(errors.Validation, "attachment stub %s has no stored attachment", name)
			}
			resolved[name] = existing
			continue
		}
		resolved[name] = Attachment{
			ContentType: a.ContentType,
			Length:      len(a.Data),
			Digest:      attachmentDigest(a.Data),
			Data:        a.Data,
		}
	}
	return resolved, nil
}
