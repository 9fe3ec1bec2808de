package viewkit

import (
	"context"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// materializer resolves the documents of the rows a query returns
type materializer struct {
	store       DocumentStore
	concurrency int
	content     ContentOptions
	view        string
}

// materialize fetches the document of every row in place. Any fetch failure aborts the whole query.
func (m materializer) materialize(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	egp, ctx := errgroup.WithContext(ctx)
	if m.concurrency > 0 {
		egp.SetLimit(m.concurrency)
	}
	for i := range rows {
		i := i
		egp.Go(func() error {
			doc, err := m.fetch(ctx, rows[i])
			if err != nil {
				return err
			}
			rows[i].Document = doc
			return nil
		})
	}
	return egp.Wait()
}

func (m materializer) fetch(ctx context.Context, row Row) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Cancelled, "query aborted")
	}
	id, seq, linked := row.DocumentID, row.Sequence, false
	if linkedID, ok := linkedDocument(row.Value); ok {
		id, seq, linked = linkedID, 0, true
	}
	doc, err := m.store.Fetch(ctx, id, seq)
	documentsFetched.WithLabelValues(m.view).Inc()
	switch {
	case err == nil:
		return shape(doc, m.content), nil
	case errors.Is(err, errors.Cancelled):
		return nil, err
	case linked && errors.Is(err, errors.NotFound):
		return nil, nil
	default:
		return nil, errors.Wrap(err, errors.FetchFailed, "failed to fetch document %s", id)
	}
}

// linkedDocument returns the id of the document a row value links to with an _id field
func linkedDocument(value collate.Value) (string, bool) {
	if value.Kind() != collate.KindObject {
		return "", false
	}
	id, ok := value.Get(idField)
	if !ok || id.Kind() != collate.KindString {
		return "", false
	}
	return id.Str(), true
}

// shape applies content options to a fetched document
func shape(doc *Document, content ContentOptions) *Document {
	out := doc.Clone()
	if content.NoBody {
		out.result = gjson.Parse("{}")
	}
	if !content.Conflicts {
		out.Conflicts = nil
	}
	if content.LocalSeq {
		seq := doc.Sequence
		out.LocalSeq = &seq
	}
	if !content.Attachments {
		for name, a := range out.Attachments {
			a.Data = nil
			a.Stub = true
			out.Attachments[name] = a
		}
	}
	return out
}
