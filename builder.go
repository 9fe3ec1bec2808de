package viewkit

import (
	"github.com/autom8ter/viewkit/collate"
)

// QueryBuilder is a utility for creating queries via chainable methods. Keys may be any json compatible go value.
type QueryBuilder struct {
	query *QuerySpec
	err   error
}

// NewQueryBuilder creates a new QueryBuilder instance
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{query: &QuerySpec{}}
}

// Query returns the built query or the first key conversion error
func (q *QueryBuilder) Query() (QuerySpec, error) {
	return *q.query, q.err
}

func (q *QueryBuilder) value(key any) *collate.Value {
	v, err := collate.From(key)
	if err != nil && q.err == nil {
		q.err = err
	}
	return &v
}

// StartKey sets the first key of the range
func (q *QueryBuilder) StartKey(key any) *QueryBuilder {
	q.query.StartKey = q.value(key)
	return q
}

// EndKey sets the last key of the range
func (q *QueryBuilder) EndKey(key any) *QueryBuilder {
	q.query.EndKey = q.value(key)
	return q
}

// Key restricts the range to a single key
func (q *QueryBuilder) Key(key any) *QueryBuilder {
	v := q.value(key)
	q.query.StartKey = v
	q.query.EndKey = v
	return q
}

// Keys adds point lookups to the query
func (q *QueryBuilder) Keys(keys ...any) *QueryBuilder {
	if q.query.Keys == nil {
		q.query.Keys = []collate.Value{}
	}
	for _, k := range keys {
		q.query.Keys = append(q.query.Keys, *q.value(k))
	}
	return q
}

// Skip sets the number of leading rows to discard
func (q *QueryBuilder) Skip(skip int) *QueryBuilder {
	q.query.Skip = skip
	return q
}

// Limit sets the maximum number of rows to return
func (q *QueryBuilder) Limit(limit int) *QueryBuilder {
	q.query.Limit = &limit
	return q
}

// Descending reverses the scan direction
func (q *QueryBuilder) Descending(descending bool) *QueryBuilder {
	q.query.Descending = descending
	return q
}

// InclusiveEnd sets whether rows matching the end key are returned
func (q *QueryBuilder) InclusiveEnd(inclusive bool) *QueryBuilder {
	q.query.InclusiveEnd = &inclusive
	return q
}

// Reduce enables the view's reduce function
func (q *QueryBuilder) Reduce(reduce bool) *QueryBuilder {
	q.query.Reduce = reduce
	return q
}

// Group groups reduced rows by their full key
func (q *QueryBuilder) Group(group bool) *QueryBuilder {
	q.query.Group = group
	return q
}

// GroupLevel groups reduced rows by a key prefix
func (q *QueryBuilder) GroupLevel(level int) *QueryBuilder {
	q.query.GroupLevel = level
	return q
}

// IncludeDocs materializes documents with the given content options
func (q *QueryBuilder) IncludeDocs(content ContentOptions) *QueryBuilder {
	q.query.IncludeDocs = true
	q.query.Content = content
	return q
}

// UpdateSeq requests the update sequence of the queried snapshot
func (q *QueryBuilder) UpdateSeq(updateSeq bool) *QueryBuilder {
	q.query.UpdateSeq = updateSeq
	return q
}
