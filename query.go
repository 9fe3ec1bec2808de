package viewkit

import (
	"math"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/autom8ter/viewkit/util"
)

// NoLimit is the limit of a query without an explicit limit
const NoLimit = math.MaxInt

// ContentOptions select which parts of a document are materialized when IncludeDocs is set
type ContentOptions struct {
	// Attachments inlines attachment bodies instead of returning stubs
	Attachments bool `json:"attachments,omitempty"`
	// Conflicts includes the conflicting revisions of the document as _conflicts
	Conflicts bool `json:"conflicts,omitempty"`
	// LocalSeq includes the sequence of the revision as _local_seq
	LocalSeq bool `json:"localSeq,omitempty"`
	// NoBody omits the body of the document, leaving only its metadata
	NoBody bool `json:"noBody,omitempty"`
}

// QuerySpec configures a single view query. A QuerySpec is read only once it has been handed to an Executor.
type QuerySpec struct {
	// StartKey is the first key of the range (the upper bound when Descending)
	StartKey *collate.Value `json:"startKey,omitempty"`
	// EndKey is the last key of the range (the lower bound when Descending)
	EndKey *collate.Value `json:"endKey,omitempty"`
	// Keys, if not nil, replaces the range with point lookups visited in the given order
	Keys []collate.Value `json:"keys"`
	// Skip is the number of leading rows (or groups) to discard
	Skip int `json:"skip,omitempty" validate:"gte=0"`
	// Limit is the maximum number of rows (or groups) to return. nil is unbounded.
	Limit *int `json:"limit,omitempty" validate:"omitempty,gte=0"`
	// Descending reverses the scan direction
	Descending bool `json:"descending,omitempty"`
	// InclusiveEnd controls whether rows matching EndKey are returned. nil is true.
	InclusiveEnd *bool `json:"inclusiveEnd,omitempty"`
	// GroupLevel groups reduced rows by the first GroupLevel elements of array keys
	GroupLevel int `json:"groupLevel,omitempty" validate:"gte=0"`
	// Group groups reduced rows by their full key
	Group bool `json:"group,omitempty"`
	// Reduce applies the view's reduce function
	Reduce bool `json:"reduce,omitempty"`
	// IncludeDocs materializes the document of every returned row
	IncludeDocs bool `json:"includeDocs,omitempty"`
	// UpdateSeq returns the sequence the queried index snapshot is current with
	UpdateSeq bool `json:"updateSeq,omitempty"`
	// Content shapes materialized documents
	Content ContentOptions `json:"content,omitempty"`
}

// GetLimit returns the effective limit
func (q QuerySpec) GetLimit() int {
	if q.Limit == nil {
		return NoLimit
	}
	return *q.Limit
}

// IsInclusiveEnd returns whether the end of the range is inclusive
func (q QuerySpec) IsInclusiveEnd() bool {
	return q.InclusiveEnd == nil || *q.InclusiveEnd
}

// GetGroupLevel returns the effective group level with Group expanded to the full key depth
func (q QuerySpec) GetGroupLevel() int {
	if q.Group {
		return collate.FullDepth
	}
	return q.GroupLevel
}

// Validate checks the query for internal consistency. It does not check the query against a view.
func (q QuerySpec) Validate() error {
	if err := util.ValidateStruct(q); err != nil {
		return errors.Wrap(err, errors.Validation, "invalid query")
	}
	if (q.Group || q.GroupLevel > 0) && !q.Reduce {
		return errors.New(errors.Validation, "group and groupLevel require reduce")
	}
	if q.IncludeDocs && q.Reduce {
		return errors.New(errors.Validation, "includeDocs is invalid for reduced queries")
	}
	return nil
}

// normalize returns a copy of the query with Group folded into GroupLevel
func (q QuerySpec) normalize() QuerySpec {
	q.GroupLevel = q.GetGroupLevel()
	q.Group = false
	if q.Keys != nil {
		keys := make([]collate.Value, len(q.Keys))
		copy(keys, q.Keys)
		q.Keys = keys
	}
	return q
}
