package viewkit

import (
	"github.com/autom8ter/viewkit/collate"
)

// ScanDirective is the physical plan of a query: either an ordered list of point lookups
// or a single bounded range scanned in one direction.
type ScanDirective struct {
	// Lower is the smallest key of the range. nil is unbounded.
	Lower *collate.Value
	// Upper is the largest key of the range. nil is unbounded.
	Upper          *collate.Value
	LowerInclusive bool
	UpperInclusive bool
	Descending     bool
	// Empty is set when the range or the key list can not match any entry
	Empty bool
	// Keys, if not nil, are visited in order instead of the range
	Keys []collate.Value
}

// IsPointLookup returns true if the directive visits a list of keys
func (s ScanDirective) IsPointLookup() bool {
	return s.Keys != nil
}

// Plan translates a query into a scan directive. In a descending query the start key is
// the upper bound and the end key (with the inclusiveEnd flag) is the lower bound.
func Plan(q QuerySpec, collator collate.Collator) ScanDirective {
	if q.Keys != nil {
		keys := make([]collate.Value, len(q.Keys))
		copy(keys, q.Keys)
		if q.Descending {
			for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
		return ScanDirective{
			Keys:       keys,
			Descending: q.Descending,
			Empty:      len(keys) == 0,
		}
	}
	s := ScanDirective{Descending: q.Descending}
	if q.Descending {
		s.Upper, s.UpperInclusive = q.StartKey, true
		s.Lower, s.LowerInclusive = q.EndKey, q.IsInclusiveEnd()
	} else {
		s.Lower, s.LowerInclusive = q.StartKey, true
		s.Upper, s.UpperInclusive = q.EndKey, q.IsInclusiveEnd()
	}
	if s.Lower == nil || s.Upper == nil {
		return s
	}
	switch collator.Compare(*s.Lower, *s.Upper) {
	case 1:
		s.Empty = true
	case 0:
		s.Empty = !s.LowerInclusive || !s.UpperInclusive
	}
	return s
}
