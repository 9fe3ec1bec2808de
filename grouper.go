package viewkit

import (
	"sort"
	"strings"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/samber/lo"
)

// group is a contiguous run of scanned entries sharing a group key
type group struct {
	key     collate.Value
	entries []IndexEntry
}

// grouper partitions a scan into groups by key prefix and folds them through a reduce function
type grouper struct {
	level      int
	descending bool
	reduce     ReduceFunc
	collator   collate.Collator
	chunkSize  int
	current    *group
}

func (g *grouper) groupKey(key collate.Value) collate.Value {
	if g.level == 0 {
		return collate.Null()
	}
	return key.Truncate(g.level)
}

// add adds the next scanned entry. It returns the previous group once the entry starts a new one.
func (g *grouper) add(entry IndexEntry) (*group, bool) {
	key := g.groupKey(entry.Key)
	if g.current != nil && g.collator.Compare(g.current.key, key) == 0 {
		g.current.entries = append(g.current.entries, entry)
		return nil, false
	}
	done := g.current
	g.current = &group{key: key, entries: []IndexEntry{entry}}
	return done, done != nil
}

// flush returns the last group of the scan
func (g *grouper) flush() (*group, bool) {
	done := g.current
	g.current = nil
	return done, done != nil
}

// fold reduces a group into a single row. Entries are fed in ascending (key, document id) order
// whatever the direction of the scan.
func (g *grouper) fold(grp *group) (Row, error) {
	entries := append([]IndexEntry{}, grp.entries...)
	if g.descending {
		entries = lo.Reverse(entries)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if c := g.collator.Compare(entries[i].Key, entries[j].Key); c != 0 {
			return c < 0
		}
		return strings.Compare(entries[i].DocumentID, entries[j].DocumentID) < 0
	})
	keys := lo.Map(entries, func(e IndexEntry, _ int) collate.Value { return e.Key })
	values := lo.Map(entries, func(e IndexEntry, _ int) collate.Value { return e.Value })
	value, err := g.reduceValues(keys, values)
	if err != nil {
		return Row{}, err
	}
	return Row{Key: grp.key, Value: value}, nil
}

func (g *grouper) reduceValues(keys, values []collate.Value) (collate.Value, error) {
	size := g.chunkSize
	if size <= 0 || len(values) <= size {
		return g.call(keys, values, false)
	}
	// a tree of single element chunks never converges
	size = lo.Max([]int{size, 2})
	var partials []collate.Value
	for _, chunk := range chunks(len(values), size) {
		value, err := g.call(keys[chunk[0]:chunk[1]], values[chunk[0]:chunk[1]], false)
		if err != nil {
			return collate.Null(), err
		}
		partials = append(partials, value)
	}
	for len(partials) > size {
		var next []collate.Value
		for _, chunk := range chunks(len(partials), size) {
			value, err := g.call(nil, partials[chunk[0]:chunk[1]], true)
			if err != nil {
				return collate.Null(), err
			}
			next = append(next, value)
		}
		partials = next
	}
	return g.call(nil, partials, true)
}

func (g *grouper) call(keys, values []collate.Value, rereduce bool) (collate.Value, error) {
	value, err := g.reduce(keys, values, rereduce)
	if err != nil {
		if errors.Extract(err).Code != 0 {
			return collate.Null(), err
		}
		return collate.Null(), errors.Wrap(err, errors.Internal, "reduce failed")
	}
	return value, nil
}

// chunks splits [0, n) into [start, end) ranges of at most size elements
func chunks(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, lo.Min([]int{start + size, n})})
	}
	return out
}
