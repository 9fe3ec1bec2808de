package viewkit

import (
	"fmt"
	"testing"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/stretchr/testify/assert"
)

func entries(raw ...string) []IndexEntry {
	var out []IndexEntry
	for i, r := range raw {
		out = append(out, IndexEntry{Key: collate.MustParse(r), Value: collate.Number(1), DocumentID: fmt.Sprint(i)})
	}
	return out
}

func groupAll(g *grouper, in []IndexEntry) []*group {
	var out []*group
	for _, e := range in {
		if done, ok := g.add(e); ok {
			out = append(out, done)
		}
	}
	if done, ok := g.flush(); ok {
		out = append(out, done)
	}
	return out
}

func TestGrouper(t *testing.T) {
	in := entries(`[2023,1,1]`, `[2023,1,2]`, `[2023,2,1]`, `[2024,1,1]`, `"x"`)
	t.Run("group level 1", func(t *testing.T) {
		g := &grouper{level: 1, reduce: CountReducer, collator: collate.Raw}
		groups := groupAll(g, in)
		var got []string
		for _, grp := range groups {
			row, err := g.fold(grp)
			assert.NoError(t, err)
			got = append(got, row.Key.String()+"="+row.Value.String())
		}
		assert.Equal(t, []string{`[2023]=3`, `[2024]=1`, `"x"=1`}, got)
	})
	t.Run("group level 2", func(t *testing.T) {
		g := &grouper{level: 2, reduce: CountReducer, collator: collate.Raw}
		groups := groupAll(g, in)
		assert.Len(t, groups, 4)
		assert.Equal(t, `[2023,1]`, groups[0].key.String())
		assert.Len(t, groups[0].entries, 2)
	})
	t.Run("group level 0", func(t *testing.T) {
		g := &grouper{level: 0, reduce: CountReducer, collator: collate.Raw}
		groups := groupAll(g, in)
		assert.Len(t, groups, 1)
		row, err := g.fold(groups[0])
		assert.NoError(t, err)
		assert.True(t, row.Key.IsNull())
		assert.Equal(t, `5`, row.Value.String())
	})
	t.Run("full depth", func(t *testing.T) {
		g := &grouper{level: collate.FullDepth, reduce: CountReducer, collator: collate.Raw}
		assert.Len(t, groupAll(g, in), 5)
	})
	t.Run("descending groups are folded in ascending order", func(t *testing.T) {
		var seen []string
		g := &grouper{
			level:      0,
			descending: true,
			collator:   collate.Raw,
			reduce: func(keys, values []collate.Value, rereduce bool) (collate.Value, error) {
				for _, k := range keys {
					seen = append(seen, k.String())
				}
				return collate.Null(), nil
			},
		}
		desc := []IndexEntry{
			{Key: collate.Number(2), DocumentID: "b"},
			{Key: collate.Number(1), DocumentID: "b"},
			{Key: collate.Number(1), DocumentID: "a"},
		}
		groups := groupAll(g, desc)
		_, err := g.fold(groups[0])
		assert.NoError(t, err)
		assert.Equal(t, []string{"1", "1", "2"}, seen)
	})
	t.Run("chunked rereduce", func(t *testing.T) {
		var calls []bool
		g := &grouper{
			level:     0,
			collator:  collate.Raw,
			chunkSize: 2,
			reduce: func(keys, values []collate.Value, rereduce bool) (collate.Value, error) {
				calls = append(calls, rereduce)
				return CountReducer(keys, values, rereduce)
			},
		}
		groups := groupAll(g, in)
		row, err := g.fold(groups[0])
		assert.NoError(t, err)
		assert.Equal(t, `5`, row.Value.String())
		// 3 chunks of entries, 2 chunks of partials, 1 final rereduce
		assert.Equal(t, []bool{false, false, false, true, true, true}, calls)
	})
	t.Run("reduce errors", func(t *testing.T) {
		g := &grouper{level: 0, collator: collate.Raw, reduce: func(keys, values []collate.Value, rereduce bool) (collate.Value, error) {
			return collate.Null(), fmt.Errorf("boom")
		}}
		_, err := g.fold(groupAll(g, in)[0])
		assert.True(t, errors.Is(err, errors.Internal))
		g.reduce = SumReducer
		_, err = g.fold(&group{entries: []IndexEntry{{Value: collate.String("x")}}})
		assert.True(t, errors.Is(err, errors.Validation))
	})
}

func TestChunks(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, chunks(5, 2))
	assert.Equal(t, [][2]int{{0, 3}}, chunks(3, 3))
	assert.Nil(t, chunks(0, 3))
}

func TestPaginate(t *testing.T) {
	rows := []Row{{DocumentID: "a"}, {DocumentID: "b"}, {DocumentID: "c"}}
	assert.Equal(t, rows[1:2], paginate(rows, 1, 1))
	assert.Equal(t, rows, paginate(rows, 0, NoLimit))
	assert.Empty(t, paginate(rows, 5, 1))
	assert.Equal(t, NoLimit, window(3, NoLimit))
	assert.Equal(t, 5, window(3, 2))
}
