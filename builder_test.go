package viewkit

import (
	"math"
	"testing"

	"github.com/autom8ter/viewkit/errors"
	"github.com/stretchr/testify/assert"
)

func TestQueryBuilder(t *testing.T) {
	t.Run("query builder 1", func(t *testing.T) {
		q, err := NewQueryBuilder().
			StartKey([]any{2023, 1}).
			EndKey([]any{2023, 12, map[string]any{}}).
			Skip(2).
			Limit(10).
			Descending(true).
			InclusiveEnd(false).
			Reduce(true).
			GroupLevel(2).
			UpdateSeq(true).
			Query()
		assert.NoError(t, err)
		assert.Equal(t, `[2023,1]`, q.StartKey.String())
		assert.Equal(t, `[2023,12,{}]`, q.EndKey.String())
		assert.Equal(t, 2, q.Skip)
		assert.Equal(t, 10, q.GetLimit())
		assert.True(t, q.Descending)
		assert.False(t, q.IsInclusiveEnd())
		assert.Equal(t, 2, q.GetGroupLevel())
		assert.True(t, q.UpdateSeq)
		assert.NoError(t, q.Validate())
	})
	t.Run("defaults", func(t *testing.T) {
		q, err := NewQueryBuilder().Query()
		assert.NoError(t, err)
		assert.Equal(t, NoLimit, q.GetLimit())
		assert.True(t, q.IsInclusiveEnd())
		assert.Nil(t, q.Keys)
		assert.NoError(t, q.Validate())
	})
	t.Run("key and keys", func(t *testing.T) {
		q, err := NewQueryBuilder().Key("a").Keys(3, 1).Query()
		assert.NoError(t, err)
		assert.Equal(t, q.StartKey, q.EndKey)
		assert.Len(t, q.Keys, 2)
		q, err = NewQueryBuilder().Keys().Query()
		assert.NoError(t, err)
		assert.NotNil(t, q.Keys)
		assert.Empty(t, q.Keys)
	})
	t.Run("bad key", func(t *testing.T) {
		_, err := NewQueryBuilder().StartKey(math.Inf(1)).Query()
		assert.True(t, errors.Is(err, errors.Validation))
		_, err = NewQueryBuilder().Keys("a", "a\xff").Query()
		assert.True(t, errors.Is(err, errors.Validation))
	})
}

func TestQuerySpecValidate(t *testing.T) {
	invalid := map[string]QuerySpec{
		"negative skip":           {Skip: -1},
		"negative limit":          {Limit: intPtr(-1)},
		"negative group level":    {GroupLevel: -1, Reduce: true},
		"group level no reduce":   {GroupLevel: 1},
		"group no reduce":         {Group: true},
		"include docs and reduce": {Reduce: true, IncludeDocs: true},
	}
	for name, q := range invalid {
		t.Run(name, func(t *testing.T) {
			assert.True(t, errors.Is(q.Validate(), errors.Validation))
		})
	}
	t.Run("group normalizes to full depth", func(t *testing.T) {
		q := QuerySpec{Group: true, Reduce: true}.normalize()
		assert.False(t, q.Group)
		assert.Equal(t, math.MaxInt32, q.GroupLevel)
	})
	t.Run("zero limit is valid", func(t *testing.T) {
		assert.NoError(t, QuerySpec{Limit: intPtr(0)}.Validate())
	})
}

func intPtr(i int) *int {
	return &i
}
