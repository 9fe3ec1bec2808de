package viewkit

import (
	"testing"

	"github.com/autom8ter/viewkit/collate"
	"github.com/stretchr/testify/assert"
)

func key(raw string) *collate.Value {
	v := collate.MustParse(raw)
	return &v
}

func TestPlan(t *testing.T) {
	t.Run("unbounded", func(t *testing.T) {
		s := Plan(QuerySpec{}, collate.Raw)
		assert.Nil(t, s.Lower)
		assert.Nil(t, s.Upper)
		assert.False(t, s.Empty)
		assert.False(t, s.IsPointLookup())
	})
	t.Run("ascending range", func(t *testing.T) {
		s := Plan(QuerySpec{StartKey: key(`2`), EndKey: key(`3`), InclusiveEnd: boolPtr(false)}, collate.Raw)
		assert.Equal(t, `2`, s.Lower.String())
		assert.True(t, s.LowerInclusive)
		assert.Equal(t, `3`, s.Upper.String())
		assert.False(t, s.UpperInclusive)
		assert.False(t, s.Empty)
	})
	t.Run("descending range swaps bounds", func(t *testing.T) {
		s := Plan(QuerySpec{StartKey: key(`3`), EndKey: key(`2`), Descending: true, InclusiveEnd: boolPtr(false)}, collate.Raw)
		assert.Equal(t, `2`, s.Lower.String())
		assert.False(t, s.LowerInclusive)
		assert.Equal(t, `3`, s.Upper.String())
		assert.True(t, s.UpperInclusive)
		assert.True(t, s.Descending)
		assert.False(t, s.Empty)
	})
	t.Run("inverted range is empty", func(t *testing.T) {
		assert.True(t, Plan(QuerySpec{StartKey: key(`3`), EndKey: key(`2`)}, collate.Raw).Empty)
		assert.True(t, Plan(QuerySpec{StartKey: key(`2`), EndKey: key(`3`), Descending: true}, collate.Raw).Empty)
	})
	t.Run("single key", func(t *testing.T) {
		assert.False(t, Plan(QuerySpec{StartKey: key(`"a"`), EndKey: key(`"a"`)}, collate.Raw).Empty)
		assert.True(t, Plan(QuerySpec{StartKey: key(`"a"`), EndKey: key(`"a"`), InclusiveEnd: boolPtr(false)}, collate.Raw).Empty)
	})
	t.Run("keys", func(t *testing.T) {
		s := Plan(QuerySpec{Keys: []collate.Value{collate.Number(3), collate.Number(1)}}, collate.Raw)
		assert.True(t, s.IsPointLookup())
		assert.Equal(t, []collate.Value{collate.Number(3), collate.Number(1)}, s.Keys)
		s = Plan(QuerySpec{Keys: []collate.Value{collate.Number(3), collate.Number(1)}, Descending: true}, collate.Raw)
		assert.Equal(t, []collate.Value{collate.Number(1), collate.Number(3)}, s.Keys)
	})
	t.Run("empty keys", func(t *testing.T) {
		s := Plan(QuerySpec{Keys: []collate.Value{}}, collate.Raw)
		assert.True(t, s.IsPointLookup())
		assert.True(t, s.Empty)
	})
	t.Run("keys are not shared with the query", func(t *testing.T) {
		q := QuerySpec{Keys: []collate.Value{collate.Number(1), collate.Number(2)}, Descending: true}
		Plan(q, collate.Raw)
		assert.Equal(t, collate.Number(1), q.Keys[0])
	})
}

func boolPtr(b bool) *bool {
	return &b
}
