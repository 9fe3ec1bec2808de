package viewkit

import (
	"testing"

	"github.com/autom8ter/viewkit/collate"
	"github.com/stretchr/testify/assert"
)

func TestQuerySpec(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var q QuerySpec
		assert.Equal(t, NoLimit, q.GetLimit())
		assert.True(t, q.IsInclusiveEnd())
		assert.Equal(t, 0, q.GetGroupLevel())
	})
	t.Run("explicit values", func(t *testing.T) {
		q := QuerySpec{Limit: intPtr(0), InclusiveEnd: boolPtr(false), Reduce: true, GroupLevel: 2}
		assert.Equal(t, 0, q.GetLimit())
		assert.False(t, q.IsInclusiveEnd())
		assert.Equal(t, 2, q.GetGroupLevel())
	})
	t.Run("normalize folds group into group level", func(t *testing.T) {
		q := QuerySpec{Reduce: true, Group: true, GroupLevel: 1}.normalize()
		assert.False(t, q.Group)
		assert.Equal(t, collate.FullDepth, q.GroupLevel)
	})
	t.Run("normalize copies keys", func(t *testing.T) {
		keys := []collate.Value{collate.Number(1), collate.Number(2)}
		q := QuerySpec{Keys: keys}.normalize()
		q.Keys[0] = collate.Number(3)
		assert.Equal(t, float64(1), keys[0].Number())
		assert.Nil(t, QuerySpec{}.normalize().Keys)
		assert.NotNil(t, QuerySpec{Keys: []collate.Value{}}.normalize().Keys)
	})
}
