package viewkit

import (
	"testing"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/stretchr/testify/assert"
)

func numbers(n ...float64) []collate.Value {
	var out []collate.Value
	for _, v := range n {
		out = append(out, collate.Number(v))
	}
	return out
}

func TestBuiltinReducers(t *testing.T) {
	t.Run("count", func(t *testing.T) {
		v, err := CountReducer(nil, []collate.Value{collate.String("a"), collate.Null()}, false)
		assert.NoError(t, err)
		assert.Equal(t, `2`, v.String())
		v, err = CountReducer(nil, numbers(2, 3), true)
		assert.NoError(t, err)
		assert.Equal(t, `5`, v.String())
	})
	t.Run("sum", func(t *testing.T) {
		v, err := SumReducer(nil, numbers(1, 2.5, -1), false)
		assert.NoError(t, err)
		assert.Equal(t, `2.5`, v.String())
		v, err = SumReducer(nil, []collate.Value{collate.MustParse(`[1,2]`), collate.MustParse(`[1,2,3]`)}, false)
		assert.NoError(t, err)
		assert.Equal(t, `[2,4,3]`, v.String())
		_, err = SumReducer(nil, []collate.Value{collate.String("x")}, false)
		assert.True(t, errors.Is(err, errors.Validation))
	})
	t.Run("stats", func(t *testing.T) {
		a, err := StatsReducer(nil, numbers(1, 2, 3), false)
		assert.NoError(t, err)
		assert.Equal(t, `{"sum":6,"count":3,"min":1,"max":3,"sumsqr":14}`, a.String())
		b, err := StatsReducer(nil, numbers(-1), false)
		assert.NoError(t, err)
		c, err := StatsReducer(nil, []collate.Value{a, b}, true)
		assert.NoError(t, err)
		assert.Equal(t, `{"sum":5,"count":4,"min":-1,"max":3,"sumsqr":15}`, c.String())
		_, err = StatsReducer(nil, numbers(1), true)
		assert.True(t, errors.Is(err, errors.Validation))
	})
	t.Run("builtins are registered", func(t *testing.T) {
		for _, name := range []string{"_count", "_sum", "_stats"} {
			view, err := View{Name: "v", MapSource: `function(doc) {}`, ReduceSource: name}.compile()
			assert.NoError(t, err)
			assert.True(t, view.HasReduce())
		}
	})
}
