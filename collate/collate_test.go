package collate_test

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

// ordered lists values in strictly ascending collation order
var ordered = []collate.Value{
	collate.Null(),
	collate.Bool(false),
	collate.Bool(true),
	collate.Number(-1e10),
	collate.Number(-2.5),
	collate.Number(0),
	collate.Number(1),
	collate.Number(2),
	collate.Number(1e300),
	collate.String(""),
	collate.String("\x00"),
	collate.String("\x00a"),
	collate.String("a"),
	collate.String("a\x00"),
	collate.String("aa"),
	collate.String("b"),
	collate.Array(),
	collate.Array(collate.Null()),
	collate.Array(collate.Number(1)),
	collate.Array(collate.Number(1), collate.String("a")),
	collate.Array(collate.Number(1), collate.String("b")),
	collate.Array(collate.Number(2)),
	collate.Array(collate.Array()),
	collate.Object(),
	collate.Object(collate.Field{Key: "a", Value: collate.Number(1)}),
	collate.Object(collate.Field{Key: "a", Value: collate.Number(1)}, collate.Field{Key: "b", Value: collate.Null()}),
	collate.Object(collate.Field{Key: "a", Value: collate.Number(2)}),
	collate.Object(collate.Field{Key: "b", Value: collate.Null()}),
}

func dedupe(values []collate.Value) []collate.Value {
	var out []collate.Value
	for _, v := range values {
		if len(out) > 0 && collate.Raw.Compare(out[len(out)-1], v) == 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

func TestCompare(t *testing.T) {
	values := dedupe(ordered)
	t.Run("type order and element order", func(t *testing.T) {
		for i := range values {
			for j := range values {
				expected := 0
				switch {
				case i < j:
					expected = -1
				case i > j:
					expected = 1
				}
				assert.Equal(t, expected, collate.Raw.Compare(values[i], values[j]), "%s vs %s", values[i], values[j])
			}
		}
	})
	t.Run("key bytes agree with compare", func(t *testing.T) {
		for i := range values {
			for j := range values {
				assert.Equal(t,
					collate.Raw.Compare(values[i], values[j]),
					bytes.Compare(collate.Raw.Key(values[i]), collate.Raw.Key(values[j])),
					"%s vs %s", values[i], values[j],
				)
			}
		}
	})
	t.Run("keys are prefix free", func(t *testing.T) {
		for i := range values {
			for j := range values {
				if i == j {
					continue
				}
				assert.False(t, bytes.HasPrefix(collate.Raw.Key(values[j]), collate.Raw.Key(values[i])), "%s prefixes %s", values[i], values[j])
			}
		}
	})
	t.Run("negative zero", func(t *testing.T) {
		assert.Equal(t, 0, collate.Raw.Compare(collate.Number(math.Copysign(0, -1)), collate.Number(0)))
		assert.Equal(t, collate.Raw.Key(collate.Number(0)), collate.Raw.Key(collate.Number(math.Copysign(0, -1))))
	})
}

func TestUnicode(t *testing.T) {
	c := collate.NewUnicode(language.Und)
	words := []string{"b", "B", "a", "A"}
	t.Run("compare", func(t *testing.T) {
		sorted := append([]string{}, words...)
		sort.Slice(sorted, func(i, j int) bool {
			return c.Compare(collate.String(sorted[i]), collate.String(sorted[j])) < 0
		})
		assert.Equal(t, []string{"a", "A", "b", "B"}, sorted)
	})
	t.Run("keys", func(t *testing.T) {
		sorted := append([]string{}, words...)
		sort.Slice(sorted, func(i, j int) bool {
			return bytes.Compare(c.Key(collate.String(sorted[i])), c.Key(collate.String(sorted[j]))) < 0
		})
		assert.Equal(t, []string{"a", "A", "b", "B"}, sorted)
	})
	t.Run("raw differs", func(t *testing.T) {
		sorted := append([]string{}, words...)
		sort.Slice(sorted, func(i, j int) bool {
			return collate.Raw.Compare(collate.String(sorted[i]), collate.String(sorted[j])) < 0
		})
		assert.Equal(t, []string{"A", "B", "a", "b"}, sorted)
	})
	t.Run("type order is kept", func(t *testing.T) {
		assert.Equal(t, -1, c.Compare(collate.Number(100), collate.String("0")))
		assert.Equal(t, -1, c.Compare(collate.String("z"), collate.Array()))
	})
}

func TestByName(t *testing.T) {
	c, err := collate.ByName("", "")
	assert.NoError(t, err)
	assert.Equal(t, "raw", c.Name())
	c, err = collate.ByName("unicode", "en")
	assert.NoError(t, err)
	assert.Equal(t, "unicode:en", c.Name())
	_, err = collate.ByName("icu-ish", "")
	assert.True(t, errors.Is(err, errors.Validation))
}

func TestValue(t *testing.T) {
	t.Run("from go values", func(t *testing.T) {
		v, err := collate.From(map[string]any{
			"b": []any{1, "x", true, nil},
			"a": int64(3),
		})
		assert.NoError(t, err)
		assert.Equal(t, `{"a":3,"b":[1,"x",true,null]}`, v.String())
	})
	t.Run("non-finite numbers are rejected", func(t *testing.T) {
		_, err := collate.From(math.NaN())
		assert.True(t, errors.Is(err, errors.Validation))
	})
	t.Run("invalid utf-8 is rejected", func(t *testing.T) {
		for _, value := range []any{
			"a\xff",
			[]byte("a\xff"),
			[]string{"ok", "a\xff"},
			[]any{"a\xff"},
			map[string]any{"a\xff": 1},
			map[string]any{"a": "a\xff"},
		} {
			_, err := collate.From(value)
			assert.True(t, errors.Is(err, errors.Validation), "%#v", value)
		}
		_, err := collate.Parse([]byte("\"a\xff\""))
		assert.True(t, errors.Is(err, errors.Validation))

		v, err := collate.From("héllo ☃")
		assert.NoError(t, err)
		assert.Equal(t, "héllo ☃", v.Str())
	})
	t.Run("json keeps object order", func(t *testing.T) {
		v := collate.MustParse(`{"z":1,"a":[2,{"k":null}]}`)
		bits, err := v.MarshalJSON()
		assert.NoError(t, err)
		assert.Equal(t, `{"z":1,"a":[2,{"k":null}]}`, string(bits))
		f, ok := v.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, f.Len())
	})
	t.Run("interface", func(t *testing.T) {
		v := collate.MustParse(`{"a":[1,"b",false]}`)
		if diff := cmp.Diff(map[string]any{"a": []any{1.0, "b", false}}, v.Interface()); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("truncate", func(t *testing.T) {
		key := collate.MustParse(`[2023, 1, 15]`)
		assert.True(t, key.Truncate(0).IsNull())
		assert.Equal(t, `[2023]`, key.Truncate(1).String())
		assert.Equal(t, `[2023,1]`, key.Truncate(2).String())
		assert.Equal(t, `[2023,1,15]`, key.Truncate(collate.FullDepth).String())
		assert.Equal(t, `"x"`, collate.String("x").Truncate(2).String())
	})
	t.Run("unmarshal", func(t *testing.T) {
		var v collate.Value
		assert.NoError(t, v.UnmarshalJSON([]byte(`"hello"`)))
		assert.Equal(t, collate.KindString, v.Kind())
		assert.Error(t, v.UnmarshalJSON([]byte(`{`)))
	})
}
