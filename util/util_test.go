package util_test

import (
	"testing"

	"github.com/autom8ter/viewkit/errors"
	"github.com/autom8ter/viewkit/util"
	"github.com/stretchr/testify/assert"
)

func TestUtil(t *testing.T) {
	t.Run("yaml / json conversions", func(t *testing.T) {
		const doc = `{"_id":"1","tags":["a","b"],"total":3}`
		yml, err := util.JSONToYAML([]byte(doc))
		assert.Nil(t, err)
		jsonData, err := util.YAMLToJSON(yml)
		assert.Nil(t, err)
		assert.JSONEq(t, doc, string(jsonData))
	})
	t.Run("json passes through", func(t *testing.T) {
		bits, err := util.YAMLToJSON([]byte(`[1,2]`))
		assert.Nil(t, err)
		assert.Equal(t, `[1,2]`, string(bits))
	})
	t.Run("json string", func(t *testing.T) {
		assert.Equal(t, `{"a":1}`, util.JSONString(map[string]int{"a": 1}))
	})
	t.Run("decode", func(t *testing.T) {
		type cfg struct {
			Name  string `json:"name"`
			Limit int    `json:"limit"`
		}
		var c cfg
		assert.Nil(t, util.Decode(map[string]any{"name": "x", "limit": "10"}, &c))
		assert.Equal(t, "x", c.Name)
		assert.Equal(t, 10, c.Limit)
		assert.True(t, errors.Is(util.Decode(map[string]any{"limit": "ten"}, &c), errors.Validation))
	})
	t.Run("validate", func(t *testing.T) {
		type usr struct {
			Name string `validate:"required"`
		}
		var u = usr{}
		err := util.ValidateStruct(&u)
		assert.NotNil(t, err)
		assert.True(t, errors.Is(err, errors.Validation))
		u.Name = "a name"
		assert.Nil(t, util.ValidateStruct(&u))
	})
}
