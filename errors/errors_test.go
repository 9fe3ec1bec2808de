package errors_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/autom8ter/viewkit/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	t.Run("wrap nil error", func(t *testing.T) {
		var err error
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Nil(t, err)
	})
	t.Run("wrap error", func(t *testing.T) {
		var err = fmt.Errorf("not found")
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
	})
	t.Run("new error", func(t *testing.T) {
		err := errors.New(errors.NotFound, "not found")
		assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
	})
	t.Run("new error then wrap", func(t *testing.T) {
		err := errors.New(0, "not found")
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
	})
	t.Run("new error then wrap then remove", func(t *testing.T) {
		err := errors.New(0, "not found")
		err = errors.Wrap(err, errors.NotFound, "")
		e := errors.Extract(err).RemoveError()
		assert.Empty(t, e.Err)
	})
	t.Run("error json string", func(t *testing.T) {
		err := errors.New(0, "not found")
		err = errors.Wrap(err, errors.NotFound, "")
		e := errors.Extract(err).RemoveError()
		assert.JSONEq(t, `{ "code":404, "messages": ["not found"]}`, e.Error())
	})
	t.Run("error json string with cause", func(t *testing.T) {
		err := errors.Wrap(context.Canceled, errors.Cancelled, "query aborted")
		assert.JSONEq(t, `{ "code":499, "messages": ["query aborted"], "err": "context canceled"}`, err.Error())
	})
	t.Run("is", func(t *testing.T) {
		err := errors.Wrap(fmt.Errorf("disk gone"), errors.Unavailable, "")
		assert.True(t, errors.Is(err, errors.Unavailable))
		assert.False(t, errors.Is(err, errors.Validation))
		assert.False(t, errors.Is(nil, errors.Validation))
		assert.False(t, errors.Is(fmt.Errorf("plain"), errors.Internal))
	})
	t.Run("extract wrapped", func(t *testing.T) {
		inner := errors.New(errors.FetchFailed, "doc 1")
		outer := fmt.Errorf("materialize: %w", inner)
		assert.Equal(t, errors.FetchFailed, errors.Extract(outer).Code)
	})
}
