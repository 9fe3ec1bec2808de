package viewkit

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/autom8ter/viewkit/javascript"
	"github.com/autom8ter/viewkit/util"
	"github.com/samber/lo"
)

// EmitFunc adds a row to a view index. Keys and values must be json compatible.
type EmitFunc func(key, value any) error

// MapFunc emits zero or more index rows for a document
type MapFunc func(doc *Document, emit EmitFunc) error

// ReduceFunc folds the keys and values of a group into a single value. When rereduce is true,
// values are the results of earlier reduce calls and keys are nil.
type ReduceFunc func(keys, values []collate.Value, rereduce bool) (collate.Value, error)

// View is the definition of a view index. Map/Reduce may be go functions or javascript sources.
// Reduce sources may also name a builtin reducer (_count, _sum, _stats).
type View struct {
	Name         string `json:"name" validate:"required"`
	MapSource    string `json:"map,omitempty"`
	ReduceSource string `json:"reduce,omitempty"`
	// Version must change whenever a go Map or Reduce function changes so that the index is rebuilt
	Version string     `json:"version,omitempty"`
	Map     MapFunc    `json:"-"`
	Reduce  ReduceFunc `json:"-"`
}

// HasReduce returns true if the view can be queried with reduce
func (v View) HasReduce() bool {
	return v.Reduce != nil || v.ReduceSource != ""
}

// compile validates the view and compiles its javascript sources
func (v View) compile() (View, error) {
	if err := util.ValidateStruct(v); err != nil {
		return v, errors.Wrap(err, errors.Validation, "invalid view")
	}
	if strings.ContainsRune(v.Name, 0) {
		return v, errors.New(errors.Validation, "view name may not contain NUL: %q", v.Name)
	}
	if v.Map == nil {
		if v.MapSource == "" {
			return v, errors.New(errors.Validation, "view %s has no map function", v.Name)
		}
		script := javascript.Script(v.MapSource)
		fn, err := script.CompileMap()
		if err != nil {
			return v, errors.Wrap(err, errors.Validation, "view %s: map function %s", v.Name, script.Name())
		}
		v.Map = scriptMap(fn)
	}
	if v.Reduce == nil && v.ReduceSource != "" {
		if builtin, ok := builtinReducers[v.ReduceSource]; ok {
			v.Reduce = builtin
		} else {
			script := javascript.Script(v.ReduceSource)
			fn, err := script.CompileReduce()
			if err != nil {
				return v, errors.Wrap(err, errors.Validation, "view %s: reduce function %s", v.Name, script.Name())
			}
			v.Reduce = scriptReduce(fn)
		}
	}
	return v, nil
}

// signature changes whenever the definition of the view changes
func (v View) signature() string {
	h := md5.New()
	for _, part := range []string{v.Name, v.MapSource, v.ReduceSource, v.Version} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func scriptMap(fn javascript.MapFunction) MapFunc {
	return func(doc *Document, emit EmitFunc) error {
		var emitErr error
		err := fn(doc.Value(), func(key, value any) {
			if emitErr == nil {
				emitErr = emit(key, value)
			}
		})
		if err != nil {
			return err
		}
		return emitErr
	}
}

func scriptReduce(fn javascript.ReduceFunction) ReduceFunc {
	return func(keys, values []collate.Value, rereduce bool) (collate.Value, error) {
		var jsKeys []any
		if keys != nil {
			jsKeys = lo.Map(keys, func(k collate.Value, _ int) any { return k.Interface() })
		}
		result, err := fn(jsKeys, lo.Map(values, func(v collate.Value, _ int) any { return v.Interface() }), rereduce)
		if err != nil {
			return collate.Null(), err
		}
		value, err := collate.From(result)
		if err != nil {
			return collate.Null(), errors.Wrap(err, errors.Internal, "reduce returned an invalid value")
		}
		return value, nil
	}
}
