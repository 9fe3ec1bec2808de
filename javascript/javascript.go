package javascript

import (
	"fmt"
	"strings"
	"sync"

	"github.com/autom8ter/viewkit/errors"
	"github.com/dop251/goja"
	"github.com/spf13/cast"
)

// Script is the source of a javascript function, e.g. `function(doc) { emit(doc.type, 1) }`
type Script string

// MapFunction runs a map script against a document and reports each emitted row
type MapFunction func(doc map[string]any, emit func(key, value any)) error

// ReduceFunction runs a reduce script against the keys and values of a group
type ReduceFunction func(keys []any, values []any, rereduce bool) (any, error)

// goja runtimes are not safe for concurrent use so every compiled function owns one behind a mutex
type runtime struct {
	mu sync.Mutex
	vm *goja.Runtime
	fn goja.Callable
}

func (s Script) compile() (*runtime, error) {
	src := strings.TrimSpace(string(s))
	if src == "" {
		return nil, errors.New(errors.Validation, "empty script")
	}
	vm := goja.New()
	if err := vm.Set("sum", sum); err != nil {
		return nil, err
	}
	if err := vm.Set("toJSON", func(v goja.Value) (string, error) {
		bits, err := v.ToObject(vm).MarshalJSON()
		return string(bits), err
	}); err != nil {
		return nil, err
	}
	value, err := vm.RunString(fmt.Sprintf("(%s)", src))
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "failed to compile script %s", s.Name())
	}
	fn, ok := goja.AssertFunction(value)
	if !ok {
		return nil, errors.New(errors.Validation, "script %s does not evaluate to a function", s.Name())
	}
	return &runtime{vm: vm, fn: fn}, nil
}

// CompileMap compiles the script into a map function. The script calls emit(key, value) zero or more times.
func (s Script) CompileMap() (MapFunction, error) {
	rt, err := s.compile()
	if err != nil {
		return nil, err
	}
	var emit func(key, value any)
	if err := rt.vm.Set("emit", func(call goja.FunctionCall) goja.Value {
		emit(call.Argument(0).Export(), call.Argument(1).Export())
		return goja.Undefined()
	}); err != nil {
		return nil, err
	}
	return func(doc map[string]any, fn func(key, value any)) error {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		emit = fn
		defer func() {
			emit = nil
		}()
		if _, err := rt.fn(goja.Undefined(), rt.vm.ToValue(doc)); err != nil {
			return errors.Wrap(err, errors.Internal, "map script %s failed", s.Name())
		}
		return nil
	}, nil
}

// CompileReduce compiles the script into a reduce function with the signature (keys, values, rereduce)
func (s Script) CompileReduce() (ReduceFunction, error) {
	rt, err := s.compile()
	if err != nil {
		return nil, err
	}
	return func(keys []any, values []any, rereduce bool) (any, error) {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		result, err := rt.fn(
			goja.Undefined(),
			rt.vm.ToValue(keys),
			rt.vm.ToValue(values),
			rt.vm.ToValue(rereduce),
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "reduce script %s failed", s.Name())
		}
		return result.Export(), nil
	}, nil
}

func sum(values []any) float64 {
	var total float64
	for _, v := range values {
		total += cast.ToFloat64(v)
	}
	return total
}
