package collate

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/autom8ter/viewkit/errors"
	"github.com/spf13/cast"
)

// Kind is the type tag of a Value. Kinds are declared in collation order.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// FullDepth is a group level that keeps every element of a compound key
const FullDepth = math.MaxInt32

// Field is a single member of an object Value
type Field struct {
	Key   string
	Value Value
}

// Value is an immutable, json compatible key or value emitted into a view.
// The zero Value is null.
type Value struct {
	kind   Kind
	b      bool
	n      float64
	s      string
	arr    []Value
	fields []Field
}

// Null returns the null Value
func Null() Value {
	return Value{}
}

// Bool returns a boolean Value
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Number returns a numeric Value. Negative zero is normalized to zero.
func Number(n float64) Value {
	if n == 0 {
		n = 0
	}
	return Value{kind: KindNumber, n: n}
}

// String returns a string Value
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Array returns an array Value holding the given elements
func Array(elements ...Value) Value {
	arr := make([]Value, len(elements))
	copy(arr, elements)
	return Value{kind: KindArray, arr: arr}
}

// Object returns an object Value. Field order is preserved and participates in collation.
func Object(fields ...Field) Value {
	f := make([]Field, len(fields))
	copy(f, fields)
	return Value{kind: KindObject, fields: f}
}

// Kind returns the type tag of the value
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull returns true if the value is null
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Bool returns the boolean payload (false for non-booleans)
func (v Value) Bool() bool {
	return v.b
}

// Number returns the numeric payload (0 for non-numbers)
func (v Value) Number() float64 {
	return v.n
}

// Str returns the string payload ("" for non-strings)
func (v Value) Str() string {
	return v.s
}

// Len returns the number of elements of an array or fields of an object
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.fields)
	default:
		return 0
	}
}

// Index returns the i'th element of an array value
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Null()
	}
	return v.arr[i]
}

// Elements returns a copy of the elements of an array value
func (v Value) Elements() []Value {
	if v.kind != KindArray {
		return nil
	}
	arr := make([]Value, len(v.arr))
	copy(arr, v.arr)
	return arr
}

// Fields returns a copy of the fields of an object value
func (v Value) Fields() []Field {
	if v.kind != KindObject {
		return nil
	}
	f := make([]Field, len(v.fields))
	copy(f, v.fields)
	return f
}

// Get returns the named field of an object value
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Null(), false
}

// Truncate returns the group key of v at the given level: the first level
// elements of an array key, null for level 0, and v itself for scalar keys.
func (v Value) Truncate(level int) Value {
	if level <= 0 {
		return Null()
	}
	if v.kind != KindArray || level >= len(v.arr) {
		return v
	}
	return Array(v.arr[:level]...)
}

// Interface converts the value to plain go values (nil, bool, float64, string, []any, map[string]any)
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			out[f.Key] = f.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// String returns the value as a json string
func (v Value) String() string {
	bits, _ := v.MarshalJSON()
	return string(bits)
}

// From converts a go value into a Value. Maps are converted into objects with sorted keys.
func From(value any) (Value, error) {
	switch value := value.(type) {
	case nil:
		return Null(), nil
	case Value:
		return value, nil
	case *Value:
		if value == nil {
			return Null(), nil
		}
		return *value, nil
	case bool:
		return Bool(value), nil
	case string:
		return fromString(value)
	case []byte:
		return fromString(string(value))
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return Value{}, errors.Wrap(err, errors.Validation, "invalid number: %s", value)
		}
		return fromFloat(f)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return Value{}, errors.Wrap(err, errors.Validation, "")
		}
		return fromFloat(f)
	case time.Time:
		return String(value.UTC().Format(time.RFC3339Nano)), nil
	case []Value:
		return Array(value...), nil
	case []any:
		arr := make([]Value, 0, len(value))
		for _, e := range value {
			ev, err := From(e)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, ev)
		}
		return Value{kind: KindArray, arr: arr}, nil
	case []string:
		arr := make([]Value, 0, len(value))
		for _, e := range value {
			ev, err := fromString(e)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, ev)
		}
		return Value{kind: KindArray, arr: arr}, nil
	case map[string]any:
		keys := make([]string, 0, len(value))
		for k := range value {
			if !utf8.ValidString(k) {
				return Value{}, errors.New(errors.Validation, "invalid utf-8 in object key %q", k)
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fv, err := From(value[k])
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{Key: k, Value: fv})
		}
		return Value{kind: KindObject, fields: fields}, nil
	default:
		// fall back to the json representation of the value
		bits, err := json.Marshal(value)
		if err != nil {
			return Value{}, errors.Wrap(err, errors.Validation, "unsupported value type: %T", value)
		}
		return Parse(bits)
	}
}

// MustFrom is like From but panics on error
func MustFrom(value any) Value {
	v, err := From(value)
	if err != nil {
		panic(err)
	}
	return v
}

// fromString rejects strings that can not round trip through json unchanged
func fromString(s string) (Value, error) {
	if !utf8.ValidString(s) {
		return Value{}, errors.New(errors.Validation, "invalid utf-8 in string %q", s)
	}
	return String(s), nil
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, errors.New(errors.Validation, "non-finite number: %v", f)
	}
	return Number(f), nil
}
