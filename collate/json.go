package collate

import (
	"bytes"
	"encoding/json"
	"strconv"
	"unicode/utf8"

	"github.com/autom8ter/viewkit/errors"
	"github.com/tidwall/gjson"
)

// Parse parses json bytes into a Value, preserving the field order of objects
func Parse(bits []byte) (Value, error) {
	if !gjson.ValidBytes(bits) {
		return Value{}, errors.New(errors.Validation, "invalid json: %s", string(bits))
	}
	if !utf8.Valid(bits) {
		return Value{}, errors.New(errors.Validation, "invalid utf-8 in json: %q", bits)
	}
	return fromResult(gjson.ParseBytes(bits))
}

// MustParse is like Parse but panics on error
func MustParse(raw string) Value {
	v, err := Parse([]byte(raw))
	if err != nil {
		panic(err)
	}
	return v
}

func fromResult(r gjson.Result) (Value, error) {
	switch r.Type {
	case gjson.Null:
		return Null(), nil
	case gjson.False:
		return Bool(false), nil
	case gjson.True:
		return Bool(true), nil
	case gjson.Number:
		return fromFloat(r.Num)
	case gjson.String:
		return String(r.Str), nil
	}
	var err error
	switch {
	case r.IsArray():
		arr := []Value{}
		r.ForEach(func(_, e gjson.Result) bool {
			var ev Value
			ev, err = fromResult(e)
			if err != nil {
				return false
			}
			arr = append(arr, ev)
			return true
		})
		return Value{kind: KindArray, arr: arr}, err
	case r.IsObject():
		fields := []Field{}
		r.ForEach(func(k, e gjson.Result) bool {
			var ev Value
			ev, err = fromResult(e)
			if err != nil {
				return false
			}
			fields = append(fields, Field{Key: k.Str, Value: ev})
			return true
		})
		return Value{kind: KindObject, fields: fields}, err
	default:
		return Value{}, errors.New(errors.Validation, "unsupported json: %s", r.Raw)
	}
}

// MarshalJSON encodes the value as json. Object fields keep their order.
func (v Value) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := v.writeJSON(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes json into the value
func (v *Value) UnmarshalJSON(bits []byte) error {
	parsed, err := Parse(bits)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(strconv.FormatFloat(v.n, 'g', -1, 64))
	case KindString:
		bits, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(bits)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			bits, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(bits)
			buf.WriteByte(':')
			if err := f.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}
