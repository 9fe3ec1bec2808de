package collate

import (
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/autom8ter/viewkit/errors"
	textcollate "golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collator is a total order over Values. Key returns an order preserving,
// prefix free encoding of a value such that bytes.Compare(c.Key(a), c.Key(b))
// always equals c.Compare(a, b). View indexes are physically sorted by Key.
type Collator interface {
	// Name identifies the collation rules
	Name() string
	// Compare returns -1, 0 or 1
	Compare(a, b Value) int
	// Key returns the sortable encoding of v
	Key(v Value) []byte
}

const (
	endMarker   byte = 0x00
	fieldMarker byte = 0x01
	tagNull     byte = 0x02
	tagFalse    byte = 0x03
	tagTrue     byte = 0x04
	tagNumber   byte = 0x05
	tagString   byte = 0x06
	tagArray    byte = 0x07
	tagObject   byte = 0x08
)

// stringRules supplies the string specific part of a collation
type stringRules struct {
	name    string
	compare func(a, b string) int
	key     func(dst []byte, s string) []byte
}

func (r stringRules) Name() string {
	return r.name
}

func (r stringRules) Compare(a, b Value) int {
	if a.kind != b.kind {
		return compareKinds(a, b)
	}
	switch a.kind {
	case KindNull:
		return 0
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case KindNumber:
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		default:
			return 0
		}
	case KindString:
		return r.compare(a.s, b.s)
	case KindArray:
		for i := 0; i < len(a.arr) && i < len(b.arr); i++ {
			if c := r.Compare(a.arr[i], b.arr[i]); c != 0 {
				return c
			}
		}
		return compareLen(len(a.arr), len(b.arr))
	case KindObject:
		for i := 0; i < len(a.fields) && i < len(b.fields); i++ {
			if c := r.compare(a.fields[i].Key, b.fields[i].Key); c != 0 {
				return c
			}
			if c := r.Compare(a.fields[i].Value, b.fields[i].Value); c != 0 {
				return c
			}
		}
		return compareLen(len(a.fields), len(b.fields))
	}
	return 0
}

func (r stringRules) Key(v Value) []byte {
	return r.appendKey(nil, v)
}

func (r stringRules) appendKey(dst []byte, v Value) []byte {
	switch v.kind {
	case KindNull:
		return append(dst, tagNull)
	case KindBool:
		if v.b {
			return append(dst, tagTrue)
		}
		return append(dst, tagFalse)
	case KindNumber:
		dst = append(dst, tagNumber)
		return appendNumber(dst, v.n)
	case KindString:
		dst = append(dst, tagString)
		return r.appendString(dst, v.s)
	case KindArray:
		dst = append(dst, tagArray)
		for _, e := range v.arr {
			dst = r.appendKey(dst, e)
		}
		return append(dst, endMarker)
	case KindObject:
		dst = append(dst, tagObject)
		for _, f := range v.fields {
			dst = append(dst, fieldMarker)
			dst = r.appendString(dst, f.Key)
			dst = r.appendKey(dst, f.Value)
		}
		return append(dst, endMarker)
	}
	return dst
}

func (r stringRules) appendString(dst []byte, s string) []byte {
	return AppendEscaped(dst, r.key(nil, s))
}

// AppendEscaped appends b so that the result is prefix free and sorts like b:
// 0x00 is escaped as 0x00 0xFF and the sequence is terminated by 0x00 0x01.
func AppendEscaped(dst []byte, b []byte) []byte {
	for _, c := range b {
		if c == 0x00 {
			dst = append(dst, 0x00, 0xFF)
			continue
		}
		dst = append(dst, c)
	}
	return append(dst, 0x00, 0x01)
}

func appendNumber(dst []byte, n float64) []byte {
	bits := math.Float64bits(n)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], bits)
	return append(dst, buf[:]...)
}

func compareKinds(a, b Value) int {
	return compareLen(int(rank(a)), int(rank(b)))
}

// rank splits booleans so that false sorts before true across kinds
func rank(v Value) byte {
	switch v.kind {
	case KindNull:
		return tagNull
	case KindBool:
		if v.b {
			return tagTrue
		}
		return tagFalse
	case KindNumber:
		return tagNumber
	case KindString:
		return tagString
	case KindArray:
		return tagArray
	default:
		return tagObject
	}
}

func compareLen(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Raw orders strings by unicode code point
var Raw Collator = stringRules{
	name:    "raw",
	compare: strings.Compare,
	key: func(dst []byte, s string) []byte {
		return append(dst, s...)
	},
}

// NewUnicode returns a collator ordering strings with the unicode collation
// algorithm tailored to the given language.
func NewUnicode(tag language.Tag) Collator {
	u := &unicodeRules{c: textcollate.New(tag)}
	return stringRules{
		name:    "unicode:" + tag.String(),
		compare: u.compare,
		key:     u.key,
	}
}

// textcollate.Collator is not safe for concurrent use
type unicodeRules struct {
	mu  sync.Mutex
	c   *textcollate.Collator
	buf textcollate.Buffer
}

func (u *unicodeRules) compare(a, b string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.c.CompareString(a, b)
}

func (u *unicodeRules) key(dst []byte, s string) []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.buf.Reset()
	return append(dst, u.c.KeyFromString(&u.buf, s)...)
}

// ByName returns the collator registered under name ("raw" or "unicode").
// lang is only used by the unicode collator and defaults to the root locale.
func ByName(name string, lang string) (Collator, error) {
	switch strings.ToLower(name) {
	case "", "raw":
		return Raw, nil
	case "unicode":
		tag := language.Und
		if lang != "" {
			parsed, err := language.Parse(lang)
			if err != nil {
				return nil, errors.Wrap(err, errors.Validation, "invalid collation language: %s", lang)
			}
			tag = parsed
		}
		return NewUnicode(tag), nil
	default:
		return nil, errors.New(errors.Validation, "unsupported collation: %s", name)
	}
}
