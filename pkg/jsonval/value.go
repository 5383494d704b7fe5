// Package jsonval is a read-only tagged union over JSON documents.
//
// Values keep the source bytes and iterate object members in document
// order, which the embedded-data search depends on. Accessors return an
// explicit ok flag instead of zero values for missing or mistyped fields.
package jsonval

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Kind tags the variant held by a Value
type Kind int

const (
	Invalid Kind = iota
	Null
	Bool
	Number
	String
	Object
	Array
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Object:
		return "object"
	case Array:
		return "array"
	default:
		return "invalid"
	}
}

// Value is one JSON node. The zero Value is Invalid (absent).
type Value struct {
	res gjson.Result
}

// Parse validates data and returns its root value
func Parse(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, fmt.Errorf("invalid JSON document (%d bytes)", len(data))
	}
	return Value{res: gjson.ParseBytes(data)}, nil
}

// MustParse is Parse for literals in tests and fixtures
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

// Kind reports the variant
func (v Value) Kind() Kind {
	if !v.res.Exists() {
		return Invalid
	}
	switch v.res.Type {
	case gjson.Null:
		return Null
	case gjson.True, gjson.False:
		return Bool
	case gjson.Number:
		return Number
	case gjson.String:
		return String
	case gjson.JSON:
		if v.res.IsArray() {
			return Array
		}
		return Object
	}
	return Invalid
}

func (v Value) Exists() bool   { return v.Kind() != Invalid }
func (v Value) IsObject() bool { return v.Kind() == Object }
func (v Value) IsArray() bool  { return v.Kind() == Array }

// Raw returns the value's JSON text
func (v Value) Raw() []byte {
	return []byte(v.res.Raw)
}

// Pretty returns the value indented, keeping member order
func (v Value) Pretty() []byte {
	return pretty.Pretty(v.Raw())
}

// Entries calls fn for each object member in document order until fn returns false.
// It does nothing for non-objects.
func (v Value) Entries(fn func(key string, val Value) bool) {
	if v.Kind() != Object {
		return
	}
	v.res.ForEach(func(k, val gjson.Result) bool {
		return fn(k.String(), Value{res: val})
	})
}

// Elements calls fn for each array element in order until fn returns false.
// It does nothing for non-arrays.
func (v Value) Elements(fn func(i int, val Value) bool) {
	if v.Kind() != Array {
		return
	}
	i := 0
	v.res.ForEach(func(_, val gjson.Result) bool {
		ok := fn(i, Value{res: val})
		i++
		return ok
	})
}

// Keys lists an object's member names in document order
func (v Value) Keys() []string {
	var keys []string
	v.Entries(func(k string, _ Value) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Get returns the first member named key
func (v Value) Get(key string) (Value, bool) {
	var found Value
	v.Entries(func(k string, val Value) bool {
		if k == key {
			found = val
			return false
		}
		return true
	})
	return found, found.Exists()
}

// Path walks nested object members
func (v Value) Path(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Items returns array elements; nil for non-arrays
func (v Value) Items() []Value {
	var out []Value
	v.Elements(func(_ int, val Value) bool {
		out = append(out, val)
		return true
	})
	return out
}

// Len is the number of members or elements
func (v Value) Len() int {
	n := 0
	switch v.Kind() {
	case Object:
		v.Entries(func(string, Value) bool { n++; return true })
	case Array:
		v.Elements(func(int, Value) bool { n++; return true })
	}
	return n
}

// Str returns a string value
func (v Value) Str() (string, bool) {
	if v.Kind() != String {
		return "", false
	}
	return v.res.Str, true
}

// Text returns strings as-is and numbers in their source form; ids arrive as either.
func (v Value) Text() (string, bool) {
	switch v.Kind() {
	case String:
		return v.res.Str, true
	case Number:
		return v.res.Raw, true
	}
	return "", false
}

// Int returns a number as int64
func (v Value) Int() (int64, bool) {
	if v.Kind() != Number {
		return 0, false
	}
	return v.res.Int(), true
}

// Bool returns a boolean value
func (v Value) Bool() (bool, bool) {
	if v.Kind() != Bool {
		return false, false
	}
	return v.res.Bool(), true
}

// Equal reports deep equality. Object member order is ignored; numbers compare by value.
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case Invalid, Null:
		return true
	case Bool:
		return a.res.Bool() == b.res.Bool()
	case Number:
		return a.res.Num == b.res.Num || a.res.Raw == b.res.Raw
	case String:
		return a.res.Str == b.res.Str
	case Array:
		ai, bi := a.Items(), b.Items()
		if len(ai) != len(bi) {
			return false
		}
		for i := range ai {
			if !Equal(ai[i], bi[i]) {
				return false
			}
		}
		return true
	case Object:
		if a.Len() != b.Len() {
			return false
		}
		equal := true
		a.Entries(func(k string, av Value) bool {
			bv, ok := b.Get(k)
			equal = ok && Equal(av, bv)
			return equal
		})
		return equal
	}
	return false
}

// Wrap builds {key: v}
func Wrap(key string, v Value) (Value, error) {
	raw, err := sjson.SetRawBytes([]byte("{}"), escapePath(key), v.Raw())
	if err != nil {
		return Value{}, fmt.Errorf("wrap %q: %w", key, err)
	}
	return Parse(raw)
}

// escapePath quotes gjson/sjson path metacharacters so key is taken literally
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(`.*?|#@:\!=<>%`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (v Value) String() string {
	return string(bytes.TrimSpace(v.Raw()))
}
