// Package value implements the structured document tree produced by extraction.
//
// A Value is exactly one of string, int, float, array or map. The JSON encoding keeps
// the int/float distinction: floats are always written with a fraction or an exponent,
// so 3.0 stays a float after a round trip. Non finite floats are written as the strings
// "NaN", "+Inf" and "-Inf" because JSON has no literal for them, and those three strings
// decode back to floats.
package value

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

var ErrUnsupportedJSON = errors.New("value: unsupported json type")

type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	arr  []Value
	m    map[string]Value
}

func String(s string) Value { return Value{kind: KindString, s: s} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

// Strings builds an array of string values.
func Strings(items []string) Value {
	arr := make([]Value, len(items))
	for i, s := range items {
		arr[i] = String(s)
	}
	return Array(arr...)
}

// Floats builds an array of float values.
func Floats(items []float64) Value {
	arr := make([]Value, len(items))
	for i, f := range items {
		arr[i] = Float(f)
	}
	return Array(arr...)
}

// NewMap returns an empty map value. Map values share their backing map, so Set on a
// copy is visible through the original.
func NewMap() Value { return Value{kind: KindMap, m: map[string]Value{}} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Set stores val under key. It panics if v is not a map.
func (v Value) Set(key string, val Value) {
	if v.kind != KindMap {
		panic("value: Set on " + v.kind.String())
	}
	v.m[key] = val
}

// Get returns the entry under key of a map value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	val, ok := v.m[key]
	return val, ok
}

// Delete removes key from a map value.
func (v Value) Delete(key string) {
	if v.kind == KindMap {
		delete(v.m, key)
	}
}

// Len is the number of entries of an array or map, zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.m)
	}
	return 0
}

// Keys returns the sorted keys of a map value.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		return writeString(buf, v.s)
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		switch {
		case math.IsNaN(v.f):
			buf.WriteString(`"NaN"`)
		case math.IsInf(v.f, 1):
			buf.WriteString(`"+Inf"`)
		case math.IsInf(v.f, -1):
			buf.WriteString(`"-Inf"`)
		default:
			buf.WriteString(formatFloat(v.f))
		}
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, key := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := v.m[key].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("value: unknown kind %d", v.kind)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	parsed, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func fromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		switch t {
		case "NaN":
			return Float(math.NaN()), nil
		case "+Inf":
			return Float(math.Inf(1)), nil
		case "-Inf":
			return Float(math.Inf(-1)), nil
		}
		return String(t), nil
	case json.Number:
		s := t.String()
		if strings.ContainsAny(s, ".eE") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return Value{}, fmt.Errorf("value: parse float %q: %w", s, err)
			}
			return Float(f), nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("value: parse int %q: %w", s, err)
		}
		return Int(i), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			val, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = val
		}
		return Array(items...), nil
	case map[string]any:
		m := NewMap()
		for k, item := range t {
			val, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			m.Set(k, val)
		}
		return m, nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedJSON, raw)
	}
}
