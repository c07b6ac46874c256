package litpatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	gyaml "github.com/goccy/go-yaml"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is the in-memory counterpart of a literal: string, number, boolean, null,
// ordered list or insertion-ordered map. The zero Value is null.
type Value struct {
	kind   Kind
	str    string
	num    float64
	b      bool
	list   []Value
	fields []Field
}

// Field is one key/value pair of a Map value or of a record update.
type Field struct {
	Key   string
	Value Value
}

func String(s string) Value { return Value{kind: KindString, str: s} }
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i)} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Null() Value { return Value{} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }
func Map(fields ...Field) Value { return Value{kind: KindMap, fields: fields} }
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) Str() string { return v.str }
func (v Value) Num() float64 { return v.num }
func (v Value) Boolean() bool { return v.b }
func (v Value) Items() []Value { return v.list }
func (v Value) Fields() []Field { return v.fields }
func (v Value) IsScalar() bool { return v.kind != KindList && v.kind != KindMap }

// Get returns the first field named key of a Map value.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Equal compares tag and content; map order matters.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Key != o.fields[i].Key || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts back to plain Go values; maps become gyaml.MapSlice so order survives.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1<<53 {
			return int64(v.num)
		}
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, 0, len(v.list))
		for _, it := range v.list {
			out = append(out, it.Interface())
		}
		return out
	case KindMap:
		out := make(gyaml.MapSlice, 0, len(v.fields))
		for _, f := range v.fields {
			out = append(out, gyaml.MapItem{Key: f.Key, Value: f.Value.Interface()})
		}
		return out
	default:
		return nil
	}
}

// ValueOf converts a decoded Go value. gyaml.MapSlice keeps its order; plain maps
// are emitted with sorted keys since they carry none.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case float32:
		return Number(float64(t)), nil
	case float64:
		return Number(t), nil
	case gyaml.MapSlice:
		fields := make([]Field, 0, len(t))
		for _, it := range t {
			fv, err := ValueOf(it.Value)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{Key: fmt.Sprint(it.Key), Value: fv})
		}
		return Map(fields...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(t))
		for _, k := range keys {
			fv, err := ValueOf(t[k])
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{Key: k, Value: fv})
		}
		return Map(fields...), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, e := range t {
			ev, err := ValueOf(e)
			if err != nil {
				return Value{}, err
			}
			items = append(items, ev)
		}
		return List(items...), nil
	case fmt.Stringer:
		return String(t.String()), nil
	}

	// Typed slices and string-keyed maps ([]string, map[string]string, ...).
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return ValueOf(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return ValueOf(m)
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		return ValueOf(rv.Elem().Interface())
	}
	return Value{}, fmt.Errorf("%w: unsupported value type %T", ErrDataFormat, x)
}

// MarshalJSON encodes v with map order preserved.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return fmt.Errorf("%w: %v has no JSON form", ErrDataFormat, v.num)
		}
		buf.WriteString(strconv.FormatFloat(v.num, 'f', -1, 64))
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindList:
		buf.WriteByte('[')
		for i, it := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := f.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
	return nil
}
