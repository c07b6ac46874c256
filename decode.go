package litpatch

import (
	"errors"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	gyaml "github.com/goccy/go-yaml"
	"github.com/tidwall/gjson"
)

// ValueFromJSON decodes a JSON document keeping object keys in document order.
func ValueFromJSON(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, fmt.Errorf("%w: invalid JSON", ErrDataFormat)
	}
	return valueFromResult(gjson.ParseBytes(data)), nil
}

// ValueFromResult converts an already parsed gjson result.
func ValueFromResult(r gjson.Result) Value { return valueFromResult(r) }

func valueFromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.String:
		return String(r.Str)
	case gjson.Number:
		return Number(r.Num)
	case gjson.True:
		return Bool(true)
	case gjson.False:
		return Bool(false)
	case gjson.JSON:
		if r.IsArray() {
			items := []Value{}
			r.ForEach(func(_, v gjson.Result) bool {
				items = append(items, valueFromResult(v))
				return true
			})
			return List(items...)
		}
		fields := []Field{}
		r.ForEach(func(k, v gjson.Result) bool {
			fields = append(fields, Field{Key: k.String(), Value: valueFromResult(v)})
			return true
		})
		return Map(fields...)
	default:
		return Null()
	}
}

// ValueFromYAML decodes YAML (and therefore JSON) with mappings kept in order.
func ValueFromYAML(data []byte) (Value, error) {
	var x any
	if err := gyaml.UnmarshalWithOptions(data, &x, gyaml.UseOrderedMap()); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrDataFormat, err)
	}
	v, err := ValueOf(x)
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

// FieldsFromPatch turns an RFC 6902 patch against a single record into field
// updates. Only add and replace on a top-level pointer ("/description") are
// meaningful here; anything else is a data format error.
func FieldsFromPatch(patch jsonpatch.Patch) ([]Field, error) {
	fields := make([]Field, 0, len(patch))
	for i, op := range patch {
		kind := op.Kind()
		if kind != "add" && kind != "replace" {
			return nil, fmt.Errorf("%w: op %d: unsupported %q", ErrDataFormat, i, kind)
		}
		path, err := op.Path()
		if err != nil {
			return nil, fmt.Errorf("%w: op %d: %v", ErrDataFormat, i, err)
		}
		name, err := topLevelPointer(path)
		if err != nil {
			return nil, fmt.Errorf("%w: op %d: %v", ErrDataFormat, i, err)
		}
		raw, ok := op["value"]
		if !ok || raw == nil {
			return nil, fmt.Errorf("%w: op %d: missing value", ErrDataFormat, i)
		}
		v, err := ValueFromJSON(*raw)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		fields = mergeFields(fields, []Field{{Key: name, Value: v}})
	}
	return fields, nil
}

// DecodePatch is jsonpatch.DecodePatch with the error classified as ErrDataFormat.
func DecodePatch(data []byte) (jsonpatch.Patch, error) {
	p, err := jsonpatch.DecodePatch(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataFormat, err)
	}
	return p, nil
}

func topLevelPointer(p string) (string, error) {
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("JSON Pointer must start with '/': %q", p)
	}
	seg := p[1:]
	if seg == "" || strings.Contains(seg, "/") {
		return "", errors.New("only top-level field pointers are supported: " + p)
	}
	return strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~"), nil
}
