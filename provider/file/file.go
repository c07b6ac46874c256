// Package file replays updates stored on disk.
//
// Accepted shapes, in JSON, JSON with comments and trailing commas, or YAML:
//
//	{"<id>": {"description": "...", ...}}            field objects per record
//	{"<id>": [{"op": "replace", "path": "/x", ...}]}  RFC 6902 patches per record
//	{"tools": [{"id": "<id>", ...}, ...]}             fetch snapshots
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/kevinwang15/litpatch"
)

// Provider reads one update file per FetchUpdates call.
type Provider struct {
	Path string
	// KeyFields name the element field that identifies a record in the
	// "tools" shape, tried in order. Defaults to id then name.
	KeyFields []string
}

// New returns a provider for path.
func New(path string) *Provider { return &Provider{Path: path} }

// FetchUpdates reads and decodes the file.
func (p *Provider) FetchUpdates(ctx context.Context) (litpatch.UpdateSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	set, err := Decode(data, formatOf(p.Path), p.KeyFields...)
	if err != nil {
		return nil, litpatch.NewDataFormatError(p.Path, err)
	}
	return set, nil
}

// Format selects the decoder.
type Format uint8

const (
	JSON Format = iota // JSON, JSONC and HuJSON
	YAML
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// Decode parses an update document.
func Decode(data []byte, f Format, keyFields ...string) (litpatch.UpdateSet, error) {
	var (
		root litpatch.Value
		err  error
	)
	switch f {
	case YAML:
		root, err = litpatch.ValueFromYAML(data)
	default:
		std, serr := hujson.Standardize(data)
		if serr != nil {
			return nil, fmt.Errorf("%w: %v", litpatch.ErrDataFormat, serr)
		}
		root, err = litpatch.ValueFromJSON(std)
	}
	if err != nil {
		return nil, err
	}
	if root.Kind() != litpatch.KindMap {
		return nil, fmt.Errorf("%w: top level must be an object, got %s", litpatch.ErrDataFormat, root.Kind())
	}
	if tools, ok := root.Get("tools"); ok && tools.Kind() == litpatch.KindList {
		if len(keyFields) == 0 {
			keyFields = []string{"id", "name"}
		}
		return fromTools(tools, keyFields)
	}
	return fromRecords(root)
}

func fromRecords(root litpatch.Value) (litpatch.UpdateSet, error) {
	var set litpatch.UpdateSet
	for _, f := range root.Fields() {
		fields, err := recordFields(f.Value)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", f.Key, err)
		}
		set = append(set, litpatch.RecordUpdate{ID: f.Key, Fields: fields})
	}
	return set.Merge(), nil
}

func recordFields(v litpatch.Value) ([]litpatch.Field, error) {
	switch v.Kind() {
	case litpatch.KindMap:
		return v.Fields(), nil
	case litpatch.KindList:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		patch, err := litpatch.DecodePatch(raw)
		if err != nil {
			return nil, err
		}
		return litpatch.FieldsFromPatch(patch)
	}
	return nil, fmt.Errorf("%w: expected an object or a patch array, got %s", litpatch.ErrDataFormat, v.Kind())
}

func fromTools(tools litpatch.Value, keyFields []string) (litpatch.UpdateSet, error) {
	var set litpatch.UpdateSet
	for i, t := range tools.Items() {
		if t.Kind() != litpatch.KindMap {
			return nil, fmt.Errorf("%w: tools[%d] is %s, not an object", litpatch.ErrDataFormat, i, t.Kind())
		}
		id, err := toolKey(t, keyFields)
		if err != nil {
			return nil, fmt.Errorf("tools[%d]: %w", i, err)
		}
		set = append(set, litpatch.RecordUpdate{ID: id, Fields: t.Fields()})
	}
	return set.Merge(), nil
}

func toolKey(t litpatch.Value, keyFields []string) (string, error) {
	for _, k := range keyFields {
		if v, ok := t.Get(k); ok && v.Kind() == litpatch.KindString && v.Str() != "" {
			return v.Str(), nil
		}
	}
	return "", fmt.Errorf("%w: %w", litpatch.ErrDataFormat, errors.New("no "+strings.Join(keyFields, "/")+" field"))
}
