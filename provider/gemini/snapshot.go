package gemini

import (
	"time"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/kevinwang15/litpatch"
	"github.com/kevinwang15/litpatch/internal/store"
)

// Snapshot renders set in the {"lastUpdated", "totalTools", "tools"} layout
// that the file provider replays. Each tool carries its record id first.
func Snapshot(set litpatch.UpdateSet, now time.Time) ([]byte, error) {
	doc := []byte(`{}`)
	var err error
	if doc, err = sjson.SetBytes(doc, "lastUpdated", now.Format(time.RFC3339)); err != nil {
		return nil, err
	}
	if doc, err = sjson.SetBytes(doc, "totalTools", len(set)); err != nil {
		return nil, err
	}
	if doc, err = sjson.SetRawBytes(doc, "tools", []byte(`[]`)); err != nil {
		return nil, err
	}
	for _, u := range set {
		fields := []litpatch.Field{litpatch.F("id", litpatch.String(u.ID))}
		for _, f := range u.Fields {
			if f.Key != "id" {
				fields = append(fields, f)
			}
		}
		if doc, err = sjson.SetBytes(doc, "tools.-1", litpatch.Map(fields...)); err != nil {
			return nil, err
		}
	}
	return pretty.Pretty(doc), nil
}

// SaveSnapshot atomically writes Snapshot(set, now) to path.
func SaveSnapshot(path string, set litpatch.UpdateSet, now time.Time) error {
	b, err := Snapshot(set, now)
	if err != nil {
		return err
	}
	return store.WriteAtomic(path, b, 0o644)
}
