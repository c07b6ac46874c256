package litpatch

import (
	"bytes"
	"fmt"
)

// FieldStatus classifies what happened to one requested field.
type FieldStatus uint8

const (
	FieldApplied FieldStatus = iota
	FieldUnchanged
	FieldNotFound
	FieldDisallowed
)

func (s FieldStatus) String() string {
	switch s {
	case FieldApplied:
		return "applied"
	case FieldUnchanged:
		return "unchanged"
	case FieldNotFound:
		return "not-found"
	case FieldDisallowed:
		return "disallowed"
	default:
		return fmt.Sprintf("FieldStatus(%d)", uint8(s))
	}
}

// FieldOutcome is the per-field result of a patch.
type FieldOutcome struct {
	Field  string
	Status FieldStatus
	Detail string
}

// PatchResult is the rewritten record plus what happened to each field.
type PatchResult struct {
	Raw    []byte
	Fields []FieldOutcome
	Edits  []Edit // in record coordinates
}

// Changed reports whether any field was rewritten.
func (r PatchResult) Changed() bool { return len(r.Edits) > 0 }

// Patcher rewrites field values inside a single record.
type Patcher struct {
	Style Style
	// BaseDepth is the nesting depth of the line the record opens on. Keys sharing
	// that first line render their values at BaseDepth+1.
	BaseDepth int
}

// PatchRecord is Patcher{Style: style}.Patch.
func PatchRecord(raw []byte, fields []Field, style Style) (PatchResult, error) {
	return Patcher{Style: style}.Patch(raw, fields)
}

// Patch replaces the literal value of every field in fields that exists at the
// top level of raw. Absent fields are reported as FieldNotFound and never
// inserted. Everything outside the replaced value literals is kept byte for byte.
// A value that cannot be delimited returns a *StructuralError.
func (p Patcher) Patch(raw []byte, fields []Field) (PatchResult, error) {
	style := p.Style.normalize()
	res := PatchResult{Raw: raw}
	var plan []Edit
	for _, f := range fields {
		k, ok, err := findKey(raw, f.Key)
		if err != nil {
			return PatchResult{Raw: raw}, err
		}
		if !ok {
			res.Fields = append(res.Fields, FieldOutcome{Field: f.Key, Status: FieldNotFound, Detail: ErrFieldNotFound.Error()})
			continue
		}
		end, err := valueEnd(raw, k.valueStart)
		if err != nil {
			return PatchResult{Raw: raw}, fmt.Errorf("field %q: %w", f.Key, err)
		}
		span := Span{Start: k.valueStart, End: end}

		if old, n, perr := ParseValue(raw[span.Start:span.End]); perr == nil && n == span.Len() && old.Equal(f.Value) {
			res.Fields = append(res.Fields, FieldOutcome{Field: f.Key, Status: FieldUnchanged})
			continue
		}

		depth := p.BaseDepth + 1
		if bytes.IndexByte(raw[:k.start], '\n') >= 0 {
			depth = style.depthAt(raw, k.start)
		}
		text := style.Render(f.Value, depth)
		if text == string(raw[span.Start:span.End]) {
			res.Fields = append(res.Fields, FieldOutcome{Field: f.Key, Status: FieldUnchanged})
			continue
		}
		plan = append(plan, Edit{Span: span, Text: []byte(text)})
		res.Fields = append(res.Fields, FieldOutcome{Field: f.Key, Status: FieldApplied})
	}
	if len(plan) == 0 {
		return res, nil
	}

	// The same key named twice in fields would target one span twice.
	SortEdits(plan)
	plan = dedupeEdits(plan)
	out, err := ApplyEdits(raw, plan)
	if err != nil {
		return PatchResult{Raw: raw}, err
	}
	res.Raw = out
	res.Edits = plan
	return res, nil
}

// dedupeEdits keeps the last edit for identical spans.
func dedupeEdits(plan []Edit) []Edit {
	out := plan[:0]
	for _, e := range plan {
		if n := len(out); n > 0 && out[n-1].Span == e.Span {
			out[n-1] = e
			continue
		}
		out = append(out, e)
	}
	return out
}

// RenderRecord renders a whole replacement record from fields at depth. The id
// field is put first when fields do not carry it so the record stays addressable.
func RenderRecord(id, idField string, fields []Field, style Style, depth int) string {
	if idField == "" {
		idField = "id"
	}
	has := false
	for _, f := range fields {
		if f.Key == idField {
			has = true
			break
		}
	}
	if !has {
		fields = append([]Field{{Key: idField, Value: String(id)}}, fields...)
	}
	return style.Render(Map(fields...), depth)
}
