// Package litpatch rewrites records embedded as object literals in hand-authored
// source documents (for example a TypeScript data module) without touching any
// byte outside the values it updates.
//
// A document is scanned for top-level brace groups, each group is identified by an
// id field, and the requested field values are spliced in place with every edit
// offset-corrected against the edits before it. Nothing is ever parsed and
// regenerated wholesale, so comments, ordering and formatting survive.
package litpatch

import (
	"bytes"
	"errors"
	"fmt"
	"time"
)

// Status classifies a record-level outcome.
type Status uint8

const (
	Applied Status = iota
	NotFound
	StructurallyInvalid
	Shadowed
	Untouched
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case NotFound:
		return "not-found"
	case StructurallyInvalid:
		return "structurally-invalid"
	case Shadowed:
		return "shadowed"
	case Untouched:
		return "untouched"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Outcome reports what happened to one record.
type Outcome struct {
	RecordID string
	Status   Status
	Detail   string
	Span     Span // original span; zero for NotFound
	Fields   []FieldOutcome
}

// Changed reports whether at least one field of the record was rewritten.
func (o Outcome) Changed() bool {
	if o.Status != Applied {
		return false
	}
	for _, f := range o.Fields {
		if f.Status == FieldApplied {
			return true
		}
	}
	return false
}

// Mode selects how an updated record is rewritten.
type Mode uint8

const (
	// ModePatch replaces only the value literals of existing fields.
	ModePatch Mode = iota
	// ModeReplace re-renders the whole record from the update's fields.
	ModeReplace
)

// ParseMode maps "patch" / "replace" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "patch":
		return ModePatch, nil
	case "replace":
		return ModeReplace, nil
	}
	return ModePatch, fmt.Errorf("litpatch: unknown mode %q", s)
}

func (m Mode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "patch"
}

// Logger is the subset of a leveled logger the editor reports through.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Config is passed explicitly to every editor; there is no package-level state.
type Config struct {
	IDField   string    // key holding the record id; "id" when empty
	Anchor    string    // when set, only records inside the array assigned after it are scanned
	AllowList AllowList // nil allows every field
	Mode      Mode
	Style     *Style // overrides the detected style; zero members stay detected
	FoldCase  bool   // case-insensitive id matching

	// StampField, when set, is rewritten to Now() formatted with StampLayout on
	// every record that had at least one field applied.
	StampField  string
	StampLayout string
	Now         func() time.Time

	Logger Logger
}

// Editor applies update sets to documents.
type Editor struct {
	cfg Config
	log Logger
}

// New returns an editor for cfg.
func New(cfg Config) *Editor {
	if cfg.IDField == "" {
		cfg.IDField = "id"
	}
	if cfg.StampLayout == "" {
		cfg.StampLayout = time.DateOnly
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	l := cfg.Logger
	if l == nil {
		l = nopLogger{}
	}
	return &Editor{cfg: cfg, log: l}
}

// Result is the output of one Apply call.
type Result struct {
	Original []byte
	Doc      []byte
	Plan     []Edit
	Outcomes []Outcome
}

// Changed reports whether the final document differs from the original.
func (r *Result) Changed() bool { return !bytes.Equal(r.Original, r.Doc) }

// Count returns how many outcomes have status s.
func (r *Result) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Apply rewrites doc according to updates. doc is never modified.
//
// A structural failure of the document itself (unbalanced braces or quotes, or a
// bad edit plan) is fatal: the original document is returned with a single
// StructurallyInvalid outcome and an error wrapping ErrStructural. Every other
// problem is collected per record or per field and processing continues.
func (e *Editor) Apply(doc []byte, updates UpdateSet) (*Result, error) {
	res := &Result{Original: doc, Doc: doc}
	updates = updates.Merge()

	fail := func(err error) (*Result, error) {
		e.log.Errorf("document rejected: %v", err)
		res.Doc = doc
		res.Plan = nil
		res.Outcomes = []Outcome{{Status: StructurallyInvalid, Detail: err.Error()}}
		return res, err
	}

	rng, err := AnchorRange(doc, e.cfg.Anchor)
	if err != nil {
		if errors.Is(err, ErrStructural) {
			return fail(err)
		}
		return res, err
	}
	spans, err := Spans(doc[:rng.End], rng.Start)
	if err != nil {
		return fail(err)
	}
	idx, err := BuildIndex(doc, spans, IndexOptions{IDField: e.cfg.IDField, FoldCase: e.cfg.FoldCase})
	if err != nil {
		return fail(err)
	}
	e.log.Debugf("indexed %d record(s) from %d span(s)", idx.Len(), len(spans))

	style := DetectStyle(doc)
	if e.cfg.Style != nil {
		style = style.Override(*e.cfg.Style)
	}

	// Resolve every update to the first record carrying its id.
	byStart := map[int]RecordUpdate{}
	var missing []RecordUpdate
	for _, u := range updates {
		rec, ok := idx.Lookup(u.ID)
		if !ok {
			missing = append(missing, u)
			continue
		}
		if prev, dup := byStart[rec.Span.Start]; dup {
			// Two ids folding onto one record: merge them.
			prev.Fields = mergeFields(prev.Fields, u.Fields)
			byStart[rec.Span.Start] = prev
			continue
		}
		byStart[rec.Span.Start] = u
	}

	for _, rec := range idx.Records() {
		if rec.Shadowed {
			if first, ok := idx.Lookup(rec.ID); ok {
				if _, targeted := byStart[first.Span.Start]; targeted {
					e.log.Warnf("record %q at %s shadowed by an earlier duplicate; not modified", rec.ID, rec.Span)
				}
			}
			res.Outcomes = append(res.Outcomes, Outcome{RecordID: rec.ID, Status: Shadowed, Detail: "duplicate id; first occurrence wins", Span: rec.Span})
			continue
		}
		u, ok := byStart[rec.Span.Start]
		if !ok {
			res.Outcomes = append(res.Outcomes, Outcome{RecordID: rec.ID, Status: Untouched, Span: rec.Span})
			continue
		}
		out, edit := e.rewrite(doc, rec, u, style)
		res.Outcomes = append(res.Outcomes, out)
		if edit != nil {
			res.Plan = append(res.Plan, *edit)
		}
	}

	for _, u := range missing {
		e.log.Warnf("record %q not found", u.ID)
		res.Outcomes = append(res.Outcomes, Outcome{RecordID: u.ID, Status: NotFound, Detail: ErrRecordNotFound.Error()})
	}

	final, err := ApplyEdits(doc, res.Plan)
	if err != nil {
		return fail(err)
	}
	res.Doc = final
	e.log.Infof("%d applied, %d not found, %d invalid, %d edit(s)",
		res.Count(Applied), res.Count(NotFound), res.Count(StructurallyInvalid), len(res.Plan))
	return res, nil
}

// rewrite produces the outcome for one matched record and, when bytes change, the
// record-level edit.
func (e *Editor) rewrite(doc []byte, rec Record, u RecordUpdate, style Style) (Outcome, *Edit) {
	out := Outcome{RecordID: rec.ID, Status: Applied, Span: rec.Span}

	fields, dropped := e.cfg.AllowList.Filter(u.Fields)
	for _, name := range dropped {
		e.log.Warnf("record %q: field %q is not allow-listed; skipped", rec.ID, name)
		out.Fields = append(out.Fields, FieldOutcome{Field: name, Status: FieldDisallowed, Detail: "not in allow-list"})
	}

	raw := doc[rec.Span.Start:rec.Span.End]
	depth := style.depthAt(doc, rec.Span.Start)

	var newRaw []byte
	switch e.cfg.Mode {
	case ModeReplace:
		if len(fields) == 0 {
			out.Detail = "no allow-listed fields"
			return out, nil
		}
		for _, f := range fields {
			out.Fields = append(out.Fields, FieldOutcome{Field: f.Key, Status: FieldApplied})
		}
		// Render with the record's current stamp first so an otherwise identical
		// record is left alone.
		if old, ok := e.currentStamp(raw); ok && !hasField(fields, e.cfg.StampField) {
			same := mergeFields(append([]Field(nil), fields...), []Field{{Key: e.cfg.StampField, Value: old}})
			if RenderRecord(rec.ID, e.cfg.IDField, same, style, depth) == string(raw) {
				markUnchanged(out.Fields)
				out.Detail = "unchanged"
				return out, nil
			}
		}
		newRaw = []byte(RenderRecord(rec.ID, e.cfg.IDField, e.stamp(fields), style, depth))
		if bytes.Equal(newRaw, raw) {
			markUnchanged(out.Fields)
			out.Detail = "unchanged"
			return out, nil
		}
	default:
		p := Patcher{Style: style, BaseDepth: depth}
		pr, err := p.Patch(raw, fields)
		if err != nil {
			e.log.Errorf("record %q: %v", rec.ID, err)
			out.Status = StructurallyInvalid
			out.Detail = err.Error()
			return out, nil
		}
		if pr.Changed() && e.cfg.StampField != "" && e.cfg.AllowList.Allows(e.cfg.StampField) && !hasField(fields, e.cfg.StampField) {
			stamped, err := p.Patch(pr.Raw, e.stamp(nil))
			if err == nil {
				pr.Raw = stamped.Raw
				for _, fo := range stamped.Fields {
					if fo.Status == FieldApplied {
						pr.Fields = append(pr.Fields, fo)
					}
				}
			}
		}
		out.Fields = append(out.Fields, pr.Fields...)
		newRaw = pr.Raw
		if !pr.Changed() {
			out.Detail = "unchanged"
			return out, nil
		}
	}

	e.log.Debugf("record %q at %s rewritten (%d -> %d bytes)", rec.ID, rec.Span, len(raw), len(newRaw))
	return out, &Edit{Span: rec.Span, Text: newRaw}
}

// stamp adds the stamp field set to the current time unless fields already carry it.
func (e *Editor) stamp(fields []Field) []Field {
	if e.cfg.StampField == "" || !e.cfg.AllowList.Allows(e.cfg.StampField) || hasField(fields, e.cfg.StampField) {
		return fields
	}
	v := String(e.cfg.Now().Format(e.cfg.StampLayout))
	return append(append([]Field(nil), fields...), Field{Key: e.cfg.StampField, Value: v})
}

// currentStamp reads the stamp value a record already has.
func (e *Editor) currentStamp(raw []byte) (Value, bool) {
	if e.cfg.StampField == "" || !e.cfg.AllowList.Allows(e.cfg.StampField) {
		return Value{}, false
	}
	v, ok, err := FieldValue(raw, e.cfg.StampField)
	if err != nil {
		return Value{}, false
	}
	return v, ok
}

func markUnchanged(fos []FieldOutcome) {
	for i := range fos {
		if fos[i].Status == FieldApplied {
			fos[i].Status = FieldUnchanged
		}
	}
}

func hasField(fields []Field, name string) bool {
	for _, f := range fields {
		if f.Key == name {
			return true
		}
	}
	return false
}

// List returns the records of doc that the editor would address, shadowed
// duplicates included, in document order.
func (e *Editor) List(doc []byte) ([]Record, error) {
	rng, err := AnchorRange(doc, e.cfg.Anchor)
	if err != nil {
		return nil, err
	}
	spans, err := Spans(doc[:rng.End], rng.Start)
	if err != nil {
		return nil, err
	}
	idx, err := BuildIndex(doc, spans, IndexOptions{IDField: e.cfg.IDField, FoldCase: e.cfg.FoldCase})
	if err != nil {
		return nil, err
	}
	return idx.Records(), nil
}

// FieldValue parses the value of the top-level field name of a record literal.
func FieldValue(raw []byte, name string) (Value, bool, error) {
	k, ok, err := findKey(raw, name)
	if err != nil || !ok {
		return Value{}, false, err
	}
	end, err := valueEnd(raw, k.valueStart)
	if err != nil {
		return Value{}, false, err
	}
	v, _, err := ParseValue(raw[k.valueStart:end])
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}
