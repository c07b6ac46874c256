package litpatch

import (
	"golang.org/x/text/cases"
)

// Record is one top-level brace group carrying an identifying field.
type Record struct {
	ID       string
	Span     Span
	Shadowed bool // a record with the same id appears earlier in the document
}

// IndexOptions controls how records are identified.
type IndexOptions struct {
	IDField  string // key holding the record id; "id" when empty
	FoldCase bool   // match ids with Unicode case folding
}

// Index holds the records of one scan in document order.
type Index struct {
	records []Record
	first   map[string]int
	fold    bool
	folder  cases.Caser
}

// BuildIndex extracts the identifying field of each span. Spans without one (or
// whose id value is not a quoted string) are skipped. When ids repeat, only the
// first record is addressable; later ones are marked Shadowed.
func BuildIndex(doc []byte, spans []Span, opts IndexOptions) (*Index, error) {
	idField := opts.IDField
	if idField == "" {
		idField = "id"
	}
	idx := &Index{first: map[string]int{}, fold: opts.FoldCase}
	if opts.FoldCase {
		idx.folder = cases.Fold()
	}
	for _, sp := range spans {
		raw := doc[sp.Start:sp.End]
		id, ok, err := recordID(raw, idField)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rec := Record{ID: id, Span: sp}
		k := idx.key(id)
		if _, dup := idx.first[k]; dup {
			rec.Shadowed = true
		} else {
			idx.first[k] = len(idx.records)
		}
		idx.records = append(idx.records, rec)
	}
	return idx, nil
}

// recordID returns the first top-level idField whose value is a quoted string.
func recordID(raw []byte, idField string) (string, bool, error) {
	var (
		id    string
		found bool
		perr  error
	)
	err := walkKeys(raw, func(k keyRef) bool {
		if k.name != idField || k.valueStart >= len(raw) {
			return true
		}
		switch raw[k.valueStart] {
		case '\'', '"', '`':
		default:
			return true
		}
		end, ok := skipString(raw, k.valueStart)
		if !ok {
			return true
		}
		id, perr = unquote(raw[k.valueStart:end])
		found = perr == nil
		return !found
	})
	if err != nil {
		return "", false, err
	}
	return id, found, nil
}

func (x *Index) key(id string) string {
	if x.fold {
		return x.folder.String(id)
	}
	return id
}

// Records returns every indexed record, shadowed ones included, in document order.
func (x *Index) Records() []Record { return x.records }

// Lookup returns the first record whose id matches.
func (x *Index) Lookup(id string) (Record, bool) {
	i, ok := x.first[x.key(id)]
	if !ok {
		return Record{}, false
	}
	return x.records[i], true
}

// Shadowed lists later duplicates of ids that are already addressable.
func (x *Index) Shadowed() []Record {
	var out []Record
	for _, r := range x.records {
		if r.Shadowed {
			out = append(out, r)
		}
	}
	return out
}

// Len is the number of indexed records.
func (x *Index) Len() int { return len(x.records) }
