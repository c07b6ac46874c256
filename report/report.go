// Package report summarizes a run over one or more documents.
package report

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kevinwang15/litpatch"
)

// Document is the outcome for one file.
type Document struct {
	Path    string
	Backup  string // empty when no backup was taken
	Written bool
	Result  *litpatch.Result
	Err     error // read, edit or write failure
}

// Totals aggregates outcome counts across documents.
type Totals struct {
	Documents  int
	Changed    int
	Failed     int
	Applied    int
	Unchanged  int
	NotFound   int
	Invalid    int
	Shadowed   int
	Disallowed int
	Edits      int
}

// Summary collects documents; Add is safe for concurrent use.
type Summary struct {
	RunID   string
	Started time.Time
	DryRun  bool

	// AllowedFields lists the field names updates may touch; empty means any.
	AllowedFields []string

	mu   sync.Mutex
	docs []Document
}

// New starts a summary.
func New(runID string, started time.Time, dryRun bool) *Summary {
	return &Summary{RunID: runID, Started: started, DryRun: dryRun}
}

// Add records one document.
func (s *Summary) Add(d Document) {
	s.mu.Lock()
	s.docs = append(s.docs, d)
	s.mu.Unlock()
}

// Documents returns the recorded documents sorted by path.
func (s *Summary) Documents() []Document {
	s.mu.Lock()
	out := append([]Document(nil), s.docs...)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Totals counts outcomes over every document.
func (s *Summary) Totals() Totals {
	var t Totals
	for _, d := range s.Documents() {
		t.Documents++
		if d.Err != nil {
			t.Failed++
		}
		r := d.Result
		if r == nil {
			continue
		}
		if r.Changed() {
			t.Changed++
		}
		t.Edits += len(r.Plan)
		for _, o := range r.Outcomes {
			switch o.Status {
			case litpatch.Applied:
				if o.Changed() {
					t.Applied++
				} else {
					t.Unchanged++
				}
			case litpatch.NotFound:
				t.NotFound++
			case litpatch.StructurallyInvalid:
				t.Invalid++
			case litpatch.Shadowed:
				t.Shadowed++
			}
			for _, f := range o.Fields {
				if f.Status == litpatch.FieldDisallowed {
					t.Disallowed++
				}
			}
		}
	}
	return t
}

// Markdown renders the human-readable run summary.
func (s *Summary) Markdown() string {
	var b strings.Builder
	t := s.Totals()

	b.WriteString("# Record Integration Summary\n\n")
	fmt.Fprintf(&b, "**Date:** %s\n\n", s.Started.Format(time.DateTime))
	if s.RunID != "" {
		fmt.Fprintf(&b, "**Run:** `%s`\n\n", s.RunID)
	}
	if s.DryRun {
		b.WriteString("**Dry run:** no file was written.\n\n")
	}
	if len(s.AllowedFields) > 0 {
		fmt.Fprintf(&b, "**Allowed fields:** %s\n\n", strings.Join(s.AllowedFields, ", "))
	}

	b.WriteString("## Results\n\n")
	fmt.Fprintf(&b, "- **Documents processed:** %d\n", t.Documents)
	fmt.Fprintf(&b, "- **Documents changed:** %d\n", t.Changed)
	fmt.Fprintf(&b, "- **Records updated:** %d\n", t.Applied)
	fmt.Fprintf(&b, "- **Records already current:** %d\n", t.Unchanged)
	fmt.Fprintf(&b, "- **Records not found:** %d\n", t.NotFound)
	if t.Invalid > 0 {
		fmt.Fprintf(&b, "- **Structurally invalid:** %d\n", t.Invalid)
	}
	if t.Shadowed > 0 {
		fmt.Fprintf(&b, "- **Shadowed duplicates:** %d\n", t.Shadowed)
	}
	if t.Disallowed > 0 {
		fmt.Fprintf(&b, "- **Fields skipped (not allow-listed):** %d\n", t.Disallowed)
	}
	if t.Failed > 0 {
		fmt.Fprintf(&b, "- **Documents failed:** %d\n", t.Failed)
	}

	for _, d := range s.Documents() {
		fmt.Fprintf(&b, "\n## `%s`\n\n", d.Path)
		if d.Backup != "" {
			fmt.Fprintf(&b, "- **Backup location:** `%s`\n", d.Backup)
		}
		if d.Err != nil {
			fmt.Fprintf(&b, "- **Error:** %v\n", d.Err)
		}
		if d.Result == nil {
			continue
		}
		writeOutcomes(&b, d.Result.Outcomes)
	}
	return b.String()
}

func writeOutcomes(b *strings.Builder, outs []litpatch.Outcome) {
	var updated, missing, invalid []string
	var skipped []string
	for _, o := range outs {
		switch o.Status {
		case litpatch.Applied:
			if o.Changed() {
				updated = append(updated, fmt.Sprintf("%s (%s)", o.RecordID, appliedFields(o.Fields)))
			}
		case litpatch.NotFound:
			missing = append(missing, o.RecordID)
		case litpatch.StructurallyInvalid:
			name := o.RecordID
			if name == "" {
				name = "document"
			}
			invalid = append(invalid, fmt.Sprintf("%s: %s", name, o.Detail))
		}
		for _, f := range o.Fields {
			if f.Status == litpatch.FieldDisallowed {
				skipped = append(skipped, o.RecordID+"."+f.Field)
			}
		}
	}
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(b, "\n### %s\n\n", title)
		for _, it := range items {
			fmt.Fprintf(b, "- %s\n", it)
		}
	}
	section("Updated records", updated)
	section("Not found", missing)
	section("Structurally invalid", invalid)
	section("Skipped fields", skipped)
}

func appliedFields(fs []litpatch.FieldOutcome) string {
	var names []string
	for _, f := range fs {
		if f.Status == litpatch.FieldApplied {
			names = append(names, f.Field)
		}
	}
	if len(names) == 0 {
		return "replaced"
	}
	return strings.Join(names, ", ")
}

// Diff renders a unified diff of one document. It is empty when nothing changed.
func Diff(path string, before, after []byte) (string, error) {
	if string(before) == string(after) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
}

// DiffStats counts added and removed lines of a unified diff.
func DiffStats(diff string) (adds, removes int) {
	for _, line := range strings.Split(diff, "\n") {
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '+':
			if !strings.HasPrefix(line, "+++") {
				adds++
			}
		case '-':
			if !strings.HasPrefix(line, "---") {
				removes++
			}
		}
	}
	return
}
