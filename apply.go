package litpatch

import (
	"sort"
)

// Edit replaces the bytes of Span (in original document coordinates) with Text.
type Edit struct {
	Span Span
	Text []byte
}

// offsetAccumulator tracks how far earlier edits have shifted the document.
// Invariant: after applying edits e0..ek in ascending start order,
// delta == sum(len(ei.Text) - ei.Span.Len()), so any later original span s sits
// at [s.Start+delta, s.End+delta) in the working buffer.
type offsetAccumulator struct {
	delta int
}

func (a *offsetAccumulator) place(s Span) Span {
	return Span{Start: s.Start + a.delta, End: s.End + a.delta}
}

func (a *offsetAccumulator) advance(s Span, replaced int) {
	a.delta += replaced - s.Len()
}

// SortEdits orders a plan by original start; edits with equal starts keep their
// relative order.
func SortEdits(plan []Edit) {
	sort.SliceStable(plan, func(i, j int) bool {
		if plan[i].Span.Start == plan[j].Span.Start {
			return plan[i].Span.End < plan[j].Span.End
		}
		return plan[i].Span.Start < plan[j].Span.Start
	})
}

// CheckPlan verifies that every span lies inside a document of length n and that
// the plan is in ascending, non-overlapping order. Two insertions at the same
// point are allowed.
func CheckPlan(n int, plan []Edit) error {
	prev := Span{Start: -1, End: -1}
	for i, e := range plan {
		s := e.Span
		if s.Start < 0 || s.End < s.Start || s.End > n {
			return structural(s.Start, "edit %d span %s outside document of %d bytes", i, s, n)
		}
		if i > 0 {
			if s.Start < prev.Start {
				return structural(s.Start, "edit %d span %s out of order after %s", i, s, prev)
			}
			if prev.End > s.Start {
				return structural(s.Start, "edit %d span %s overlaps %s", i, s, prev)
			}
		}
		prev = s
	}
	return nil
}

// ApplyEdits splices every edit of plan into a copy of doc. The plan must be in
// ascending original order and non-overlapping; otherwise a *StructuralError is
// returned together with doc itself, untouched.
func ApplyEdits(doc []byte, plan []Edit) ([]byte, error) {
	if err := CheckPlan(len(doc), plan); err != nil {
		return doc, err
	}
	out := append([]byte(nil), doc...)
	var acc offsetAccumulator
	for _, e := range plan {
		at := acc.place(e.Span)
		out = splice(out, at, e.Text)
		acc.advance(e.Span, len(e.Text))
	}
	return out, nil
}

func splice(buf []byte, at Span, text []byte) []byte {
	res := make([]byte, 0, len(buf)-at.Len()+len(text))
	res = append(res, buf[:at.Start]...)
	res = append(res, text...)
	res = append(res, buf[at.End:]...)
	return res
}
