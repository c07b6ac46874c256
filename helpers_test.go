package litpatch

import (
	"strings"
	"testing"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/pmezard/go-difflib/difflib"
)

func mustDecodePatch(t *testing.T, s string) jsonpatch.Patch {
	t.Helper()
	patch, err := jsonpatch.DecodePatch([]byte(s))
	if err != nil {
		t.Fatalf("jsonpatch decode error: %v", err)
	}
	return patch
}

func unifiedDiff(before, after string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

func diffStats(diff string) (adds, removes int) {
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

// braceBalance counts '{' minus '}' outside string literals.
func braceBalance(doc []byte) int {
	n := 0
	for i := 0; i < len(doc); i++ {
		switch doc[i] {
		case '\'', '"', '`':
			end, _ := skipString(doc, i)
			i = end - 1
		case '{':
			n++
		case '}':
			n--
		}
	}
	return n
}

func mustApply(t *testing.T, ed *Editor, doc string, updates UpdateSet) *Result {
	t.Helper()
	res, err := ed.Apply([]byte(doc), updates)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	return res
}

func outcomeFor(t *testing.T, res *Result, id string) Outcome {
	t.Helper()
	for _, o := range res.Outcomes {
		if o.RecordID == id {
			return o
		}
	}
	t.Fatalf("no outcome for %q in %+v", id, res.Outcomes)
	return Outcome{}
}
