package litpatch

import (
	"errors"
	"strings"
	"testing"
)

const patchRecord = `{
    id: 'cursor',
    name: 'Cursor',
    description: 'Old text, with a comma',
    features: ['a', 'b'],
    pricing: {
      free: true,
    },
    meta: { description: 'nested' },
    // description: 'commented'
    popularity: 42,
  }`

func TestPatchReplacesOnlyValueLiterals(t *testing.T) {
	p := Patcher{Style: DefaultStyle, BaseDepth: 1}
	res, err := p.Patch([]byte(patchRecord), []Field{
		F("description", String("New text")),
		F("features", List(String("x"), String("y"))),
		F("popularity", Int(43)),
	})
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}
	want := strings.NewReplacer(
		"'Old text, with a comma'", "'New text'",
		"['a', 'b']", "['x', 'y']",
		"popularity: 42", "popularity: 43",
	).Replace(patchRecord)
	if string(res.Raw) != want {
		t.Fatalf("unexpected result\n%s", unifiedDiff(want, string(res.Raw)))
	}
	if len(res.Edits) != 3 {
		t.Fatalf("edits = %d, want 3", len(res.Edits))
	}
	for _, fo := range res.Fields {
		if fo.Status != FieldApplied {
			t.Fatalf("field %s: %s", fo.Field, fo.Status)
		}
	}
}

func TestPatchMapValueUsesKeyIndent(t *testing.T) {
	p := Patcher{Style: DefaultStyle, BaseDepth: 1}
	res, err := p.Patch([]byte(patchRecord), []Field{
		F("pricing", Map(F("free", Bool(false)), F("tiers", List(String("Pro"))))),
	})
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}
	want := strings.Replace(patchRecord, "{\n      free: true,\n    }", "{\n      free: false,\n      tiers: ['Pro']\n    }", 1)
	if string(res.Raw) != want {
		t.Fatalf("unexpected result\n%s", unifiedDiff(want, string(res.Raw)))
	}
	adds, removes := diffStats(unifiedDiff(patchRecord, string(res.Raw)))
	if adds != 2 || removes != 1 {
		t.Fatalf("diff +%d -%d, want +2 -1", adds, removes)
	}
}

func TestPatchNeverInserts(t *testing.T) {
	res, err := PatchRecord([]byte(patchRecord), []Field{F("website", String("https://x"))}, DefaultStyle)
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}
	if string(res.Raw) != patchRecord || res.Changed() {
		t.Fatalf("record changed:\n%s", unifiedDiff(patchRecord, string(res.Raw)))
	}
	if len(res.Fields) != 1 || res.Fields[0].Status != FieldNotFound {
		t.Fatalf("outcomes = %+v", res.Fields)
	}
}

func TestPatchUnchangedValue(t *testing.T) {
	res, err := PatchRecord([]byte(patchRecord), []Field{
		F("name", String("Cursor")),
		F("pricing", Map(F("free", Bool(true)))),
	}, DefaultStyle)
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}
	if res.Changed() {
		t.Fatalf("expected no edits, got %+v", res.Edits)
	}
	for _, fo := range res.Fields {
		if fo.Status != FieldUnchanged {
			t.Fatalf("field %s: %s", fo.Field, fo.Status)
		}
	}
}

func TestPatchSameKeyTwiceLastWins(t *testing.T) {
	res, err := PatchRecord([]byte(`{ id: 'a', n: 1 }`), []Field{F("n", Int(2)), F("n", Int(3))}, DefaultStyle)
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}
	if string(res.Raw) != `{ id: 'a', n: 3 }` {
		t.Fatalf("got %q", res.Raw)
	}
}

func TestPatchOneLineRecord(t *testing.T) {
	raw := `{ id: 'a', tags: ['x'], note: 'keep' }`
	res, err := PatchRecord([]byte(raw), []Field{F("tags", List(Map(F("k", Int(1)))))}, DefaultStyle)
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}
	want := "{ id: 'a', tags: [\n    {\n      k: 1\n    }\n  ], note: 'keep' }"
	if string(res.Raw) != want {
		t.Fatalf("got %q", res.Raw)
	}
}

func TestPatchStructuralValue(t *testing.T) {
	_, err := PatchRecord([]byte(`{ id: 'a', n: , m: 1 }`), []Field{F("n", Int(2))}, DefaultStyle)
	if !errors.Is(err, ErrStructural) {
		t.Fatalf("expected ErrStructural, got %v", err)
	}
}

func TestRenderRecordPutsIDFirst(t *testing.T) {
	got := RenderRecord("a", "", []Field{F("name", String("A"))}, DefaultStyle, 1)
	want := "{\n    id: 'a',\n    name: 'A'\n  }"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	got = RenderRecord("a", "id", []Field{F("name", String("A")), F("id", String("a"))}, DefaultStyle, 0)
	if got != "{\n  name: 'A',\n  id: 'a'\n}" {
		t.Fatalf("got %q", got)
	}
}
