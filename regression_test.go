package litpatch

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapReplacementFollowedByListStaysIntact(t *testing.T) {
	// A grown map value followed by a multi-line list in the same record, with
	// a second record after it whose offsets must shift.
	input := `export const aiToolsData = [
  {
    id: 'svc',
    envs: {
      OLD_KEY: 'old_val',
    },
    integrations: [
      { name: 'SECRET_1', path: 'secret/path/1' },
      { name: 'SECRET_2', path: 'secret/path/2' },
    ],
  },
  {
    id: 'next',
    envs: {},
  },
];
`
	newEnvs := map[string]string{
		"NEW_KEY_1": "val1",
		"NEW_KEY_2": "val2",
		"NEW_KEY_3": "val3",
	}
	mapJSON, err := json.Marshal(newEnvs)
	require.NoError(t, err)

	type patchOp struct {
		Op    string          `json:"op"`
		Path  string          `json:"path"`
		Value json.RawMessage `json:"value,omitempty"`
	}
	payload, err := json.Marshal([]patchOp{{Op: "replace", Path: "/envs", Value: json.RawMessage(mapJSON)}})
	require.NoError(t, err)

	patch, err := DecodePatch(payload)
	require.NoError(t, err)
	fields, err := FieldsFromPatch(patch)
	require.NoError(t, err)

	ed := New(Config{Anchor: "export const aiToolsData"})
	res, err := ed.Apply([]byte(input), UpdateSet{
		{ID: "svc", Fields: fields},
		{ID: "next", Fields: []Field{F("envs", Map(F("A", String("b"))))}},
	})
	require.NoError(t, err)
	output := string(res.Doc)

	want := strings.NewReplacer(
		"    envs: {\n      OLD_KEY: 'old_val',\n    },",
		"    envs: {\n      NEW_KEY_1: 'val1',\n      NEW_KEY_2: 'val2',\n      NEW_KEY_3: 'val3'\n    },",
		"    envs: {},",
		"    envs: {\n      A: 'b'\n    },",
	).Replace(input)
	if output != want {
		t.Fatalf("unexpected output\n%s", unifiedDiff(want, output))
	}

	assert.Contains(t, output, "    integrations: [\n      { name: 'SECRET_1'")
	assert.NotContains(t, output, "OLD_KEY")
	assert.Zero(t, braceBalance(res.Doc))

	list, err := ed.List(res.Doc)
	require.NoError(t, err)
	require.Len(t, list, 2)
	v, ok, err := FieldValue(res.Doc[list[0].Span.Start:list[0].Span.End], "integrations")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, v.Items(), 2)
}

func TestKeyAfterCommentIsPatched(t *testing.T) {
	raw := "{\n  id: 'a',\n  // note: 'keep'\n  note: 'old', /* trailing */\n  n: 1\n}"
	res, err := PatchRecord([]byte(raw), []Field{F("note", String("new")), F("n", Int(2))}, DefaultStyle)
	require.NoError(t, err)
	assert.Equal(t, "{\n  id: 'a',\n  // note: 'keep'\n  note: 'new', /* trailing */\n  n: 2\n}", string(res.Raw))
}

func TestTrailingCommentsSurviveValueEdits(t *testing.T) {
	doc := "[\n  {\n    id: 'a',\n    popularity: 95 /* percent */,\n    status: active // enum\n  },\n]\n"
	ed := New(Config{})
	res, err := ed.Apply([]byte(doc), UpdateSet{{ID: "a", Fields: []Field{
		F("popularity", Int(96)),
		F("status", String("beta")),
	}}})
	require.NoError(t, err)
	want := "[\n  {\n    id: 'a',\n    popularity: 96 /* percent */,\n    status: 'beta' // enum\n  },\n]\n"
	if string(res.Doc) != want {
		t.Fatalf("unexpected output\n%s", unifiedDiff(want, string(res.Doc)))
	}
}

func TestLineCommentAfterLastValue(t *testing.T) {
	raw := "{\n  id: 'a',\n  popularity: 95 // out of 100\n}"
	res, err := PatchRecord([]byte(raw), []Field{F("popularity", Int(96))}, DefaultStyle)
	require.NoError(t, err)
	assert.Equal(t, "{\n  id: 'a',\n  popularity: 96 // out of 100\n}", string(res.Raw))

	again, err := PatchRecord(res.Raw, []Field{F("popularity", Int(96))}, DefaultStyle)
	require.NoError(t, err)
	assert.False(t, again.Changed())
	assert.Equal(t, FieldUnchanged, again.Fields[0].Status)
}

func TestCommentInPlaceOfValue(t *testing.T) {
	_, err := PatchRecord([]byte("{ id: 'a', n: /* soon */ 1 }"), []Field{F("n", Int(2))}, DefaultStyle)
	assert.ErrorIs(t, err, ErrStructural)
}
