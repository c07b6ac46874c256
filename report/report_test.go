package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinwang15/litpatch"
)

const doc = `export const aiToolsData = [
  {
    id: 'a',
    description: 'old',
  },
  {
    id: 'b',
    description: 'same',
  },
];
`

func apply(t *testing.T) *litpatch.Result {
	t.Helper()
	ed := litpatch.New(litpatch.Config{
		Anchor:    "export const aiToolsData",
		AllowList: litpatch.NewAllowList("id", "description"),
	})
	res, err := ed.Apply([]byte(doc), litpatch.UpdateSet{
		{ID: "a", Fields: []litpatch.Field{litpatch.F("description", litpatch.String("new")), litpatch.F("secret", litpatch.Bool(true))}},
		{ID: "b", Fields: []litpatch.Field{litpatch.F("description", litpatch.String("same"))}},
		{ID: "zzz", Fields: []litpatch.Field{litpatch.F("description", litpatch.String("x"))}},
	})
	require.NoError(t, err)
	return res
}

func TestTotalsAndMarkdown(t *testing.T) {
	s := New("run-1", time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC), true)
	s.Add(Document{Path: "src/data/aiToolsData.ts", Backup: "backups/aiToolsData_backup_20250714_090000.ts", Result: apply(t)})
	s.Add(Document{Path: "broken.ts", Err: errors.New("permission denied")})
	s.AllowedFields = litpatch.NewAllowList("tags", "description").Names()

	tot := s.Totals()
	assert.Equal(t, Totals{Documents: 2, Changed: 1, Failed: 1, Applied: 1, Unchanged: 1, NotFound: 1, Disallowed: 1, Edits: 1}, tot)

	md := s.Markdown()
	for _, want := range []string{
		"# Record Integration Summary",
		"**Date:** 2025-07-14 09:00:00",
		"**Run:** `run-1`",
		"**Dry run:**",
		"**Allowed fields:** description, tags",
		"- **Records updated:** 1",
		"- **Records not found:** 1",
		"- **Documents failed:** 1",
		"## `broken.ts`",
		"- **Error:** permission denied",
		"- **Backup location:** `backups/aiToolsData_backup_20250714_090000.ts`",
		"- a (description)",
		"### Not found\n\n- zzz",
		"- a.secret",
	} {
		assert.Contains(t, md, want)
	}
	// Documents are listed by path.
	assert.Less(t, strings.Index(md, "## `broken.ts`"), strings.Index(md, "## `src/data/aiToolsData.ts`"))
}

func TestMarkdownOmitsAllowedFieldsWhenUnrestricted(t *testing.T) {
	s := New("run-2", time.Now(), false)
	var all litpatch.AllowList
	s.AllowedFields = all.Names()
	assert.NotContains(t, s.Markdown(), "Allowed fields")
}

func TestDiff(t *testing.T) {
	res := apply(t)
	d, err := Diff("aiToolsData.ts", res.Original, res.Doc)
	require.NoError(t, err)
	assert.Contains(t, d, "--- a/aiToolsData.ts")
	assert.Contains(t, d, "+++ b/aiToolsData.ts")
	assert.Contains(t, d, "-    description: 'old',")
	assert.Contains(t, d, "+    description: 'new',")

	adds, removes := DiffStats(d)
	assert.Equal(t, 1, adds)
	assert.Equal(t, 1, removes)

	d, err = Diff("x", res.Original, res.Original)
	require.NoError(t, err)
	assert.Empty(t, d)
}
