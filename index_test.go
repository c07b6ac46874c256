package litpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, doc string, opts IndexOptions) *Index {
	t.Helper()
	spans, err := Spans([]byte(doc), 0)
	require.NoError(t, err)
	idx, err := BuildIndex([]byte(doc), spans, opts)
	require.NoError(t, err)
	return idx
}

func TestIndexFirstDuplicateWins(t *testing.T) {
	doc := "[{ id: 'a', n: 1 }, { id: 'b' }, { id: 'a', n: 2 }]"
	idx := buildIndex(t, doc, IndexOptions{})
	require.Equal(t, 3, idx.Len())

	rec, ok := idx.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "{ id: 'a', n: 1 }", doc[rec.Span.Start:rec.Span.End])
	assert.False(t, rec.Shadowed)

	shadowed := idx.Shadowed()
	require.Len(t, shadowed, 1)
	assert.Equal(t, "{ id: 'a', n: 2 }", doc[shadowed[0].Span.Start:shadowed[0].Span.End])

	_, ok = idx.Lookup("zzz")
	assert.False(t, ok)
}

func TestIndexIgnoresNestedAndNonStringIDs(t *testing.T) {
	doc := `[
  { name: 'no id', meta: { id: 'nested' } },
  { id: 7 },
  { 'id': "quoted" },
  { note: 'id: fake', id: ` + "`tpl`" + ` },
]`
	idx := buildIndex(t, doc, IndexOptions{})
	var ids []string
	for _, r := range idx.Records() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"quoted", "tpl"}, ids)
	_, ok := idx.Lookup("nested")
	assert.False(t, ok)
}

func TestIndexCustomFieldAndFoldCase(t *testing.T) {
	doc := "[{ slug: 'ChatGPT' }, { slug: 'chatgpt' }, { slug: 'École' }]"

	idx := buildIndex(t, doc, IndexOptions{IDField: "slug"})
	_, ok := idx.Lookup("CHATGPT")
	assert.False(t, ok)
	assert.Empty(t, idx.Shadowed())

	idx = buildIndex(t, doc, IndexOptions{IDField: "slug", FoldCase: true})
	rec, ok := idx.Lookup("CHATGPT")
	require.True(t, ok)
	assert.Equal(t, "ChatGPT", rec.ID)
	assert.Len(t, idx.Shadowed(), 1)

	rec, ok = idx.Lookup("éCOLE")
	require.True(t, ok)
	assert.Equal(t, "École", rec.ID)
}
