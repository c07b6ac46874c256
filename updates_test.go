package litpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSetMerge(t *testing.T) {
	set := UpdateSet{
		{ID: "a", Fields: []Field{F("x", Int(1)), F("y", Int(1))}},
		{ID: "b", Fields: []Field{F("x", Int(5))}},
		{ID: "a", Fields: []Field{F("y", Int(2)), F("z", Int(3))}},
	}
	got := set.Merge()
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "b"}, got.IDs())
	var keys []string
	for _, f := range got[0].Fields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"x", "y", "z"}, keys)
	assert.Equal(t, float64(2), got[0].Fields[1].Value.Num())
	assert.Equal(t, 4, got.Len())
	assert.Equal(t, 5, set.Len())
}

func TestUpdatesFromMapSortsIDs(t *testing.T) {
	set, err := UpdatesFromMap(map[string]map[string]any{
		"zed":   {"popularity": 3},
		"alpha": {"description": "d", "tags": []string{"t"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zed"}, set.IDs())
	require.Len(t, set[0].Fields, 2)
	assert.Equal(t, "description", set[0].Fields[0].Key)

	_, err = UpdatesFromMap(map[string]map[string]any{"bad": {"f": make(chan int)}})
	assert.ErrorIs(t, err, ErrDataFormat)
}

func TestAllowList(t *testing.T) {
	var all AllowList
	assert.True(t, all.Allows("anything"))

	a := NewAllowList("description", "tags")
	kept, dropped := a.Filter([]Field{F("description", String("d")), F("secret", Int(1)), F("tags", List())})
	assert.Len(t, kept, 2)
	assert.Equal(t, []string{"secret"}, dropped)
	assert.Equal(t, []string{"description", "tags"}, a.Names())

	def := DefaultAllowList()
	assert.True(t, def.Allows("lastUpdated"))
	assert.True(t, def.Allows("pricing"))
	assert.False(t, def.Allows("__proto__"))
}
