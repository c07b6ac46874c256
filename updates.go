package litpatch

import (
	"fmt"
	"sort"
)

// RecordUpdate carries the new field values for one record id.
type RecordUpdate struct {
	ID     string
	Fields []Field
}

// UpdateSet is an ordered list of record updates.
type UpdateSet []RecordUpdate

// Len returns the number of field values across all records.
func (u UpdateSet) Len() int {
	n := 0
	for _, r := range u {
		n += len(r.Fields)
	}
	return n
}

// IDs returns record ids in order.
func (u UpdateSet) IDs() []string {
	out := make([]string, 0, len(u))
	for _, r := range u {
		out = append(out, r.ID)
	}
	return out
}

// Merge folds repeated ids into the first occurrence and repeated field names
// into their first position, with the later value winning.
func (u UpdateSet) Merge() UpdateSet {
	pos := map[string]int{}
	var out UpdateSet
	for _, r := range u {
		i, ok := pos[r.ID]
		if !ok {
			pos[r.ID] = len(out)
			out = append(out, RecordUpdate{ID: r.ID})
			i = len(out) - 1
		}
		out[i].Fields = mergeFields(out[i].Fields, r.Fields)
	}
	return out
}

func mergeFields(dst, src []Field) []Field {
	for _, f := range src {
		replaced := false
		for i := range dst {
			if dst[i].Key == f.Key {
				dst[i].Value = f.Value
				replaced = true
				break
			}
		}
		if !replaced {
			dst = append(dst, f)
		}
	}
	return dst
}

// UpdatesFromMap converts plain decoded data. Ids and field names are sorted
// since Go maps carry no order.
func UpdatesFromMap(m map[string]map[string]any) (UpdateSet, error) {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make(UpdateSet, 0, len(ids))
	for _, id := range ids {
		v, err := ValueOf(m[id])
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", id, err)
		}
		out = append(out, RecordUpdate{ID: id, Fields: v.Fields()})
	}
	return out, nil
}

// AllowList is the static set of field names an update may touch.
type AllowList map[string]struct{}

// NewAllowList builds an allow-list from names.
func NewAllowList(names ...string) AllowList {
	a := make(AllowList, len(names))
	for _, n := range names {
		a[n] = struct{}{}
	}
	return a
}

// DefaultAllowList holds the fields of the AI tool record shape.
func DefaultAllowList() AllowList {
	return NewAllowList(
		"id", "name", "company", "category", "subCategory", "description",
		"longDescription", "coreFeatures", "uniqueSellingPoints", "features",
		"modelType", "contextWindow", "languages", "platforms", "pricing",
		"apiAccess", "freeTrialAvailable", "pricingDetails", "capabilities",
		"useCases", "limitations", "performance", "integrations", "sdks",
		"installation", "officialWebsite", "documentation", "apiDocs",
		"githubRepo", "communityForum", "communityResources", "tutorials",
		"releaseDate", "lastUpdated", "version", "popularity", "status",
		"userCount", "tags",
	)
}

// Allows reports whether name may be updated. A nil allow-list allows everything.
func (a AllowList) Allows(name string) bool {
	if a == nil {
		return true
	}
	_, ok := a[name]
	return ok
}

// Filter splits fields into the allowed ones and the names it dropped.
func (a AllowList) Filter(fields []Field) (kept []Field, dropped []string) {
	for _, f := range fields {
		if a.Allows(f.Key) {
			kept = append(kept, f)
		} else {
			dropped = append(dropped, f.Key)
		}
	}
	return kept, dropped
}

// Names returns the allowed names sorted.
func (a AllowList) Names() []string {
	out := make([]string, 0, len(a))
	for n := range a {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
