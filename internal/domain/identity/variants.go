package identity

import (
	"sort"

	"github.com/ttbw/rangliste/internal/platform/textnorm"
)

// defaultVariantGroups lists given names that refer to the same person.
// A name may belong to several groups; equivalence is not transitive across
// groups.
var defaultVariantGroups = [][]string{
	{"marc", "mark"},
	{"luis", "louis"},
	{"michael", "mike", "micha"},
	{"alexander", "alex", "sascha"},
	{"alexandra", "alex"},
	{"johannes", "hannes", "johann"},
	{"maximilian", "max"},
	{"benjamin", "ben"},
	{"christian", "chris"},
	{"christopher", "christoph", "chris"},
	{"daniel", "dani"},
	{"dominik", "dominic"},
	{"elias", "elia"},
	{"felix", "feli"},
	{"jakob", "jacob"},
	{"jonathan", "jonny"},
	{"katharina", "kathrin", "katrin", "kati"},
	{"leonhard", "leonard", "leon"},
	{"matthias", "mathias", "matze"},
	{"nikolas", "nicolas", "niklas", "niclas"},
	{"philipp", "phillip", "philip"},
	{"raphael", "rafael"},
	{"sebastian", "basti"},
	{"stefan", "stephan"},
	{"tobias", "tobi"},
	{"valentin", "vali"},
}

// VariantTable answers whether two given names are known variants.
// Lookups use loose keys.
type VariantTable struct {
	groups map[string][]int
}

// NewVariantTable builds a table from groups of equivalent given names. A
// name may belong to several groups.
func NewVariantTable(groups [][]string) *VariantTable {
	t := &VariantTable{groups: make(map[string][]int)}
	for i, group := range groups {
		for _, name := range group {
			key := textnorm.Loose(name)
			if key == "" {
				continue
			}
			t.groups[key] = append(t.groups[key], i)
		}
	}
	return t
}

// DefaultVariants returns the built-in German nickname table.
func DefaultVariants() *VariantTable {
	return NewVariantTable(defaultVariantGroups)
}

// Equivalent reports whether two loose first-name keys share a group.
// Identical keys are always equivalent.
func (t *VariantTable) Equivalent(a, b string) bool {
	if a == b {
		return a != ""
	}
	if t == nil {
		return false
	}
	for _, ga := range t.groups[a] {
		for _, gb := range t.groups[b] {
			if ga == gb {
				return true
			}
		}
	}
	return false
}

// Variants returns every loose key sharing a group with key, key included,
// in sorted order.
func (t *VariantTable) Variants(key string) []string {
	if key == "" {
		return nil
	}
	set := map[string]struct{}{key: {}}
	if t != nil {
		for name, groups := range t.groups {
			for _, g := range groups {
				for _, kg := range t.groups[key] {
					if g == kg {
						set[name] = struct{}{}
					}
				}
			}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
