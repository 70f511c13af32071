// Package report summarizes a catalog: size per set, duplicate identifiers and
// identifier pairs close enough to confuse the fuzzy matcher.
package report

import (
	"cmp"
	"slices"

	"cardscan/pkg/catalog"
)

type SetCount struct {
	Set   string `json:"set"`
	Count int    `json:"count"`
}

// Duplicate is an identifier shared by more than one record.
type Duplicate struct {
	Identifier string   `json:"identifier"`
	Names      []string `json:"names"`
}

// Collision is a pair of distinct identifiers within fuzzy range of each
// other. A misread of one can resolve to the other.
type Collision struct {
	A        string `json:"a"`
	B        string `json:"b"`
	Distance int    `json:"distance"`
}

type Report struct {
	Source      string      `json:"source"`
	Records     int         `json:"records"`
	Identifiers int         `json:"identifiers"`
	MissingName int         `json:"missing_name"`
	Sets        []SetCount  `json:"sets"`
	Duplicates  []Duplicate `json:"duplicates"`
	Collisions  []Collision `json:"collisions"`
}

// Build computes the report. maxDistance bounds collision detection and
// should match the matcher's tolerance.
func Build(source string, records []catalog.Record, maxDistance int) Report {
	r := Report{Source: source, Records: len(records)}

	sets := map[string]int{}
	byID := map[string][]string{}
	var ids []string
	for _, rec := range records {
		sets[rec.Set]++
		if catalog.NormalizeName(rec.Name) == "" {
			r.MissingName++
		}
		id := catalog.NormalizeIdentifier(rec.Identifier)
		if _, ok := byID[id]; !ok {
			ids = append(ids, id)
		}
		byID[id] = append(byID[id], rec.Name)
	}
	r.Identifiers = len(ids)

	for set, n := range sets {
		r.Sets = append(r.Sets, SetCount{Set: set, Count: n})
	}
	slices.SortFunc(r.Sets, func(a, b SetCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Set, b.Set)
	})

	for _, id := range ids {
		if names := byID[id]; len(names) > 1 {
			r.Duplicates = append(r.Duplicates, Duplicate{Identifier: id, Names: names})
		}
	}

	r.Collisions = collisions(ids, maxDistance)
	return r
}

// collisions compares every pair of identifiers whose lengths are within
// maxDistance of each other.
func collisions(ids []string, maxDistance int) []Collision {
	if maxDistance <= 0 {
		return nil
	}
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b string) int {
		if c := cmp.Compare(len(a), len(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	var out []Collision
	for i, a := range sorted {
		for _, b := range sorted[i+1:] {
			if len(b)-len(a) > maxDistance {
				break
			}
			if d := catalog.Levenshtein(a, b); d <= maxDistance {
				out = append(out, Collision{A: a, B: b, Distance: d})
			}
		}
	}
	slices.SortStableFunc(out, func(x, y Collision) int { return cmp.Compare(x.Distance, y.Distance) })
	return out
}
