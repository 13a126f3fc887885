package relevance

import (
	"cmp"
	"slices"
	"strings"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

// SortByRange returns alts sorted by descending overlap with [start, end].
// Ties go to the narrower alteration, then to the lexically smaller notation.
// Alterations without a position sort last in their original order.
func SortByRange(alts []*alteration.Alteration, start, end alteration.Position) []*alteration.Alteration {
	out := slices.Clone(alts)
	qs, okS := start.Ordinal()
	qe, okE := end.Ordinal()
	if !okS || !okE {
		return out
	}

	slices.SortStableFunc(out, func(a, b *alteration.Alteration) int {
		as, ae, aok := bounds(a)
		bs, be, bok := bounds(b)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}
		oa := min(ae, qe) - max(as, qs)
		ob := min(be, qe) - max(bs, qs)
		if oa != ob {
			return cmp.Compare(ob, oa)
		}
		if c := cmp.Compare(ae-as, be-bs); c != 0 {
			return c
		}
		return strings.Compare(a.Notation, b.Notation)
	})
	return out
}

func bounds(a *alteration.Alteration) (start, end int, ok bool) {
	start, okS := a.Start.Ordinal()
	end, okE := a.End.Ordinal()
	return start, end, okS && okE
}

func sortByNotation(alts []*alteration.Alteration) {
	slices.SortStableFunc(alts, func(a, b *alteration.Alteration) int {
		return strings.Compare(a.Notation, b.Notation)
	})
}

// LookupVariant returns the alterations whose notation or display name
// contains query, ignoring case. exact is accepted for API compatibility and
// does not change the match.
func LookupVariant(query string, exact bool, catalog []*alteration.Alteration) []*alteration.Alteration {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	var out []*alteration.Alteration
	for _, c := range catalog {
		if strings.Contains(strings.ToLower(c.Notation), query) || strings.Contains(strings.ToLower(c.Name), query) {
			out = append(out, c)
		}
	}
	return out
}

// ExcludeVUS drops the alterations listed in vus.
func ExcludeVUS(alts, vus []*alteration.Alteration) []*alteration.Alteration {
	return RemoveAlterations(alts, vus)
}

// ExcludeInferred drops inferred mutation entries such as "Oncogenic Mutations".
func ExcludeInferred(alts []*alteration.Alteration) []*alteration.Alteration {
	var out []*alteration.Alteration
	for _, a := range alts {
		if !alteration.HasInferredPrefix(a.Notation) {
			out = append(out, a)
		}
	}
	return out
}

// ExcludePositioned drops positioned placeholders.
func ExcludePositioned(alts []*alteration.Alteration) []*alteration.Alteration {
	var out []*alteration.Alteration
	for _, a := range alts {
		if !a.IsPositioned() {
			out = append(out, a)
		}
	}
	return out
}

// FindOncogenicMutations returns the "Oncogenic Mutations" entries, with or
// without exclusion clauses.
func FindOncogenicMutations(catalog []*alteration.Alteration) []*alteration.Alteration {
	return alteration.FindByPrefix(alteration.OncogenicMutations, catalog)
}

// FindFusions returns the generic "Fusions" entries.
func FindFusions(catalog []*alteration.Alteration) []*alteration.Alteration {
	return alteration.FindByPrefix(alteration.Fusions, catalog)
}

// UniqueAlterations drops repeated alterations, keeping first occurrences.
func UniqueAlterations(alts []*alteration.Alteration) []*alteration.Alteration {
	seen := make(map[alteration.Key]bool, len(alts))
	var out []*alteration.Alteration
	for _, a := range alts {
		k := a.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, a)
	}
	return out
}

// RemoveAlterations returns list without the alterations in remove.
func RemoveAlterations(list, remove []*alteration.Alteration) []*alteration.Alteration {
	var out []*alteration.Alteration
	for _, a := range list {
		if !alteration.Contains(remove, a) {
			out = append(out, a)
		}
	}
	return out
}

// Names joins the notations of alts with ", ", optionally sorted.
func Names(alts []*alteration.Alteration, sorted bool) string {
	names := make([]string, 0, len(alts))
	for _, a := range alts {
		names = append(names, a.Notation)
	}
	if sorted {
		slices.Sort(names)
	}
	return strings.Join(names, ", ")
}
