// Package relevance relates query alterations to the curated alterations of
// a gene: positional overlap, allele equivalence, fusion reversion and
// exclusion criteria. Every function is a pure computation over an explicitly
// supplied catalog.
package relevance

import (
	"strings"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

// FindOverlap returns the catalog alterations of gene whose consequence is
// related to consequence, whose genome set holds genome (any build when
// genome is zero) and whose range meets [start, end].
//
// A query range touching a protein boundary is a whole-protein marker: it
// only matches candidates whose range contains it. Any other query matches
// candidates it intersects.
func FindOverlap(catalog []*alteration.Alteration, gene *alteration.Gene, genome alteration.ReferenceGenome,
	consequence alteration.Consequence, start, end alteration.Position) []*alteration.Alteration {
	if gene == nil || !start.IsSet() || !end.IsSet() {
		return nil
	}
	unanchored := start.IsBoundary() || end.IsBoundary()

	var out []*alteration.Alteration
	for _, c := range catalog {
		if !alteration.SameGene(c.Gene, gene) || !consequence.Related(c.Consequence) {
			continue
		}
		if genome != 0 && !c.Genomes.Contains(genome) {
			continue
		}
		if !c.Start.IsSet() || !c.End.IsSet() {
			continue
		}
		if unanchored {
			if start.Compare(c.Start) >= 0 && end.Compare(c.End) <= 0 {
				out = append(out, c)
			}
			continue
		}
		if end.Compare(c.Start) >= 0 && start.Compare(c.End) <= 0 {
			out = append(out, c)
		}
	}
	return out
}

// RelevantAlterations returns the catalog alterations that apply to query:
// entries with the same notation, positional overlaps, positioned
// placeholders at a missense position and, for truncating variants, the
// gene's "Truncating Mutations". Entries whose exclusion clause names the
// query are dropped. For a two-gene fusion the entries relevant to the
// reverse-oriented fusion are added.
func RelevantAlterations(query *alteration.Alteration, genome alteration.ReferenceGenome, catalog []*alteration.Alteration) []*alteration.Alteration {
	if query == nil || query.Gene == nil {
		return nil
	}
	out := relevant(query, genome, catalog)
	if alteration.IsFusion(query.Notation) {
		if rev := RevertedFusion(query, genome, catalog); rev != nil {
			out = append(out, relevant(rev, genome, catalog)...)
		}
	}
	return UniqueAlterations(out)
}

func relevant(query *alteration.Alteration, genome alteration.ReferenceGenome, catalog []*alteration.Alteration) []*alteration.Alteration {
	var out []*alteration.Alteration
	for _, c := range catalog {
		if sameNotation(c, query, genome) {
			out = append(out, c)
		}
	}

	if !isNonPositional(query) {
		for _, c := range FindOverlap(catalog, query.Gene, genome, query.Consequence, query.Start, query.End) {
			// Whole-protein markers such as "Amplification" relate by notation only.
			if isNonPositional(c) {
				continue
			}
			out = append(out, c)
		}
		out = append(out, PositionedAlterations(query, genome, catalog)...)
	}

	if query.Consequence.IsTruncating() {
		for _, c := range catalog {
			if strings.EqualFold(c.Notation, alteration.TruncatingMutations) && inScope(c, query.Gene, genome) {
				out = append(out, c)
			}
		}
	}

	kept := out[:0]
	for _, c := range out {
		if !excludes(c, query) {
			kept = append(kept, c)
		}
	}
	return kept
}

// RevertedFusion returns the catalog entry for the reverse-oriented fusion
// name of query, e.g. "ABL1-BCR Fusion" for "BCR-ABL1 Fusion", or nil.
func RevertedFusion(query *alteration.Alteration, genome alteration.ReferenceGenome, catalog []*alteration.Alteration) *alteration.Alteration {
	name := alteration.RevertFusionName(query.Notation)
	if name == "" {
		return nil
	}
	for _, c := range catalog {
		if strings.EqualFold(c.Notation, name) && inScope(c, query.Gene, genome) {
			return c
		}
	}
	return nil
}

// FindAlteration returns the catalog mutation of gene with the given
// notation, or nil.
func FindAlteration(gene *alteration.Gene, genome alteration.ReferenceGenome, notation string, catalog []*alteration.Alteration) *alteration.Alteration {
	if gene == nil {
		return nil
	}
	for _, c := range catalog {
		if c.Type == alteration.TypeMutation && c.Notation == notation && inScope(c, gene, genome) {
			return c
		}
	}
	return nil
}

func inScope(c *alteration.Alteration, gene *alteration.Gene, genome alteration.ReferenceGenome) bool {
	return alteration.SameGene(c.Gene, gene) && (genome == 0 || c.Genomes.Contains(genome))
}

func sameNotation(c, query *alteration.Alteration, genome alteration.ReferenceGenome) bool {
	return strings.EqualFold(c.Notation, query.Notation) && inScope(c, query.Gene, genome)
}

// isNonPositional reports whether a spans the whole protein without a
// specific consequence.
func isNonPositional(a *alteration.Alteration) bool {
	if !a.Start.IsBoundary() || !a.End.IsBoundary() {
		return false
	}
	return a.Consequence.IsZero() || a.Consequence.Is(alteration.TermNA)
}

// excludes reports whether the exclusion clause of c names query, either by
// notation or by a positioned placeholder at the query's position.
func excludes(c, query *alteration.Alteration) bool {
	for _, x := range c.Excluded {
		if strings.EqualFold(x.Notation, query.Notation) {
			return true
		}
		if x.IsPositioned() && query.IsSinglePosition() && x.Start.Compare(query.Start) == 0 {
			return true
		}
	}
	return false
}
