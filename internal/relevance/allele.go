package relevance

import (
	"regexp"
	"slices"
	"strings"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

// Genes and variants with curated allele rules.
const (
	pdgfraEntrezGeneID = 5156
	pdgfraD842V        = "D842V"
	abl1Symbol         = "ABL1"
	abl1T315I          = "T315I"
)

var reDelinsAllele = regexp.MustCompile(`.*delins(\w+)`)

func isABL1T315I(a *alteration.Alteration) bool {
	return a.Gene != nil && a.Gene.HugoSymbol == abl1Symbol && a.Notation == abl1T315I
}

// AlleleAlterations returns the single-residue missense catalog entries at
// the position of query that are alternative alleles of it: reference residue
// compatible or unspecified, not query itself, and not one residue of the
// complex substitution query already spells out. PDGFRA D842V is never an
// alternative allele of another variant. The result is sorted by notation.
func AlleleAlterations(query *alteration.Alteration, genome alteration.ReferenceGenome, catalog []*alteration.Alteration) []*alteration.Alteration {
	if query == nil || query.Consequence.IsZero() {
		return nil
	}
	if !query.IsPositioned() && !query.Consequence.Is(alteration.TermMissenseVariant) {
		return nil
	}
	if isABL1T315I(query) {
		return nil
	}

	missense := alteration.LookupConsequence(alteration.TermMissenseVariant)
	overlaps := FindOverlap(catalog, query.Gene, genome, missense, query.Start, query.End)
	complexParts := alteration.DecomposeComplexMissense(query.Notation)

	var alleles []*alteration.Alteration
	for _, c := range overlaps {
		if !c.IsSinglePosition() || isSelf(c, query) {
			continue
		}
		if query.RefResidues != "" && c.RefResidues != "" && c.RefResidues != query.RefResidues {
			continue
		}
		if reproducesComplexPart(c, complexParts) {
			continue
		}
		alleles = append(alleles, c)
	}

	if query.Gene != nil && query.Gene.EntrezGeneID == pdgfraEntrezGeneID && query.Notation != pdgfraD842V {
		alleles = slices.DeleteFunc(alleles, func(a *alteration.Alteration) bool {
			return a.Notation == pdgfraD842V
		})
	}

	sortByNotation(alleles)
	return alleles
}

func isSelf(c, query *alteration.Alteration) bool {
	return c.Equal(query) || (alteration.SameGene(c.Gene, query.Gene) && strings.EqualFold(c.Notation, query.Notation))
}

func reproducesComplexPart(c *alteration.Alteration, parts []*alteration.Alteration) bool {
	for _, p := range parts {
		name := c.Start.String() + c.VariantResidues
		if p.RefResidues != "" {
			name = c.RefResidues + name
		}
		if name == p.Notation {
			return true
		}
	}
	return false
}

// AllMissenseAlleles returns the missense catalog entries starting at position.
func AllMissenseAlleles(genome alteration.ReferenceGenome, position int, catalog []*alteration.Alteration) []*alteration.Alteration {
	var out []*alteration.Alteration
	for _, c := range catalog {
		if !c.Genomes.Contains(genome) || !c.Consequence.Is(alteration.TermMissenseVariant) {
			continue
		}
		if v, ok := c.Start.Value(); ok && v == position {
			out = append(out, c)
		}
	}
	return out
}

// PositionedAlterations returns the positioned placeholders ("V600") at the
// position of a missense query whose reference residue is compatible.
func PositionedAlterations(query *alteration.Alteration, genome alteration.ReferenceGenome, catalog []*alteration.Alteration) []*alteration.Alteration {
	if query == nil || isABL1T315I(query) {
		return nil
	}
	if !query.Consequence.Is(alteration.TermMissenseVariant) || query.Start.Kind() != alteration.PositionAt {
		return nil
	}

	na := alteration.LookupConsequence(alteration.TermNA)
	var out []*alteration.Alteration
	for _, c := range FindOverlap(catalog, query.Gene, genome, na, query.Start, query.End) {
		if !c.IsPositioned() {
			continue
		}
		if query.RefResidues != "" && c.RefResidues != query.RefResidues {
			continue
		}
		out = append(out, c)
	}
	return out
}

// RemoveAlternativeAllele returns relevant without the missense entries that
// are provably a different allele from a missense query: at every overlapping
// position the variant residue differs. Entries whose residue cannot be
// resolved are kept. A positioned query ("V600" declared missense) drops
// every overlapping entry that names a variant residue. relevant is not
// modified.
func RemoveAlternativeAllele(query *alteration.Alteration, genome alteration.ReferenceGenome, relevant []*alteration.Alteration) []*alteration.Alteration {
	out := slices.Clone(relevant)
	if query == nil || !query.Consequence.Is(alteration.TermMissenseVariant) {
		return out
	}

	positional := query.VariantResidues == "" && query.IsSinglePosition()
	drop := make(map[*alteration.Alteration]bool)
	for _, allele := range FindOverlap(relevant, query.Gene, genome, query.Consequence, query.Start, query.End) {
		if positional && allele.VariantResidues != "" {
			drop[allele] = true
			continue
		}
		if !allele.Consequence.Is(alteration.TermMissenseVariant) {
			continue
		}
		if !sameAllele(query, allele) {
			drop[allele] = true
		}
	}

	return slices.DeleteFunc(out, func(a *alteration.Alteration) bool { return drop[a] })
}

// sameAllele reports whether allele may carry the same variant residue as
// query at some overlapping position.
func sameAllele(query, allele *alteration.Alteration) bool {
	qStart, ok := query.Start.Value()
	if !ok {
		return true
	}
	qEnd, ok := query.End.Value()
	if !ok {
		return true
	}

	if query.IsSinglePosition() && query.VariantResidues != "" {
		if allele.IsSinglePosition() {
			return strings.EqualFold(query.VariantResidues, allele.VariantResidues)
		}
		v, ok := missenseVariantAllele(allele, qStart)
		return !ok || strings.EqualFold(query.VariantResidues, v)
	}

	for pos := qStart; pos <= qEnd; pos++ {
		qv, ok := missenseVariantAllele(query, pos)
		if !ok {
			continue
		}
		if allele.IsSinglePosition() {
			if ap, _ := allele.Start.Value(); ap == pos && strings.EqualFold(qv, allele.VariantResidues) {
				return true
			}
			continue
		}
		if av, ok := missenseVariantAllele(allele, pos); !ok || strings.EqualFold(qv, av) {
			return true
		}
	}
	return false
}

// missenseVariantAllele returns the variant residue a carries at position:
// the matching letter of a delins sequence, offset from a's start, or the
// first variant residue otherwise.
func missenseVariantAllele(a *alteration.Alteration, position int) (string, bool) {
	if m := reDelinsAllele.FindStringSubmatch(a.Notation); m != nil {
		start, ok := a.Start.Value()
		if !ok {
			return "", false
		}
		i := position - start
		if i < 0 || i >= len(m[1]) {
			return "", false
		}
		return m[1][i : i+1], true
	}
	if a.VariantResidues != "" {
		return a.VariantResidues[:1], true
	}
	return "", false
}
