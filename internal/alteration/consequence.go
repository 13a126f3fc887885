package alteration

import "strings"

// Impact levels for variant consequences.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
	ImpactModifier = "MODIFIER"
)

// Consequence terms (Sequence Ontology terms plus the catalog's own markers).
const (
	// HIGH impact
	TermStopGained        = "stop_gained"
	TermFrameshiftVariant = "frameshift_variant"
	TermStopLost          = "stop_lost"
	TermStartLost         = "start_lost"
	TermSpliceAcceptor    = "splice_acceptor_variant"
	TermSpliceDonor       = "splice_donor_variant"
	TermFeatureTruncation = "feature_truncation"

	// MODERATE impact
	TermMissenseVariant  = "missense_variant"
	TermInframeInsertion = "inframe_insertion"
	TermInframeDeletion  = "inframe_deletion"

	// LOW impact
	TermSynonymousVariant = "synonymous_variant"
	TermSpliceRegion      = "splice_region_variant"
	TermStopRetained      = "stop_retained_variant"
	TermStartRetained     = "start_retained_variant"

	// MODIFIER impact
	Term5PrimeUTR     = "5_prime_UTR_variant"
	Term3PrimeUTR     = "3_prime_UTR_variant"
	TermUpstreamGene  = "upstream_gene_variant"
	TermIntronVariant = "intron_variant"

	// Catalog markers: "any" is a wildcard, "NA" means no specific classification.
	TermAny = "any"
	TermNA  = "NA"
)

// Consequence is a controlled consequence term. The zero value means no
// consequence was assigned.
type Consequence struct {
	Term       string
	SpliceSite bool // splice acceptor/donor/region are interchangeable
	Impact     string
}

var consequences = func() map[string]Consequence {
	m := make(map[string]Consequence)
	add := func(impact string, splice bool, terms ...string) {
		for _, t := range terms {
			m[t] = Consequence{Term: t, SpliceSite: splice, Impact: impact}
		}
	}
	add(ImpactHigh, false, TermStopGained, TermFrameshiftVariant, TermStopLost, TermStartLost, TermFeatureTruncation)
	add(ImpactHigh, true, TermSpliceAcceptor, TermSpliceDonor)
	add(ImpactModerate, false, TermMissenseVariant, TermInframeInsertion, TermInframeDeletion)
	add(ImpactLow, false, TermSynonymousVariant, TermStopRetained, TermStartRetained)
	add(ImpactLow, true, TermSpliceRegion)
	add(ImpactModifier, false, Term5PrimeUTR, Term3PrimeUTR, TermUpstreamGene, TermIntronVariant, TermAny, TermNA)
	return m
}()

// LookupConsequence returns the registered consequence for term. Unknown
// terms are returned as a bare, non-splice consequence with MODIFIER impact.
// An empty term yields the zero Consequence.
func LookupConsequence(term string) Consequence {
	if term == "" {
		return Consequence{}
	}
	if c, ok := consequences[term]; ok {
		return c
	}
	return Consequence{Term: term, Impact: ImpactModifier}
}

// IsZero reports whether no consequence is assigned.
func (c Consequence) IsZero() bool { return c.Term == "" }

// Is reports whether the consequence carries the given term.
func (c Consequence) Is(term string) bool { return c.Term == term }

// Related reports whether two consequences are equivalent for relevance
// purposes. A missing consequence relates only to another missing one.
func (c Consequence) Related(o Consequence) bool {
	if c.IsZero() || o.IsZero() {
		return c.IsZero() && o.IsZero()
	}
	if c.SpliceSite {
		return o.SpliceSite
	}
	return c.Term == o.Term
}

// IsTruncating reports whether the consequence generally truncates the
// protein product.
func (c Consequence) IsTruncating() bool {
	switch c.Term {
	case TermStopGained, TermFrameshiftVariant, TermSpliceAcceptor, TermSpliceDonor, TermFeatureTruncation:
		return true
	}
	return false
}

// String returns the term, or "" for the zero value.
func (c Consequence) String() string { return c.Term }

// GetImpact returns the impact level for a given consequence type.
// For comma-separated consequences, returns the highest impact among all terms.
func GetImpact(consequence string) string {
	best := ImpactModifier
	for rest := consequence; rest != ""; {
		term := rest
		if i := strings.IndexByte(rest, ','); i >= 0 {
			term = rest[:i]
			rest = rest[i+1:]
		} else {
			rest = ""
		}
		impact := ImpactModifier
		if c, ok := consequences[term]; ok {
			impact = c.Impact
		}
		if ImpactRank(impact) > ImpactRank(best) {
			best = impact
		}
	}
	return best
}

// MostSevereTerm picks the highest-impact term from a comma-separated list.
// Ties keep the earliest term.
func MostSevereTerm(consequence string) string {
	var best string
	bestRank := -1
	for _, term := range strings.Split(consequence, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if r := ImpactRank(GetImpact(term)); r > bestRank {
			best, bestRank = term, r
		}
	}
	return best
}

// ImpactRank returns numeric rank for impact comparison (higher = more severe).
func ImpactRank(impact string) int {
	switch impact {
	case ImpactHigh:
		return 3
	case ImpactModerate:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}
