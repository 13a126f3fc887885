package alteration

import (
	"regexp"
	"strconv"
	"strings"
)

// Regexes for preprocessing and the notation grammar.
var (
	// V600 {excluding V600E; V600K}
	reExclusion = regexp.MustCompile(`(?i)^(.*)\{\s*(exclude|excluding)(.*)\}$`)
	// grch38:V600E
	reGenomePrefix = regexp.MustCompile(`(?i)((grch37|grch38):\s*)`)
	// V600E/K
	reSlashExpansion = regexp.MustCompile(`(?i)([A-Z][0-9]+)([^0-9/]+/.+)`)
	reDisplaySep     = regexp.MustCompile(`\s*;\s*`)
	reTruncating     = regexp.MustCompile(`^truncating mutations?$`)
	reHGVSg          = regexp.MustCompile(`(?i)^[\dXY]+:g\.\d+.*$`)
	reRangeInframe   = regexp.MustCompile(`^([0-9]+)_([0-9]+)(ins|del)(.*)$`)
)

// parsed holds the fields one grammar rule derives from a notation.
type parsed struct {
	consequence string
	ref         string
	variant     string
	start       Position
	end         Position
}

// rule is one step of the notation grammar. apply returns false when the
// captured numbers are unusable, in which case the next rule is tried.
type rule struct {
	name  string
	re    *regexp.Regexp
	apply func(m []string, p *parsed) bool
}

// rules are evaluated in order; the first that matches wins.
var rules = []rule{
	{
		// V600E, V600, IK744K, *757W, R248*
		name: "substitution",
		re:   regexp.MustCompile(`^([A-Z*]+)([0-9]+)([A-Z*?]*)$`),
		apply: func(m []string, p *parsed) bool {
			start, ok := atoi(m[2])
			if !ok {
				return false
			}
			p.ref, p.variant = m[1], m[3]
			p.start, p.end = At(start), At(start)
			refL, varL := len(p.ref), len(p.variant)
			switch {
			case p.ref == "*":
				p.consequence = TermStopLost
			case p.variant == "*":
				p.consequence = TermStopGained
			case p.ref == p.variant:
				p.consequence = TermSynonymousVariant
			case start == 1:
				p.consequence = TermStartLost
			case p.variant == "?":
				p.consequence = TermAny
			default:
				p.end = At(start + refL - 1)
				switch {
				case refL > 1 || varL > 1:
					switch {
					case refL > varL:
						p.consequence = TermInframeDeletion
					case refL < varL:
						p.consequence = TermInframeInsertion
					default:
						p.consequence = TermMissenseVariant
					}
				case refL == 1 && varL == 1:
					p.consequence = TermMissenseVariant
				default:
					p.consequence = TermNA
				}
			}
			return true
		},
	},
	{
		// E746_A750delinsQ, V600delinsEE, A767_V769insASV, D770del
		name: "range indel",
		re:   regexp.MustCompile(`^([A-Z]?)([0-9]+)(_[A-Z]?([0-9]+))?(delins|ins|del)([A-Z0-9]+)$`),
		apply: func(m []string, p *parsed) bool {
			start, ok := atoi(m[2])
			if !ok {
				return false
			}
			end := start
			if m[4] != "" {
				if end, ok = atoi(m[4]); !ok {
					return false
				}
			}
			if m[3] == "" {
				// reference residue only for single-position events
				p.ref = m[1]
			}
			p.start, p.end = At(start), At(end)
			switch m[5] {
			case "ins":
				p.consequence = TermInframeInsertion
			case "del":
				p.consequence = TermInframeDeletion
			default:
				switch net := len(m[6]) - (end - start + 1); {
				case net > 0:
					p.consequence = TermInframeInsertion
				case net == 0:
					p.consequence = TermMissenseVariant
				default:
					p.consequence = TermInframeDeletion
				}
			}
			return true
		},
	},
	{
		// X817_splice, 2023splice, X963_D964splice
		name: "splice",
		re:   regexp.MustCompile(`^[A-Z]?([0-9]+)(_[A-Z]?([0-9]+))?(_)?splice$`),
		apply: func(m []string, p *parsed) bool {
			start, ok := atoi(m[1])
			if !ok {
				return false
			}
			end := start
			if m[3] != "" {
				if end, ok = atoi(m[3]); !ok {
					return false
				}
			}
			p.start, p.end = At(start), At(end)
			p.consequence = TermSpliceRegion
			return true
		},
	},
	{
		// E746_A750del, V600_K601mis, 1011_1012fs
		name: "range keyword",
		re:   regexp.MustCompile(`^[A-Z]?([0-9]+)_[A-Z]?([0-9]+)(.+)$`),
		apply: func(m []string, p *parsed) bool {
			start, ok1 := atoi(m[1])
			end, ok2 := atoi(m[2])
			if !ok1 || !ok2 {
				return false
			}
			p.start, p.end = At(start), At(end)
			switch m[3] {
			case "mis":
				p.consequence = TermMissenseVariant
			case "ins", "dup":
				p.consequence = TermInframeInsertion
			case "del":
				p.consequence = TermInframeDeletion
			case "fs":
				p.consequence = TermFrameshiftVariant
			case "trunc":
				p.consequence = TermFeatureTruncation
			case "mut":
				p.consequence = TermAny
			}
			return true
		},
	},
	{
		// R248fs, Q61Rfs*12
		name: "frameshift",
		re:   regexp.MustCompile(`^([A-Z*])([0-9]+)[A-Z]?fs.*$`),
		apply: func(m []string, p *parsed) bool {
			start, ok := atoi(m[2])
			if !ok {
				return false
			}
			p.ref = m[1]
			p.start, p.end = At(start), At(start)
			p.consequence = TermFrameshiftVariant
			return true
		},
	},
	{
		// D770ins, 600dup, V600del, V600mut
		name: "position keyword",
		re:   regexp.MustCompile(`^([A-Z]+)?([0-9]+)(ins|del|dup|mut)$`),
		apply: func(m []string, p *parsed) bool {
			start, ok := atoi(m[2])
			if !ok {
				return false
			}
			p.ref = m[1]
			p.start, p.end = At(start), At(start)
			switch m[3] {
			case "ins", "dup":
				p.consequence = TermInframeInsertion
			case "del":
				p.consequence = TermInframeDeletion
			case "mut":
				p.consequence = TermAny
			}
			return true
		},
	},
	{
		// *959Qext*14, *315TextALGT*, *327Aext*?
		name: "stop extension",
		re:   regexp.MustCompile(`^(\*)([0-9]+)[A-Z]ext([A-Z]+)?\*([0-9]+)?(\?)?$`),
		apply: func(m []string, p *parsed) bool {
			start, ok := atoi(m[2])
			if !ok {
				return false
			}
			p.ref = m[1]
			p.start, p.end = At(start), At(start)
			p.consequence = TermStopLost
			return true
		},
	},
	{
		// V600=, *757=
		name: "silent",
		re:   regexp.MustCompile(`^([A-Z*])?([0-9]+)=$`),
		apply: func(m []string, p *parsed) bool {
			start, ok := atoi(m[2])
			if !ok {
				return false
			}
			p.ref, p.variant = m[1], m[1]
			p.start, p.end = At(start), At(start)
			if p.ref == "*" {
				p.consequence = TermStopRetained
			} else {
				p.consequence = TermSynonymousVariant
			}
			return true
		},
	},
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// classify runs the grammar over a preprocessed notation.
func classify(proteinChange string) parsed {
	p := parsed{consequence: TermNA, start: ProteinStart, end: ProteinEnd}
	for _, r := range rules {
		m := r.re.FindStringSubmatch(proteinChange)
		if m == nil {
			continue
		}
		candidate := parsed{consequence: TermNA, start: ProteinStart, end: ProteinEnd}
		if r.apply(m, &candidate) {
			p = candidate
			break
		}
	}
	if reTruncating.MatchString(strings.ToLower(proteinChange)) {
		p.consequence = TermFeatureTruncation
	}
	return p
}

// Annotate derives the structured fields of a from proteinChange. Fields
// already set on a are kept; only gaps are filled. A caller-declared
// consequence is kept unless it is "any", or a is a positioned placeholder
// declared as missense.
func Annotate(a *Alteration, proteinChange string) {
	if a == nil {
		return
	}

	proteinChange = strings.TrimPrefix(proteinChange, "p.")
	if i := strings.Index(proteinChange, "["); i >= 0 {
		proteinChange = proteinChange[:i]
	}

	var excludedStr string
	if m := reExclusion.FindStringSubmatch(proteinChange); m != nil {
		proteinChange = m[1]
		excludedStr = strings.TrimSpace(m[3])
	}
	proteinChange = strings.TrimSpace(proteinChange)

	p := classify(proteinChange)
	derived := LookupConsequence(p.consequence)

	if a.RefResidues == "" {
		a.RefResidues = p.ref
	}
	if a.VariantResidues == "" {
		a.VariantResidues = p.variant
	}
	a.Start = mergePosition(a.Start, p.start)
	a.End = mergePosition(a.End, p.end)

	switch {
	case a.Consequence.IsZero():
		a.Consequence = derived
	case !a.Consequence.Related(derived):
		if a.Consequence.Is(TermAny) {
			a.Consequence = derived
		}
		if a.IsPositioned() && a.Consequence.Is(TermMissenseVariant) {
			a.Consequence = derived
		}
	}

	if a.Notation == "" {
		a.Notation = proteinChange
	}
	switch {
	case a.Notation == "":
		switch {
		case a.Consequence.Is(TermSpliceRegion):
			a.Notation = spliceMutation
		case a.Consequence.Is(TermUpstreamGene):
			a.Notation = Promoter
		}
	case strings.EqualFold(a.Notation, "gain"):
		a.Notation = Amplification
	case strings.EqualFold(a.Notation, "loss"):
		a.Notation = Deletion
	}

	if a.Name == "" && a.Notation != "" {
		switch {
		case !a.IsPositioned():
			a.Name = a.Notation
		case excludedStr == "":
			a.Name = a.Notation + " Missense Mutations"
		default:
			a.Name = proteinChange + " Missense Mutations, excluding " + excludedStr
		}
	}

	if excludedStr != "" && a.Excluded == nil {
		a.Excluded = ParseMutationString(excludedStr, ";")
		for _, ex := range a.Excluded {
			ex.Gene = a.Gene
		}
	}

	if a.Type == "" {
		a.Type = TypeMutation
	}
	if a.Genomes.Empty() {
		a.Genomes = NewGenomeSet(DefaultReferenceGenome)
	}
}

// mergePosition keeps a caller-supplied bound unless it is unset, or a
// boundary that the notation pins to a concrete residue.
func mergePosition(cur, derived Position) Position {
	if !cur.IsSet() || (cur.IsBoundary() && !derived.IsBoundary()) {
		return derived
	}
	return cur
}

// ParseMutationString splits text on separator and annotates one alteration
// per mutation. Each part may carry a genome prefix ("grch38:"), a display
// name override ("[name]"), an exclusion clause ("{excluding ...}") and a
// trailing comment in parentheses. "V600E/K" expands to V600E and V600K.
func ParseMutationString(text, separator string) []*Alteration {
	text = trimComment(text)

	var out []*Alteration
	for _, part := range strings.Split(text, separator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		genomes := AllGenomes
		if m := reGenomePrefix.FindStringSubmatch(part); m != nil {
			genomes = 0
			if g, ok := ParseReferenceGenome(m[2]); ok {
				genomes = NewGenomeSet(g)
			}
			part = strings.ReplaceAll(part, m[1], "")
		}

		var proteinChange, displayName string
		if l := strings.Index(part, "["); l >= 0 {
			proteinChange = strings.TrimSpace(part[:l])
			rest := part[l+1:]
			if r := strings.Index(rest, "]"); r >= 0 {
				rest = rest[:r]
			}
			displayName = strings.TrimSpace(rest)
		} else {
			proteinChange = part
			displayName = displayExclusion(part)
		}
		proteinChange = trimComment(proteinChange)

		if m := reSlashExpansion.FindStringSubmatch(proteinChange); m != nil {
			for _, v := range strings.Split(m[2], "/") {
				out = append(out, &Alteration{
					Notation: m[1] + v,
					Name:     m[1] + v,
					Genomes:  genomes,
				})
			}
			continue
		}
		out = append(out, &Alteration{
			Notation: proteinChange,
			Name:     displayName,
			Genomes:  genomes,
		})
	}

	for _, a := range out {
		Annotate(a, a.Notation)
	}
	return out
}

// displayExclusion rewrites "V600 {excluding V600E; V600K; V600D}" as
// "V600 (excluding V600E, V600K and V600D)".
func displayExclusion(name string) string {
	left := strings.Index(name, "{")
	right := strings.Index(name, "}")
	if left <= 0 || right <= 0 || right < left {
		return name
	}
	body := name[left+1 : right]
	if locs := reDisplaySep.FindAllStringIndex(body, -1); len(locs) > 0 {
		last := locs[len(locs)-1]
		body = body[:last[0]] + " and " + body[last[1]:]
	}
	body = reDisplaySep.ReplaceAllString(body, ", ")
	return name[:left] + "(" + body + ")" + name[right+1:]
}

// trimComment drops a trailing parenthetical comment.
func trimComment(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ")") {
		if i := strings.LastIndex(s, "("); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// RemoveExclusionCriteria strips a trailing "{exclude ...}" clause.
func RemoveExclusionCriteria(s string) string {
	if m := reExclusion.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// HasExclusionCriteria reports whether s carries an exclusion clause.
func HasExclusionCriteria(s string) bool {
	return reExclusion.MatchString(s)
}

// ExclusionAlterations parses the body of the exclusion clause of s.
func ExclusionAlterations(s string) []*Alteration {
	m := reExclusion.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	return ParseMutationString(strings.TrimSpace(m[3]), ";")
}

// TrimAlterationName strips the HGVS "p." prefix.
func TrimAlterationName(s string) string {
	return strings.TrimPrefix(s, "p.")
}

// IsValidHGVSg does a basic sanity check of genomic HGVS text such as
// "7:g.140453136A>T".
func IsValidHGVSg(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && reHGVSg.MatchString(s)
}

// IsInframe reports whether a is an in-frame insertion or deletion.
func IsInframe(a *Alteration) bool {
	if a == nil {
		return false
	}
	return a.Consequence.Is(TermInframeInsertion) || a.Consequence.Is(TermInframeDeletion)
}

// IsRangeInframe reports whether a is in-frame and written as a bare
// residue range, e.g. "746_750del".
func IsRangeInframe(a *Alteration) bool {
	return IsInframe(a) && reRangeInframe.MatchString(a.Notation)
}

// NewQueryAlteration builds and annotates a query alteration. An empty
// consequence lets the notation decide; an unset end defaults to start; a
// zero genome means the default build.
func NewQueryAlteration(gene *Gene, text string, typ Type, consequence string, start, end Position, genome ReferenceGenome) *Alteration {
	a := &Alteration{
		Gene:     gene,
		Notation: TrimAlterationName(text),
		Type:     typ,
		Start:    start,
		End:      end,
	}
	if a.Type == "" {
		a.Type = TypeMutation
	}
	if consequence != "" {
		a.Consequence = LookupConsequence(consequence)
	}
	if !a.End.IsSet() {
		a.End = a.Start
	}
	if genome == 0 {
		genome = DefaultReferenceGenome
	}
	a.Genomes = NewGenomeSet(genome)
	Annotate(a, a.Notation)
	return a
}

// SetGene assigns g to each alteration and to its excluded alterations.
func SetGene(alts []*Alteration, g *Gene) {
	for _, a := range alts {
		a.Gene = g
		SetGene(a.Excluded, g)
	}
}
