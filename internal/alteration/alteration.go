// Package alteration parses protein-change notation into structured
// alteration records and holds the catalog data model.
package alteration

import (
	"strings"
)

// Gene is a catalog gene. Identity is the Entrez gene id; the Hugo symbol
// may change over time.
type Gene struct {
	EntrezGeneID int
	HugoSymbol   string
	Oncogene     bool
	TSG          bool
}

// SameGene reports whether a and b denote the same gene.
func SameGene(a, b *Gene) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.EntrezGeneID == b.EntrezGeneID
}

// ReferenceGenome is a genome build. The zero value means unspecified.
type ReferenceGenome uint8

const (
	GRCh37 ReferenceGenome = 1 << iota
	GRCh38
)

// DefaultReferenceGenome applies when an alteration names no build.
const DefaultReferenceGenome = GRCh37

func (g ReferenceGenome) String() string {
	switch g {
	case GRCh37:
		return "GRCh37"
	case GRCh38:
		return "GRCh38"
	}
	return ""
}

// ParseReferenceGenome parses a build name case-insensitively.
func ParseReferenceGenome(s string) (ReferenceGenome, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "grch37":
		return GRCh37, true
	case "grch38":
		return GRCh38, true
	}
	return 0, false
}

// GenomeSet is a set of reference genome builds.
type GenomeSet uint8

// AllGenomes holds every supported build.
const AllGenomes = GenomeSet(GRCh37 | GRCh38)

// NewGenomeSet returns a set holding the given builds.
func NewGenomeSet(gs ...ReferenceGenome) GenomeSet {
	var s GenomeSet
	for _, g := range gs {
		s |= GenomeSet(g)
	}
	return s
}

// Contains reports whether g is in the set.
func (s GenomeSet) Contains(g ReferenceGenome) bool { return g != 0 && s&GenomeSet(g) != 0 }

// Empty reports whether the set holds no build.
func (s GenomeSet) Empty() bool { return s == 0 }

// List returns the builds in the set in a fixed order.
func (s GenomeSet) List() []ReferenceGenome {
	var out []ReferenceGenome
	for _, g := range []ReferenceGenome{GRCh37, GRCh38} {
		if s.Contains(g) {
			out = append(out, g)
		}
	}
	return out
}

func (s GenomeSet) String() string {
	names := make([]string, 0, 2)
	for _, g := range s.List() {
		names = append(names, g.String())
	}
	return strings.Join(names, ",")
}

// ParseGenomeSet parses a comma-separated list of builds, ignoring unknown names.
func ParseGenomeSet(s string) GenomeSet {
	var set GenomeSet
	for _, part := range strings.Split(s, ",") {
		if g, ok := ParseReferenceGenome(part); ok {
			set |= GenomeSet(g)
		}
	}
	return set
}

// Type is the alteration type.
type Type string

const (
	TypeMutation             Type = "MUTATION"
	TypeCopyNumberAlteration Type = "COPY_NUMBER_ALTERATION"
	TypeStructuralVariant    Type = "STRUCTURAL_VARIANT"
	TypeFusion               Type = "FUSION"
	TypeExpression           Type = "EXPRESSION"
)

// Alteration is a structured protein alteration. Query alterations are built
// by the parser and discarded; catalog alterations come from the store.
type Alteration struct {
	ID              int
	Gene            *Gene
	Type            Type
	Notation        string // canonical alteration text
	Name            string // display name, may embed an exclusion clause
	Start           Position
	End             Position
	RefResidues     string
	VariantResidues string
	Consequence     Consequence
	Genomes         GenomeSet
	Excluded        []*Alteration
}

// Key is the catalog identity of an alteration.
type Key struct {
	EntrezGeneID int
	Type         Type
	Genomes      GenomeSet
	Notation     string
}

// Key returns the catalog identity of a.
func (a *Alteration) Key() Key {
	k := Key{Type: a.Type, Genomes: a.Genomes, Notation: a.Notation}
	if a.Gene != nil {
		k.EntrezGeneID = a.Gene.EntrezGeneID
	}
	return k
}

// Equal reports whether a and b share the same catalog identity.
func (a *Alteration) Equal(b *Alteration) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Key() == b.Key()
}

// IsPositioned reports whether a is a "any variant at this position"
// placeholder such as "V600".
func (a *Alteration) IsPositioned() bool {
	if a == nil || !a.Start.IsSet() || !a.End.IsSet() {
		return false
	}
	if a.Start.Kind() != PositionAt || a.Start.Compare(a.End) != 0 {
		return false
	}
	if len(a.RefResidues) != 1 || a.VariantResidues != "" {
		return false
	}
	return a.Consequence.Is(TermNA) || a.Consequence.Is(TermMissenseVariant)
}

// IsSinglePosition reports whether a spans exactly one concrete residue.
func (a *Alteration) IsSinglePosition() bool {
	return a.Start.Kind() == PositionAt && a.Start.Compare(a.End) == 0
}

// Clone returns a shallow copy of a. The gene and excluded alterations are shared.
func (a *Alteration) Clone() *Alteration {
	c := *a
	if a.Excluded != nil {
		c.Excluded = append([]*Alteration(nil), a.Excluded...)
	}
	return &c
}

func (a *Alteration) String() string {
	if a.Gene != nil && a.Gene.HugoSymbol != "" {
		return a.Gene.HugoSymbol + " " + a.Notation
	}
	return a.Notation
}

// Contains reports whether list holds an alteration with the same identity as a.
func Contains(list []*Alteration, a *Alteration) bool {
	for _, x := range list {
		if x.Equal(a) {
			return true
		}
	}
	return false
}
