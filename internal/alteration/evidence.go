package alteration

// EvidenceType classifies curated evidence.
type EvidenceType string

const (
	EvidenceOncogenic      EvidenceType = "ONCOGENIC"
	EvidenceMutationEffect EvidenceType = "MUTATION_EFFECT"
	EvidenceVUS            EvidenceType = "VUS"
	EvidenceGeneSummary    EvidenceType = "GENE_SUMMARY"
)

// Evidence links curated knowledge to one or more alterations of a gene.
type Evidence struct {
	ID          int
	UUID        string
	Gene        *Gene
	Type        EvidenceType
	KnownEffect string
	Alterations []*Alteration
}

// Covers reports whether the evidence applies to a.
func (e *Evidence) Covers(a *Alteration) bool {
	return Contains(e.Alterations, a)
}

// Drug is a catalog drug.
type Drug struct {
	ID   int
	Name string
}

// TumorType is a node of the tumor-type ontology. Main cancer types carry no
// code; subtypes do.
type TumorType struct {
	Code     string
	Name     string
	MainType string
	Level    int
}

// IsSubtype reports whether t is an ontology subtype rather than a main type.
func (t *TumorType) IsSubtype() bool { return t.Code != "" }
