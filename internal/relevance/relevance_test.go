package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

var (
	braf   = &alteration.Gene{EntrezGeneID: 673, HugoSymbol: "BRAF", Oncogene: true}
	abl1   = &alteration.Gene{EntrezGeneID: 25, HugoSymbol: "ABL1", Oncogene: true}
	pdgfra = &alteration.Gene{EntrezGeneID: 5156, HugoSymbol: "PDGFRA", Oncogene: true}
	tp53   = &alteration.Gene{EntrezGeneID: 7157, HugoSymbol: "TP53", TSG: true}
)

// makeCatalog parses a comma-separated curation string into catalog entries of gene.
func makeCatalog(gene *alteration.Gene, text string) []*alteration.Alteration {
	alts := alteration.ParseMutationString(text, ",")
	alteration.SetGene(alts, gene)
	return alts
}

func query(gene *alteration.Gene, text string) *alteration.Alteration {
	return alteration.NewQueryAlteration(gene, text, "", "", alteration.Position{}, alteration.Position{}, alteration.GRCh37)
}

func notations(alts []*alteration.Alteration) []string {
	out := make([]string, 0, len(alts))
	for _, a := range alts {
		out = append(out, a.Notation)
	}
	return out
}

func TestFindOverlap(t *testing.T) {
	catalog := makeCatalog(braf, "V600E, V600, Truncating Mutations, Amplification, E746_A750del, X817_splice, grch38:V600K")
	missense := alteration.LookupConsequence(alteration.TermMissenseVariant)
	na := alteration.LookupConsequence(alteration.TermNA)

	tests := []struct {
		name        string
		gene        *alteration.Gene
		genome      alteration.ReferenceGenome
		consequence alteration.Consequence
		start, end  alteration.Position
		want        []string
	}{
		{"single position missense", braf, alteration.GRCh37, missense, alteration.At(600), alteration.At(600), []string{"V600E"}},
		{"any genome", braf, 0, missense, alteration.At(600), alteration.At(600), []string{"V600E", "V600K"}},
		{"genome restricted", braf, alteration.GRCh38, missense, alteration.At(600), alteration.At(600), []string{"V600E", "V600K"}},
		{"concrete query uses interval overlap", braf, alteration.GRCh37, na, alteration.At(600), alteration.At(600), []string{"V600", "Amplification"}},
		{"range overlap", braf, alteration.GRCh37, alteration.LookupConsequence(alteration.TermInframeDeletion), alteration.At(747), alteration.At(760), []string{"E746_A750del"}},
		{"splice family", braf, alteration.GRCh37, alteration.LookupConsequence(alteration.TermSpliceDonor), alteration.At(817), alteration.At(817), []string{"X817_splice"}},
		{"other gene", tp53, alteration.GRCh37, missense, alteration.At(600), alteration.At(600), nil},
		{"unset query range", braf, alteration.GRCh37, missense, alteration.Position{}, alteration.At(600), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindOverlap(catalog, tt.gene, tt.genome, tt.consequence, tt.start, tt.end)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, notations(got))
		})
	}
}

// A whole-protein query must lie inside the candidate; it does not overlap
// every positioned entry it trivially intersects.
func TestFindOverlap_UnanchoredQueryUsesContainment(t *testing.T) {
	catalog := makeCatalog(braf, "V600, Amplification, Deletion")
	na := alteration.LookupConsequence(alteration.TermNA)

	got := FindOverlap(catalog, braf, alteration.GRCh37, na, alteration.ProteinStart, alteration.ProteinEnd)
	assert.Equal(t, []string{"Amplification", "Deletion"}, notations(got))

	got = FindOverlap(catalog, braf, alteration.GRCh37, na, alteration.At(590), alteration.ProteinEnd)
	assert.Equal(t, []string{"Amplification", "Deletion"}, notations(got))

	// The same candidate is found through interval overlap by a concrete query.
	got = FindOverlap(catalog, braf, alteration.GRCh37, na, alteration.At(1), alteration.At(1))
	assert.Equal(t, []string{"Amplification", "Deletion"}, notations(got))
}

func TestFindOverlap_NullConsequence(t *testing.T) {
	bare := &alteration.Alteration{Gene: braf, Notation: "600", Start: alteration.At(600), End: alteration.At(600), Genomes: alteration.AllGenomes}
	catalog := append(makeCatalog(braf, "V600E"), bare)

	got := FindOverlap(catalog, braf, alteration.GRCh37, alteration.Consequence{}, alteration.At(600), alteration.At(600))
	require.Len(t, got, 1)
	assert.Same(t, bare, got[0])
}

func TestRelevantAlterations(t *testing.T) {
	catalog := makeCatalog(braf, "V600E, V600K, V600 {excluding V600K}, Oncogenic Mutations, Truncating Mutations, Amplification")

	tests := []struct {
		name  string
		query *alteration.Alteration
		want  []string
	}{
		{"missense", query(braf, "V600E"), []string{"V600E", "V600K", "V600 {excluding V600K}"}},
		{"exclusion clause", query(braf, "V600K"), []string{"V600K", "V600E"}},
		{"truncating", query(braf, "K601fs"), []string{"Truncating Mutations"}},
		{"truncating marker", query(braf, "Truncating Mutations"), []string{"Truncating Mutations"}},
		{"whole-protein marker by notation", query(braf, "amplification"), []string{"Amplification"}},
		{"inferred by notation", query(braf, "Oncogenic Mutations"), []string{"Oncogenic Mutations"}},
		{"other gene", query(tp53, "V600E"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelevantAlterations(tt.query, alteration.GRCh37, catalog)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, notations(got))
		})
	}

	assert.Nil(t, RelevantAlterations(nil, alteration.GRCh37, catalog))
	assert.Nil(t, RelevantAlterations(&alteration.Alteration{Notation: "V600E"}, alteration.GRCh37, catalog))
}

func TestRelevantAlterations_RevertedFusion(t *testing.T) {
	catalog := makeCatalog(abl1, "ABL1-BCR Fusion, Fusions, T315I")

	got := RelevantAlterations(query(abl1, "BCR-ABL1 Fusion"), alteration.GRCh37, catalog)
	assert.Equal(t, []string{"ABL1-BCR Fusion"}, notations(got))

	rev := RevertedFusion(query(abl1, "BCR-ABL1 Fusion"), alteration.GRCh37, catalog)
	require.NotNil(t, rev)
	assert.Equal(t, "ABL1-BCR Fusion", rev.Notation)
	assert.Nil(t, RevertedFusion(query(abl1, "T315I"), alteration.GRCh37, catalog))
}

func TestFindAlteration(t *testing.T) {
	catalog := makeCatalog(braf, "V600E, grch38:V600K")
	assert.NotNil(t, FindAlteration(braf, alteration.GRCh37, "V600E", catalog))
	assert.Nil(t, FindAlteration(braf, alteration.GRCh37, "V600K", catalog))
	assert.NotNil(t, FindAlteration(braf, 0, "V600K", catalog))
	assert.Nil(t, FindAlteration(nil, 0, "V600E", catalog))
}
