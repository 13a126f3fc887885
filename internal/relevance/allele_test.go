package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

func TestAlleleAlterations(t *testing.T) {
	catalog := makeCatalog(braf, "V600E, V600K, V600D, V600, K601E, V600_K601delinsEK")

	tests := []struct {
		name  string
		query *alteration.Alteration
		want  []string
	}{
		{"missense", query(braf, "V600E"), []string{"V600D", "V600K"}},
		{"positioned", query(braf, "V600"), []string{"V600D", "V600E", "V600K"}},
		{"incompatible reference residue", query(braf, "A600E"), nil},
		{"complex missense skips its own residues", query(braf, "V600_K601delinsEK"), []string{"K601E", "V600D", "V600K"}},
		{"not missense", query(braf, "E746_A750del"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AlleleAlterations(tt.query, alteration.GRCh37, catalog)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, notations(got))
		})
	}

	assert.Nil(t, AlleleAlterations(nil, alteration.GRCh37, catalog))
}

func TestAlleleAlterations_ABL1T315I(t *testing.T) {
	catalog := makeCatalog(abl1, "T315I, T315A, T315")
	assert.Empty(t, AlleleAlterations(query(abl1, "T315I"), alteration.GRCh37, catalog))
	assert.Empty(t, PositionedAlterations(query(abl1, "T315I"), alteration.GRCh37, catalog))
	assert.Equal(t, []string{"T315I"}, notations(AlleleAlterations(query(abl1, "T315A"), alteration.GRCh37, catalog)))
}

func TestAlleleAlterations_PDGFRAD842V(t *testing.T) {
	catalog := makeCatalog(pdgfra, "D842V, D842I, D842Y, D842H")

	for _, q := range []string{"D842I", "D842Y", "D842H", "D842"} {
		t.Run(q, func(t *testing.T) {
			got := AlleleAlterations(query(pdgfra, q), alteration.GRCh37, catalog)
			assert.NotEmpty(t, got)
			assert.NotContains(t, notations(got), "D842V")
		})
	}

	got := AlleleAlterations(query(pdgfra, "D842V"), alteration.GRCh37, catalog)
	assert.Equal(t, []string{"D842H", "D842I", "D842Y"}, notations(got))

	// The rule is specific to PDGFRA.
	other := makeCatalog(braf, "D842V, D842I")
	assert.Equal(t, []string{"D842V"}, notations(AlleleAlterations(query(braf, "D842I"), alteration.GRCh37, other)))
}

func TestAllMissenseAlleles(t *testing.T) {
	catalog := makeCatalog(braf, "V600E, grch38:V600K, V600, K601E")
	assert.Equal(t, []string{"V600E"}, notations(AllMissenseAlleles(alteration.GRCh37, 600, catalog)))
	assert.Equal(t, []string{"V600E", "V600K"}, notations(AllMissenseAlleles(alteration.GRCh38, 600, catalog)))
	assert.Empty(t, AllMissenseAlleles(alteration.GRCh37, 599, catalog))
}

func TestPositionedAlterations(t *testing.T) {
	catalog := makeCatalog(braf, "V600, V600E, K601, Amplification")
	assert.Equal(t, []string{"V600"}, notations(PositionedAlterations(query(braf, "V600E"), alteration.GRCh37, catalog)))
	assert.Empty(t, PositionedAlterations(query(braf, "A600E"), alteration.GRCh37, catalog))
	assert.Empty(t, PositionedAlterations(query(braf, "V600del"), alteration.GRCh37, catalog))
}

func TestRemoveAlternativeAllele(t *testing.T) {
	relevant := makeCatalog(braf, "V600E, V600K, V600, V600_K601delinsEK, Oncogenic Mutations")

	tests := []struct {
		name  string
		query *alteration.Alteration
		want  []string
	}{
		{"same residue kept", query(braf, "V600E"), []string{"V600E", "V600", "V600_K601delinsEK", "Oncogenic Mutations"}},
		{"different residue dropped", query(braf, "V600K"), []string{"V600K", "V600", "Oncogenic Mutations"}},
		{"complex query matches by offset", query(braf, "V600_K601delinsEK"), []string{"V600E", "V600", "V600_K601delinsEK", "Oncogenic Mutations"}},
		{"positioned missense query drops named residues", &alteration.Alteration{
			Gene:        braf,
			Notation:    "V600",
			RefResidues: "V",
			Start:       alteration.At(600),
			End:         alteration.At(600),
			Consequence: alteration.LookupConsequence(alteration.TermMissenseVariant),
			Genomes:     alteration.AllGenomes,
		}, []string{"V600", "Oncogenic Mutations"}},
		{"non-missense query untouched", query(braf, "Amplification"), []string{"V600E", "V600K", "V600", "V600_K601delinsEK", "Oncogenic Mutations"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemoveAlternativeAllele(tt.query, alteration.GRCh37, relevant)
			assert.Equal(t, tt.want, notations(got))
			assert.Len(t, relevant, 5, "input must not be modified")
		})
	}
}

func TestMissenseVariantAllele(t *testing.T) {
	delins := makeCatalog(braf, "V600_K601delinsEK")[0]
	v, ok := missenseVariantAllele(delins, 601)
	assert.True(t, ok)
	assert.Equal(t, "K", v)
	_, ok = missenseVariantAllele(delins, 602)
	assert.False(t, ok)

	v, ok = missenseVariantAllele(makeCatalog(braf, "V600E")[0], 700)
	assert.True(t, ok)
	assert.Equal(t, "E", v)

	_, ok = missenseVariantAllele(makeCatalog(braf, "V600")[0], 600)
	assert.False(t, ok)
}
