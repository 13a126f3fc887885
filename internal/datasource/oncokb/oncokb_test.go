package oncokb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geneTypeTSV = "Hugo Symbol\tEntrez Gene ID\tGene Type\n" +
	"ABL1\t25\tONCOGENE\n" +
	"TP53\t7157\tTSG\n" +
	"BRCA1\t672\tTSG\n" +
	"NOTCH1\t4851\tONCOGENE_AND_TSG\n" +
	"\t1\tTSG\n" +
	"BAD\tx\tTSG\n"

const yesNoTSV = "Hugo Symbol\tEntrez Gene ID\tIs Oncogene\tIs Tumor Suppressor Gene\n" +
	"KRAS\t3845\tYes\tNo\n" +
	"PTEN\t5728\tNo\tYes\n"

func TestLoadCancerGeneList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cancerGeneList.tsv")
	require.NoError(t, os.WriteFile(path, []byte(geneTypeTSV), 0644))

	cgl, err := LoadCancerGeneList(path)
	require.NoError(t, err)
	require.Len(t, cgl, 4, "rows without symbol or id are skipped")

	tests := []struct {
		gene     string
		entrez   int
		oncogene bool
		tsg      bool
	}{
		{"ABL1", 25, true, false},
		{"TP53", 7157, false, true},
		{"BRCA1", 672, false, true},
		{"NOTCH1", 4851, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.gene, func(t *testing.T) {
			g, ok := cgl[tt.gene]
			require.True(t, ok, "gene %s should be in cancer gene list", tt.gene)
			assert.Equal(t, tt.entrez, g.EntrezGeneID)
			assert.Equal(t, tt.oncogene, g.Oncogene)
			assert.Equal(t, tt.tsg, g.TSG)
		})
	}

	genes := cgl.Genes()
	require.Len(t, genes, 4)
	assert.Equal(t, "ABL1", genes[0].HugoSymbol)
	assert.Equal(t, "TP53", genes[3].HugoSymbol)
}

func TestParseCancerGeneList_YesNoColumns(t *testing.T) {
	cgl, err := ParseCancerGeneList(strings.NewReader(yesNoTSV))
	require.NoError(t, err)
	assert.True(t, cgl["KRAS"].Oncogene)
	assert.False(t, cgl["KRAS"].TSG)
	assert.True(t, cgl["PTEN"].TSG)
}

func TestParseCancerGeneList_MissingColumns(t *testing.T) {
	_, err := ParseCancerGeneList(strings.NewReader("Hugo Symbol\tGene Type\nTP53\tTSG\n"))
	assert.ErrorContains(t, err, "Entrez Gene ID")

	_, err = ParseCancerGeneList(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty")
}

func TestLoadCancerGeneList_NotFound(t *testing.T) {
	_, err := LoadCancerGeneList("/nonexistent/path.tsv")
	assert.Error(t, err)
}

func TestCancerGeneList_IsCancerGene(t *testing.T) {
	cgl, err := ParseCancerGeneList(strings.NewReader(geneTypeTSV))
	require.NoError(t, err)
	assert.True(t, cgl.IsCancerGene("TP53"))
	assert.False(t, cgl.IsCancerGene("UNKNOWN"))
}
