package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

var braf = &alteration.Gene{EntrezGeneID: 673, HugoSymbol: "BRAF", Oncogene: true}

func parse(t *testing.T, text string) *alteration.Alteration {
	t.Helper()
	alts := alteration.ParseMutationString(text, ",")
	require.Len(t, alts, 1)
	alteration.SetGene(alts, braf)
	return alts[0]
}

func writeRecords(t *testing.T, records ...*Record) []string {
	t.Helper()
	var buf bytes.Buffer
	w := NewTabWriter(&buf)
	require.NoError(t, w.WriteHeader())
	for _, r := range records {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Flush())
	return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
}

func TestTabWriter_WriteHeader(t *testing.T) {
	lines := writeRecords(t)
	require.Len(t, lines, 1)

	for _, col := range []string{"#Input", "Gene", "Alteration", "Consequence", "IMPACT", "Relevant_alterations", "Oncogenic"} {
		assert.Contains(t, lines[0], col)
	}
}

func TestTabWriter_Write_V600E(t *testing.T) {
	v600e := parse(t, "V600E")
	lines := writeRecords(t, &Record{
		Input:      "V600E",
		Alteration: v600e,
		Relevant:   []*alteration.Alteration{parse(t, "V600"), v600e},
		Oncogenic:  "yes",
		Highest:    "Oncogenic",
	})
	require.Len(t, lines, 2)

	fields := strings.Split(lines[1], "\t")
	header := strings.Split(lines[0], "\t")
	require.Len(t, fields, len(header))

	assert.Equal(t, []string{
		"V600E",
		"BRAF",
		"V600E",
		"MUTATION",
		"missense_variant",
		"MODERATE",
		"600",
		"600",
		"V",
		"E",
		"GRCh37,GRCh38",
		"-",
		"V600, V600E",
		"yes",
		"Oncogenic",
	}, fields)
}

func TestTabWriter_Write_Exclusion(t *testing.T) {
	lines := writeRecords(t, &Record{
		Input:      "V600 {excluding V600E}",
		Alteration: parse(t, "V600 {excluding V600E}"),
	})
	require.Len(t, lines, 2)

	fields := strings.Split(lines[1], "\t")
	assert.Equal(t, "V600E", fields[11], "excluded")
	assert.Equal(t, "-", fields[12], "no catalog consulted")
	assert.Equal(t, "-", fields[13])
}

func TestTabWriter_Write_NoGene(t *testing.T) {
	alts := alteration.ParseMutationString("Amplification", ",")
	require.Len(t, alts, 1)
	lines := writeRecords(t, &Record{Input: "Amplification", Alteration: alts[0], Relevant: []*alteration.Alteration{}})

	fields := strings.Split(lines[1], "\t")
	assert.Equal(t, "-", fields[1])
	assert.Equal(t, "Amplification", fields[2])
	assert.Equal(t, "start", fields[6])
	assert.Equal(t, "end", fields[7])
	assert.Equal(t, "-", fields[12], "empty relevant list")
}
