package vcf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVCF = "##fileformat=VCFv4.2\n" +
	"##contig=<ID=7>\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tTUMOR\n" +
	"7\t140453136\trs113488022\tA\tT,C\t.\tPASS\t.\tGT\t0/1\n" +
	"\n" +
	"chr12\t25398284\t.\tCC\tC\t50\tPASS\tDP=20\n" +
	"17\t7577120\t.\tG\t<DEL>\t.\tLowQual\t.\n"

func TestReader_SplitsAlleles(t *testing.T) {
	r, err := NewReader(strings.NewReader(sampleVCF))
	require.NoError(t, err)

	var got []*Variant
	for {
		v, err := r.Next()
		require.NoError(t, err)
		if v == nil {
			break
		}
		got = append(got, v)
	}
	require.Len(t, got, 4)

	assert.Equal(t, "T", got[0].Alt)
	assert.Equal(t, "C", got[1].Alt)
	assert.Equal(t, int64(140453136), got[1].Pos)
	assert.Equal(t, "rs113488022", got[1].ID)
	assert.Equal(t, "12", got[2].NormalizeChrom())
	assert.Equal(t, "LowQual", got[3].Filter)
	assert.True(t, got[3].IsSymbolic())
}

func TestReader_Errors(t *testing.T) {
	_, err := NewReader(strings.NewReader("##fileformat=VCFv4.2\n"))
	assert.ErrorContains(t, err, "no #CHROM header")

	_, err = NewReader(strings.NewReader("7\t1\t.\tA\tT\t.\t.\t.\n"))
	assert.ErrorContains(t, err, "expected #CHROM header")

	r, err := NewReader(strings.NewReader("#CHROM\tPOS\n7\tx\t.\tA\tT\t.\t.\t.\n"))
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorContains(t, err, "line 2: invalid position")

	r, err = NewReader(strings.NewReader("#CHROM\tPOS\n7\t1\t.\n"))
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorContains(t, err, "expected at least 8 columns")
}

func TestVariant_HGVSg(t *testing.T) {
	tests := []struct {
		name string
		v    Variant
		want string
	}{
		{"snv", Variant{Chrom: "7", Pos: 140453136, Ref: "A", Alt: "T"}, "7:g.140453136A>T"},
		{"chr prefix", Variant{Chrom: "chr12", Pos: 25398285, Ref: "C", Alt: "A"}, "12:g.25398285C>A"},
		{"single base deletion", Variant{Chrom: "12", Pos: 25398284, Ref: "CC", Alt: "C"}, "12:g.25398285del"},
		{"multi base deletion", Variant{Chrom: "7", Pos: 55242464, Ref: "AGGAATTAAGAGAAGC", Alt: "A"}, "7:g.55242465_55242479del"},
		{"insertion", Variant{Chrom: "7", Pos: 55249011, Ref: "C", Alt: "CGGT"}, "7:g.55249011_55249012insGGT"},
		{"delins", Variant{Chrom: "7", Pos: 140453135, Ref: "CA", Alt: "TT"}, "7:g.140453135_140453136delinsTT"},
		{"mnv with shared suffix", Variant{Chrom: "7", Pos: 140453135, Ref: "CAC", Alt: "TTC"}, "7:g.140453135_140453136delinsTT"},
		{"symbolic", Variant{Chrom: "17", Pos: 1, Ref: "G", Alt: "<DEL>"}, ""},
		{"breakend", Variant{Chrom: "17", Pos: 1, Ref: "G", Alt: "G]17:198982]"}, ""},
		{"missing", Variant{Chrom: "17", Pos: 1, Ref: "G", Alt: "."}, ""},
		{"reference", Variant{Chrom: "17", Pos: 1, Ref: "G", Alt: "G"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.HGVSg())
		})
	}
}
