// Package vcf reads genomic variants from VCF files and renders them as
// HGVSg queries.
package vcf

import (
	"fmt"
	"strings"
)

// Variant is one alternate allele of a VCF record.
type Variant struct {
	Chrom  string // Chromosome name (e.g., "12", "chr12")
	Pos    int64  // 1-based genomic position
	ID     string
	Ref    string
	Alt    string // single allele after splitting
	Filter string
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// IsSymbolic reports whether the allele is symbolic ("<DEL>"), a breakend
// or missing, none of which has an HGVSg form.
func (v *Variant) IsSymbolic() bool {
	return v.Alt == "" || v.Alt == "." || v.Alt == "*" ||
		strings.ContainsAny(v.Alt, "<>[]")
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	if len(v.Chrom) > 3 && v.Chrom[:3] == "chr" {
		return v.Chrom[3:]
	}
	return v.Chrom
}

// HGVSg returns the genomic HGVS notation of the variant, or "" when it has
// none. The shared leading base VCF carries for indels is trimmed first.
func (v *Variant) HGVSg() string {
	if v.IsSymbolic() || v.Ref == v.Alt {
		return ""
	}
	ref, alt, pos := v.Ref, v.Alt, v.Pos
	for len(ref) > 0 && len(alt) > 0 && ref[0] == alt[0] {
		ref, alt, pos = ref[1:], alt[1:], pos+1
	}
	for len(ref) > 0 && len(alt) > 0 && ref[len(ref)-1] == alt[len(alt)-1] {
		ref, alt = ref[:len(ref)-1], alt[:len(alt)-1]
	}

	chrom := v.NormalizeChrom()
	end := pos + int64(len(ref)) - 1
	switch {
	case len(ref) == 1 && len(alt) == 1:
		return fmt.Sprintf("%s:g.%d%s>%s", chrom, pos, ref, alt)
	case len(alt) == 0:
		return fmt.Sprintf("%s:g.%sdel", chrom, span(pos, end))
	case len(ref) == 0:
		return fmt.Sprintf("%s:g.%d_%dins%s", chrom, pos-1, pos, alt)
	default:
		return fmt.Sprintf("%s:g.%sdelins%s", chrom, span(pos, end), alt)
	}
}

func span(start, end int64) string {
	if start == end {
		return fmt.Sprint(start)
	}
	return fmt.Sprintf("%d_%d", start, end)
}
