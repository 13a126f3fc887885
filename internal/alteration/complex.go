package alteration

import (
	"regexp"
	"strconv"
)

var (
	// V600_K601delinsEE
	reComplexDelins = regexp.MustCompile(`^([A-Z])([0-9]+)_([A-Z])([0-9]+)delins([A-Z]+)$`)
	// VK600EE
	reComplexCompact = regexp.MustCompile(`^([A-Z]+)([0-9]+)([A-Z]+)$`)
)

// IsComplexMissense reports whether the notation is a multi-residue
// substitution that decomposes into single-position missense variants:
// a delins whose inserted sequence spans exactly the deleted range, or a
// compact form with equally long reference and variant runs.
func IsComplexMissense(notation string) bool {
	if m := reComplexDelins.FindStringSubmatch(notation); m != nil {
		start, ok1 := atoi(m[2])
		end, ok2 := atoi(m[4])
		return ok1 && ok2 && end-start+1 == len(m[5])
	}
	if m := reComplexCompact.FindStringSubmatch(notation); m != nil {
		return len(m[1]) == len(m[3])
	}
	return false
}

// DecomposeComplexMissense splits a complex missense notation into one
// missense alteration per residue, positioned sequentially from the anchor.
// It returns nil for anything else.
func DecomposeComplexMissense(notation string) []*Alteration {
	if !IsComplexMissense(notation) {
		return nil
	}
	missense := LookupConsequence(TermMissenseVariant)

	var out []*Alteration
	if m := reComplexDelins.FindStringSubmatch(notation); m != nil {
		anchor, _ := atoi(m[2])
		for i := 0; i < len(m[5]); i++ {
			pos := anchor + i
			v := m[5][i : i+1]
			out = append(out, &Alteration{
				Notation:        strconv.Itoa(pos) + v,
				Start:           At(pos),
				End:             At(pos),
				VariantResidues: v,
				Consequence:     missense,
			})
		}
		return out
	}

	m := reComplexCompact.FindStringSubmatch(notation)
	anchor, ok := atoi(m[2])
	if !ok {
		return nil
	}
	for i := 0; i < len(m[1]); i++ {
		pos := anchor + i
		ref, v := m[1][i:i+1], m[3][i:i+1]
		out = append(out, &Alteration{
			Notation:        ref + strconv.Itoa(pos) + v,
			Start:           At(pos),
			End:             At(pos),
			RefResidues:     ref,
			VariantResidues: v,
			Consequence:     missense,
		})
	}
	return out
}
