package alteration

import (
	"regexp"
	"sort"
	"strings"
)

// Inferred mutations: catalog entries standing for a class of variants.
const (
	OncogenicMutations        = "Oncogenic Mutations"
	GainOfFunctionMutations   = "Gain-of-function Mutations"
	LossOfFunctionMutations   = "Loss-of-function Mutations"
	SwitchOfFunctionMutations = "Switch-of-function Mutations"
)

// Structural markers.
const (
	Amplification       = "Amplification"
	Deletion            = "Deletion"
	Fusions             = "Fusions"
	TruncatingMutations = "Truncating Mutations"
)

// Special variants.
const Promoter = "Promoter"

// Display names used when the notation itself is empty.
const spliceMutation = "splice mutation"

var (
	inferredMutations  = []string{OncogenicMutations, GainOfFunctionMutations, LossOfFunctionMutations, SwitchOfFunctionMutations}
	structuralMarkers  = []string{Amplification, Deletion, Fusions, TruncatingMutations}
	specialVariants    = []string{Promoter}
	generalAlterations = concat(inferredMutations, structuralMarkers, specialVariants)
	reLikelyPrefix     = regexp.MustCompile(`(?i)likely`)
	reMutationsSuffix  = regexp.MustCompile(`(?i)\s+mutations`)
)

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// InferredMutations returns the inferred-mutation vocabulary.
func InferredMutations() []string { return append([]string(nil), inferredMutations...) }

// StructuralMarkers returns the structural-marker vocabulary.
func StructuralMarkers() []string { return append([]string(nil), structuralMarkers...) }

// GeneralAlterations returns every controlled vocabulary term.
func GeneralAlterations() []string { return append([]string(nil), generalAlterations...) }

func equalFoldAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.EqualFold(s, t) {
			return true
		}
	}
	return false
}

// IsGeneralAlteration reports whether s is exactly one of the controlled
// vocabulary terms, ignoring case.
func IsGeneralAlteration(s string) bool {
	return equalFoldAny(s, generalAlterations)
}

// IsGeneralAlterationLoose is the permissive form: s must end with a
// vocabulary term and contain one, both case-insensitively.
func IsGeneralAlterationLoose(s string) bool {
	lower := strings.ToLower(s)
	var contains, suffix bool
	for _, t := range generalAlterations {
		lt := strings.ToLower(t)
		if strings.Contains(lower, lt) {
			contains = true
		}
		if strings.HasSuffix(lower, lt) {
			suffix = true
		}
	}
	return contains && suffix
}

// IsCategoricalAlteration reports whether s, stripped of any exclusion
// clause, is an inferred mutation or structural marker.
func IsCategoricalAlteration(s string) bool {
	if s == "" {
		return false
	}
	s = RemoveExclusionCriteria(s)
	return equalFoldAny(s, inferredMutations) || equalFoldAny(s, structuralMarkers)
}

// IsInferredAlteration reports whether s is an inferred mutation term.
func IsInferredAlteration(s string) bool {
	return equalFoldAny(s, inferredMutations)
}

// IsLikelyInferredAlteration reports whether s is "Likely " followed by an
// inferred mutation term, e.g. "Likely Oncogenic Mutations".
func IsLikelyInferredAlteration(s string) bool {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "likely") {
		return false
	}
	return equalFoldAny(strings.TrimSpace(reLikelyPrefix.ReplaceAllString(s, "")), inferredMutations)
}

// InferredKnownEffect maps an inferred mutation name to its known effect,
// e.g. "Oncogenic Mutations" to "Oncogenic".
func InferredKnownEffect(s string) string {
	return reMutationsSuffix.ReplaceAllString(s, "")
}

// HasInferredPrefix reports whether the notation starts with an inferred
// mutation term (case-sensitive, as catalog notations are canonical).
func HasInferredPrefix(notation string) bool {
	for _, t := range inferredMutations {
		if strings.HasPrefix(notation, t) {
			return true
		}
	}
	return false
}

// FindByPrefix returns the alterations whose notation starts with prefix,
// ignoring case, de-duplicated by notation and sorted descending.
func FindByPrefix(prefix string, catalog []*Alteration) []*Alteration {
	seen := make(map[string]bool)
	var out []*Alteration
	for _, a := range catalog {
		if len(a.Notation) < len(prefix) || !strings.EqualFold(a.Notation[:len(prefix)], prefix) {
			continue
		}
		if seen[a.Notation] {
			continue
		}
		seen[a.Notation] = true
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Notation > out[j].Notation })
	return out
}
