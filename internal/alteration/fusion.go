package alteration

import (
	"regexp"
	"strings"
)

// BCR-ABL1 Fusion, EML4::ALK fusion
var reFusionPair = regexp.MustCompile(`^([A-Za-z0-9.]+)(-|::)([A-Za-z0-9.]+)(.*)$`)

// IsFusion reports whether the notation names a fusion.
func IsFusion(notation string) bool {
	return strings.Contains(strings.ToLower(notation), "fusion")
}

// RevertFusionName swaps the partner order of a two-gene fusion name, e.g.
// "BCR-ABL1 Fusion" becomes "ABL1-BCR Fusion". It returns "" when the
// notation is not a two-gene fusion.
func RevertFusionName(notation string) string {
	if !IsFusion(notation) {
		return ""
	}
	m := reFusionPair.FindStringSubmatch(strings.TrimSpace(notation))
	if m == nil {
		return ""
	}
	return m[3] + m[2] + m[1] + m[4]
}

// FusionName builds the canonical fusion notation for the given partners.
// A single partner yields the generic "Fusions" marker.
func FusionName(partners ...string) string {
	if len(partners) < 2 {
		return Fusions
	}
	return strings.Join(partners, "-") + " Fusion"
}
