// Package oncogenicity derives whether an alteration is oncogenic from
// curated ONCOGENIC evidence, falling back to hotspot membership when the
// curation is silent.
package oncogenicity

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

// Oncogenicity is the curated known effect of ONCOGENIC evidence.
type Oncogenicity string

const (
	Yes           Oncogenicity = "Oncogenic"
	Likely        Oncogenicity = "Likely Oncogenic"
	LikelyNeutral Oncogenicity = "Likely Neutral"
	Inconclusive  Oncogenicity = "Inconclusive"
	Resistance    Oncogenicity = "Resistance"
	Unknown       Oncogenicity = "Unknown"
)

var all = []Oncogenicity{Yes, Likely, LikelyNeutral, Inconclusive, Resistance, Unknown}

// ranking orders the levels reported by HighestOncogenicity, lowest first.
var ranking = []Oncogenicity{"", Inconclusive, LikelyNeutral, Likely, Yes}

// Parse maps a known-effect string to its oncogenicity, ignoring case.
func Parse(knownEffect string) (Oncogenicity, bool) {
	knownEffect = strings.TrimSpace(knownEffect)
	for _, o := range all {
		if strings.EqualFold(string(o), knownEffect) {
			return o, true
		}
	}
	return "", false
}

// IsOncogenic reports whether o is in the oncogenic tier.
func (o Oncogenicity) IsOncogenic() bool {
	return o == Yes || o == Likely || o == Resistance
}

// IsNeutral reports whether o is in the neutral tier.
func (o Oncogenicity) IsNeutral() bool {
	return o == LikelyNeutral || o == Inconclusive
}

// Derive scans the ONCOGENIC evidence covering alt in order. The first
// evidence in the oncogenic tier yields (true, true); the first in the
// neutral tier yields (false, true). Later evidence is not consulted.
// determined is false when no evidence takes a position.
func Derive(evidences []*alteration.Evidence, alt *alteration.Alteration) (oncogenic, determined bool) {
	for _, e := range evidences {
		if e.Type != alteration.EvidenceOncogenic || !e.Covers(alt) {
			continue
		}
		o, _ := Parse(e.KnownEffect)
		switch {
		case o.IsOncogenic():
			return true, true
		case o.IsNeutral():
			return false, true
		}
	}
	return false, false
}

// HighestOncogenicity returns the highest ranked known effect among the
// ONCOGENIC evidences, or "" when none ranks.
func HighestOncogenicity(evidences []*alteration.Evidence) Oncogenicity {
	var best Oncogenicity
	for _, e := range evidences {
		if e.Type != alteration.EvidenceOncogenic {
			continue
		}
		o, _ := Parse(e.KnownEffect)
		if slices.Index(ranking, o) >= slices.Index(ranking, best) {
			best = o
		}
	}
	return best
}

// CuratedOncogenicities returns the distinct oncogenicities curated for alt.
func CuratedOncogenicities(evidences []*alteration.Evidence, alt *alteration.Alteration) []Oncogenicity {
	var out []Oncogenicity
	for _, e := range evidences {
		if e.Type != alteration.EvidenceOncogenic || !e.Covers(alt) {
			continue
		}
		if o, ok := Parse(e.KnownEffect); ok && !slices.Contains(out, o) {
			out = append(out, o)
		}
	}
	return out
}

// HasOncogenic reports whether any level is in the oncogenic tier.
func HasOncogenic(levels []Oncogenicity) bool {
	return slices.ContainsFunc(levels, Oncogenicity.IsOncogenic)
}

// HasImportantCuratedOncogenicity reports whether any level is in the
// oncogenic or neutral tier.
func HasImportantCuratedOncogenicity(levels []Oncogenicity) bool {
	return slices.ContainsFunc(levels, func(o Oncogenicity) bool {
		return o.IsOncogenic() || o.IsNeutral()
	})
}

// EvidenceProvider returns the curated evidence of a gene.
type EvidenceProvider interface {
	Evidences(ctx context.Context, entrezGeneID int) ([]*alteration.Evidence, error)
}

// HotspotOracle reports whether an alteration is a recurrent hotspot.
type HotspotOracle interface {
	IsHotspot(ctx context.Context, alt *alteration.Alteration) (bool, error)
}

// Deriver answers oncogenicity questions against an evidence provider.
type Deriver struct {
	evidences EvidenceProvider
	hotspots  HotspotOracle
	logger    *zap.Logger
}

// NewDeriver creates a deriver. hotspots may be nil to disable the fallback.
func NewDeriver(evidences EvidenceProvider, hotspots HotspotOracle) *Deriver {
	return &Deriver{
		evidences: evidences,
		hotspots:  hotspots,
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (d *Deriver) SetLogger(l *zap.Logger) {
	d.logger = l
}

// IsOncogenic derives the oncogenicity of alt from its gene's curated
// evidence. When no evidence takes a position and alt is a hotspot, alt is
// reported oncogenic. determined is false when neither source decides.
func (d *Deriver) IsOncogenic(ctx context.Context, alt *alteration.Alteration) (oncogenic, determined bool, err error) {
	if alt == nil || alt.Gene == nil {
		return false, false, nil
	}
	evs, err := d.evidences.Evidences(ctx, alt.Gene.EntrezGeneID)
	if err != nil {
		return false, false, fmt.Errorf("load evidences for %s: %w", alt.Gene.HugoSymbol, err)
	}
	if oncogenic, determined = Derive(evs, alt); determined {
		return oncogenic, true, nil
	}

	if d.hotspots == nil {
		return false, false, nil
	}
	hot, err := d.hotspots.IsHotspot(ctx, alt)
	if err != nil {
		return false, false, fmt.Errorf("hotspot lookup for %s: %w", alt, err)
	}
	if hot {
		d.logger.Debug("uncurated hotspot reported oncogenic",
			zap.String("gene", alt.Gene.HugoSymbol),
			zap.String("alteration", alt.Notation))
		return true, true, nil
	}
	return false, false, nil
}

// Highest returns the highest curated oncogenicity across alts, typically
// the relevant alterations of a query.
func (d *Deriver) Highest(ctx context.Context, alts []*alteration.Alteration) (Oncogenicity, error) {
	var matched []*alteration.Evidence
	loaded := make(map[int][]*alteration.Evidence)
	for _, a := range alts {
		if a.Gene == nil {
			continue
		}
		evs, ok := loaded[a.Gene.EntrezGeneID]
		if !ok {
			var err error
			if evs, err = d.evidences.Evidences(ctx, a.Gene.EntrezGeneID); err != nil {
				return "", fmt.Errorf("load evidences for %s: %w", a.Gene.HugoSymbol, err)
			}
			loaded[a.Gene.EntrezGeneID] = evs
		}
		for _, e := range evs {
			if e.Covers(a) && !slices.Contains(matched, e) {
				matched = append(matched, e)
			}
		}
	}
	return HighestOncogenicity(matched), nil
}
