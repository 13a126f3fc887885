// Package output provides annotation output formatters.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/vibe-oncokb/internal/alteration"
	"github.com/inodb/vibe-oncokb/internal/relevance"
)

// Record is one annotated input alteration.
type Record struct {
	Input      string
	Alteration *alteration.Alteration
	// Relevant holds the catalog alterations that apply; nil when no
	// catalog was consulted.
	Relevant []*alteration.Alteration
	// Oncogenic is "yes", "no" or empty when undetermined or not derived.
	Oncogenic string
	// Highest is the highest curated oncogenicity of the relevant entries.
	Highest string
}

// TabWriter writes annotated alterations in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Input",
			"Gene",
			"Alteration",
			"Type",
			"Consequence",
			"IMPACT",
			"Protein_start",
			"Protein_end",
			"Ref_residues",
			"Variant_residues",
			"Genomes",
			"Excluded",
			"Relevant_alterations",
			"Oncogenic",
			"Highest_oncogenicity",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single record.
func (tw *TabWriter) Write(r *Record) error {
	a := r.Alteration

	gene := "-"
	if a.Gene != nil && a.Gene.HugoSymbol != "" {
		gene = a.Gene.HugoSymbol
	}

	excluded := make([]string, 0, len(a.Excluded))
	for _, x := range a.Excluded {
		excluded = append(excluded, x.Notation)
	}

	relevant := "-"
	if r.Relevant != nil {
		relevant = relevance.Names(r.Relevant, true)
	}

	values := []string{
		orDash(r.Input),
		gene,
		orDash(a.Notation),
		orDash(string(a.Type)),
		orDash(a.Consequence.Term),
		orDash(a.Consequence.Impact),
		orDash(a.Start.String()),
		orDash(a.End.String()),
		orDash(a.RefResidues),
		orDash(a.VariantResidues),
		orDash(a.Genomes.String()),
		orDash(strings.Join(excluded, ",")),
		orDash(relevant),
		orDash(r.Oncogenic),
		orDash(r.Highest),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
