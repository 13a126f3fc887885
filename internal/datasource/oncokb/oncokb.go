// Package oncokb loads the OncoKB cancer gene list that seeds the catalog
// genes.
package oncokb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

// CancerGeneList maps Hugo Symbol to gene.
type CancerGeneList map[string]*alteration.Gene

// IsCancerGene returns true if the gene is in the cancer gene list.
func (c CancerGeneList) IsCancerGene(gene string) bool {
	_, ok := c[gene]
	return ok
}

// Genes returns the genes ordered by Entrez id.
func (c CancerGeneList) Genes() []*alteration.Gene {
	genes := make([]*alteration.Gene, 0, len(c))
	for _, g := range c {
		genes = append(genes, g)
	}
	sort.Slice(genes, func(i, j int) bool {
		return genes[i].EntrezGeneID < genes[j].EntrezGeneID
	})
	return genes
}

// LoadCancerGeneList loads an OncoKB cancerGeneList.tsv file.
func LoadCancerGeneList(path string) (CancerGeneList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cancer gene list: %w", err)
	}
	defer f.Close()
	return ParseCancerGeneList(f)
}

// ParseCancerGeneList reads a cancer gene list. The header must name the
// "Hugo Symbol" and "Entrez Gene ID" columns. Gene roles come from a
// "Gene Type" column (ONCOGENE, TSG, ONCOGENE_AND_TSG) or from the
// "Is Oncogene" and "Is Tumor Suppressor Gene" Yes/No columns.
func ParseCancerGeneList(r io.Reader) (CancerGeneList, error) {
	scanner := bufio.NewScanner(r)

	// Read header to find column indices
	if !scanner.Scan() {
		return nil, fmt.Errorf("cancer gene list: empty file")
	}
	header := strings.Split(scanner.Text(), "\t")

	hugoIdx, entrezIdx, geneTypeIdx, oncogeneIdx, tsgIdx := -1, -1, -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "Hugo Symbol":
			hugoIdx = i
		case "Entrez Gene ID":
			entrezIdx = i
		case "Gene Type":
			geneTypeIdx = i
		case "Is Oncogene":
			oncogeneIdx = i
		case "Is Tumor Suppressor Gene":
			tsgIdx = i
		}
	}
	if hugoIdx < 0 {
		return nil, fmt.Errorf("cancer gene list: missing 'Hugo Symbol' column")
	}
	if entrezIdx < 0 {
		return nil, fmt.Errorf("cancer gene list: missing 'Entrez Gene ID' column")
	}

	field := func(fields []string, i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	cgl := make(CancerGeneList)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		hugo := field(fields, hugoIdx)
		if hugo == "" {
			continue
		}
		entrez, err := strconv.Atoi(field(fields, entrezIdx))
		if err != nil {
			continue
		}
		g := &alteration.Gene{EntrezGeneID: entrez, HugoSymbol: hugo}
		if geneType := strings.ToUpper(field(fields, geneTypeIdx)); geneType != "" {
			g.Oncogene = strings.Contains(geneType, "ONCOGENE")
			g.TSG = strings.Contains(geneType, "TSG")
		} else {
			g.Oncogene = strings.EqualFold(field(fields, oncogeneIdx), "Yes")
			g.TSG = strings.EqualFold(field(fields, tsgIdx), "Yes")
		}
		cgl[hugo] = g
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cancer gene list: %w", err)
	}

	return cgl, nil
}
