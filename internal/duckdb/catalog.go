package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

const alterationColumns = `a.id, a.entrez_gene_id, a.alteration_type, a.alteration, a.name,
		a.consequence, a.protein_start, a.protein_end, a.ref_residues, a.variant_residues, a.genomes`

// Genes returns every catalog gene ordered by Entrez id.
func (s *Store) Genes(ctx context.Context) ([]*alteration.Gene, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entrez_gene_id, hugo_symbol, oncogene, tsg
		FROM genes ORDER BY entrez_gene_id`)
	if err != nil {
		return nil, fmt.Errorf("query genes: %w", err)
	}
	defer rows.Close()

	var genes []*alteration.Gene
	for rows.Next() {
		var g alteration.Gene
		if err := rows.Scan(&g.EntrezGeneID, &g.HugoSymbol, &g.Oncogene, &g.TSG); err != nil {
			return nil, fmt.Errorf("scan gene: %w", err)
		}
		genes = append(genes, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genes: %w", err)
	}
	return genes, nil
}

// genesByID indexes the catalog genes.
func (s *Store) genesByID(ctx context.Context) (map[int]*alteration.Gene, error) {
	genes, err := s.Genes(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[int]*alteration.Gene, len(genes))
	for _, g := range genes {
		m[g.EntrezGeneID] = g
	}
	return m, nil
}

// Alterations returns the catalog alterations of one gene.
func (s *Store) Alterations(ctx context.Context, entrezGeneID int) ([]*alteration.Alteration, error) {
	genes, err := s.genesByID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+alterationColumns+`
		FROM alterations a WHERE a.entrez_gene_id = ? ORDER BY a.id`, entrezGeneID)
	if err != nil {
		return nil, fmt.Errorf("query alterations of gene %d: %w", entrezGeneID, err)
	}
	defer rows.Close()
	return scanAlterations(rows, genes)
}

// AllAlterations returns every catalog alteration.
func (s *Store) AllAlterations(ctx context.Context) ([]*alteration.Alteration, error) {
	genes, err := s.genesByID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+alterationColumns+`
		FROM alterations a ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("query alterations: %w", err)
	}
	defer rows.Close()
	return scanAlterations(rows, genes)
}

func scanAlterations(rows *sql.Rows, genes map[int]*alteration.Gene) ([]*alteration.Alteration, error) {
	var alts []*alteration.Alteration
	for rows.Next() {
		a, err := scanAlteration(rows, genes)
		if err != nil {
			return nil, err
		}
		alts = append(alts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alterations: %w", err)
	}
	return alts, nil
}

func scanAlteration(rows *sql.Rows, genes map[int]*alteration.Gene) (*alteration.Alteration, error) {
	var (
		a                            alteration.Alteration
		geneID                       int
		typ, consequence, genomes    string
		start, end                   sql.NullInt64
		notation, name, ref, variant sql.NullString
	)
	if err := rows.Scan(&a.ID, &geneID, &typ, &notation, &name,
		&consequence, &start, &end, &ref, &variant, &genomes); err != nil {
		return nil, fmt.Errorf("scan alteration: %w", err)
	}
	a.Gene = genes[geneID]
	a.Type = alteration.Type(typ)
	a.Notation = notation.String
	a.Name = name.String
	a.Consequence = alteration.LookupConsequence(consequence)
	if start.Valid {
		a.Start = alteration.PositionFromOrdinal(int(start.Int64))
	}
	if end.Valid {
		a.End = alteration.PositionFromOrdinal(int(end.Int64))
	}
	a.RefResidues = ref.String
	a.VariantResidues = variant.String
	a.Genomes = alteration.ParseGenomeSet(genomes)
	// Fills the exclusion list from the notation and any unstored gaps.
	alteration.Annotate(&a, a.Notation)
	return &a, nil
}

// alterationsByID loads the alterations referenced by evidence, keyed by id.
func (s *Store) alterationsByID(ctx context.Context, where string, args ...any) (map[int]*alteration.Alteration, error) {
	genes, err := s.genesByID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+alterationColumns+`
		FROM alterations a `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query evidence alterations: %w", err)
	}
	defer rows.Close()
	alts, err := scanAlterations(rows, genes)
	if err != nil {
		return nil, err
	}
	m := make(map[int]*alteration.Alteration, len(alts))
	for _, a := range alts {
		m[a.ID] = a
	}
	return m, nil
}

// Evidences returns the curated evidence of one gene with its alterations.
func (s *Store) Evidences(ctx context.Context, entrezGeneID int) ([]*alteration.Evidence, error) {
	alts, err := s.alterationsByID(ctx, `WHERE a.entrez_gene_id = ?`, entrezGeneID)
	if err != nil {
		return nil, err
	}
	return s.queryEvidences(ctx, alts, `WHERE e.entrez_gene_id = ?`, entrezGeneID)
}

// AllEvidences returns every curated evidence.
func (s *Store) AllEvidences(ctx context.Context) ([]*alteration.Evidence, error) {
	alts, err := s.alterationsByID(ctx, ``)
	if err != nil {
		return nil, err
	}
	return s.queryEvidences(ctx, alts, ``)
}

func (s *Store) queryEvidences(ctx context.Context, alts map[int]*alteration.Alteration, where string, args ...any) ([]*alteration.Evidence, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT e.id, e.uuid, e.entrez_gene_id, e.evidence_type, e.known_effect,
			string_agg(CAST(ea.alteration_id AS VARCHAR), ',' ORDER BY ea.alteration_id)
		FROM evidences e
		LEFT JOIN evidence_alterations ea ON ea.evidence_id = e.id
		`+where+`
		GROUP BY e.id, e.uuid, e.entrez_gene_id, e.evidence_type, e.known_effect
		ORDER BY e.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query evidences: %w", err)
	}
	defer rows.Close()

	var evs []*alteration.Evidence
	for rows.Next() {
		var (
			e             alteration.Evidence
			geneID        int
			typ           string
			uuid, effect  sql.NullString
			alterationIDs sql.NullString
		)
		if err := rows.Scan(&e.ID, &uuid, &geneID, &typ, &effect, &alterationIDs); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		e.UUID = uuid.String
		e.Type = alteration.EvidenceType(typ)
		e.KnownEffect = effect.String
		for _, id := range splitIDs(alterationIDs.String) {
			if a, ok := alts[id]; ok {
				e.Alterations = append(e.Alterations, a)
				if e.Gene == nil {
					e.Gene = a.Gene
				}
			}
		}
		if e.Gene == nil {
			e.Gene = &alteration.Gene{EntrezGeneID: geneID}
		}
		evs = append(evs, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidences: %w", err)
	}
	return evs, nil
}

// Drugs returns the catalog drugs ordered by name.
func (s *Store) Drugs(ctx context.Context) ([]*alteration.Drug, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM drugs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query drugs: %w", err)
	}
	defer rows.Close()

	drugs := []*alteration.Drug{}
	for rows.Next() {
		var d alteration.Drug
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("scan drug: %w", err)
		}
		drugs = append(drugs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drugs: %w", err)
	}
	return drugs, nil
}

// CancerTypes returns the main cancer types of the ontology.
func (s *Store) CancerTypes(ctx context.Context) ([]*alteration.TumorType, error) {
	return s.queryTumorTypes(ctx, `WHERE code IS NULL OR code = ''`)
}

// Subtypes returns the ontology subtypes.
func (s *Store) Subtypes(ctx context.Context) ([]*alteration.TumorType, error) {
	return s.queryTumorTypes(ctx, `WHERE code IS NOT NULL AND code <> ''`)
}

func (s *Store) queryTumorTypes(ctx context.Context, where string) ([]*alteration.TumorType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name, main_type, level
		FROM tumor_types `+where+` ORDER BY main_type, level, name`)
	if err != nil {
		return nil, fmt.Errorf("query tumor types: %w", err)
	}
	defer rows.Close()

	var types []*alteration.TumorType
	for rows.Next() {
		var (
			t                    alteration.TumorType
			code, name, mainType sql.NullString
			level                sql.NullInt64
		)
		if err := rows.Scan(&code, &name, &mainType, &level); err != nil {
			return nil, fmt.Errorf("scan tumor type: %w", err)
		}
		t.Code = code.String
		t.Name = name.String
		t.MainType = mainType.String
		t.Level = int(level.Int64)
		types = append(types, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tumor types: %w", err)
	}
	return types, nil
}

// splitIDs parses a comma-separated id list, skipping malformed entries.
func splitIDs(s string) []int {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
