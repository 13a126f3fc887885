package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

// appendRows opens an appender on table and calls fn with it. The appender
// is flushed when fn returns without error.
func (s *Store) appendRows(ctx context.Context, table string, fn func(*goduckdb.Appender) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create %s appender: %w", table, err)
	}
	defer appender.Close()

	if err := fn(appender); err != nil {
		return err
	}
	return appender.Flush()
}

// WriteGenes replaces the gene table.
func (s *Store) WriteGenes(ctx context.Context, genes []*alteration.Gene) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM genes`); err != nil {
		return fmt.Errorf("clear genes: %w", err)
	}
	seen := make(map[int]bool, len(genes))
	return s.appendRows(ctx, "genes", func(app *goduckdb.Appender) error {
		for _, g := range genes {
			if seen[g.EntrezGeneID] {
				continue
			}
			seen[g.EntrezGeneID] = true
			if err := app.AppendRow(int32(g.EntrezGeneID), g.HugoSymbol, g.Oncogene, g.TSG); err != nil {
				return fmt.Errorf("append gene %s: %w", g.HugoSymbol, err)
			}
		}
		return nil
	})
}

// ordinal returns the stored form of a position, nil when unset.
func ordinal(p alteration.Position) any {
	if n, ok := p.Ordinal(); ok {
		return int32(n)
	}
	return nil
}

// WriteAlterations appends catalog alterations. Alterations must carry a
// gene and a unique id.
func (s *Store) WriteAlterations(ctx context.Context, alts []*alteration.Alteration) error {
	return s.appendRows(ctx, "alterations", func(app *goduckdb.Appender) error {
		for _, a := range alts {
			if a.Gene == nil {
				return fmt.Errorf("alteration %d (%s) has no gene", a.ID, a.Notation)
			}
			if err := app.AppendRow(
				int32(a.ID), int32(a.Gene.EntrezGeneID), string(a.Type), a.Notation, a.Name,
				a.Consequence.Term, ordinal(a.Start), ordinal(a.End),
				a.RefResidues, a.VariantResidues, a.Genomes.String(),
			); err != nil {
				return fmt.Errorf("append alteration %d: %w", a.ID, err)
			}
		}
		return nil
	})
}

// WriteEvidences appends evidences and their alteration links.
func (s *Store) WriteEvidences(ctx context.Context, evs []*alteration.Evidence) error {
	if err := s.appendRows(ctx, "evidences", func(app *goduckdb.Appender) error {
		for _, e := range evs {
			geneID := 0
			if e.Gene != nil {
				geneID = e.Gene.EntrezGeneID
			}
			if err := app.AppendRow(int32(e.ID), e.UUID, int32(geneID), string(e.Type), e.KnownEffect); err != nil {
				return fmt.Errorf("append evidence %d: %w", e.ID, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	type link struct{ evidence, alteration int }
	seen := make(map[link]bool)
	return s.appendRows(ctx, "evidence_alterations", func(app *goduckdb.Appender) error {
		for _, e := range evs {
			for _, a := range e.Alterations {
				k := link{e.ID, a.ID}
				if seen[k] {
					continue
				}
				seen[k] = true
				if err := app.AppendRow(int32(e.ID), int32(a.ID)); err != nil {
					return fmt.Errorf("append evidence link %d-%d: %w", e.ID, a.ID, err)
				}
			}
		}
		return nil
	})
}

// WriteDrugs appends drugs.
func (s *Store) WriteDrugs(ctx context.Context, drugs []*alteration.Drug) error {
	return s.appendRows(ctx, "drugs", func(app *goduckdb.Appender) error {
		for _, d := range drugs {
			if err := app.AppendRow(int32(d.ID), d.Name); err != nil {
				return fmt.Errorf("append drug %s: %w", d.Name, err)
			}
		}
		return nil
	})
}

// WriteTumorTypes appends tumor types.
func (s *Store) WriteTumorTypes(ctx context.Context, types []*alteration.TumorType) error {
	return s.appendRows(ctx, "tumor_types", func(app *goduckdb.Appender) error {
		for _, t := range types {
			if err := app.AppendRow(t.Code, t.Name, t.MainType, int32(t.Level)); err != nil {
				return fmt.Errorf("append tumor type %s: %w", t.Name, err)
			}
		}
		return nil
	})
}

// ImportAlterations loads catalog alterations from a TSV file with the
// header columns id, entrez_gene_id, alteration, name, type and genomes.
// Every row is annotated by the notation parser before it is stored; rows
// whose gene is not in the catalog are skipped. It returns the number of
// stored alterations.
func (s *Store) ImportAlterations(ctx context.Context, tsvPath string) (int, error) {
	genes, err := s.genesByID(ctx)
	if err != nil {
		return 0, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, entrez_gene_id, coalesce(alteration, ''),
			coalesce(name, ''), coalesce(type, ''), coalesce(genomes, '')
		FROM read_csv('%s', delim='\t', header=true,
			columns={
				'id': 'INTEGER',
				'entrez_gene_id': 'INTEGER',
				'alteration': 'VARCHAR',
				'name': 'VARCHAR',
				'type': 'VARCHAR',
				'genomes': 'VARCHAR'
			})
		ORDER BY id`, escapeLiteral(tsvPath)))
	if err != nil {
		return 0, fmt.Errorf("read alterations file: %w", err)
	}
	defer rows.Close()

	var alts []*alteration.Alteration
	for rows.Next() {
		var (
			id, geneID                  int
			notation, name, typ, genome string
		)
		if err := rows.Scan(&id, &geneID, &notation, &name, &typ, &genome); err != nil {
			return 0, fmt.Errorf("scan alteration row: %w", err)
		}
		g, ok := genes[geneID]
		if !ok {
			continue
		}
		alts = append(alts, newCatalogAlteration(id, g, notation, name, typ, genome))
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate alteration rows: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM alterations`); err != nil {
		return 0, fmt.Errorf("clear alterations: %w", err)
	}
	if err := s.WriteAlterations(ctx, alts); err != nil {
		return 0, err
	}
	return len(alts), nil
}

// newCatalogAlteration annotates one catalog row.
func newCatalogAlteration(id int, g *alteration.Gene, notation, name, typ, genomes string) *alteration.Alteration {
	a := &alteration.Alteration{
		ID:       id,
		Gene:     g,
		Type:     alteration.Type(strings.ToUpper(strings.TrimSpace(typ))),
		Notation: strings.TrimSpace(notation),
		Name:     strings.TrimSpace(name),
		Genomes:  alteration.ParseGenomeSet(genomes),
	}
	alteration.Annotate(a, a.Notation)
	return a
}

// ImportEvidences loads evidences from a TSV file with the header columns
// id, uuid, entrez_gene_id, evidence_type, known_effect and alterations, the
// last holding comma-separated alteration ids.
func (s *Store) ImportEvidences(ctx context.Context, tsvPath string) (int64, error) {
	source := fmt.Sprintf(`read_csv('%s', delim='\t', header=true,
			columns={
				'id': 'INTEGER',
				'uuid': 'VARCHAR',
				'entrez_gene_id': 'INTEGER',
				'evidence_type': 'VARCHAR',
				'known_effect': 'VARCHAR',
				'alterations': 'VARCHAR'
			})`, escapeLiteral(tsvPath))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin evidence import: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM evidence_alterations`, `DELETE FROM evidences`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("clear evidences: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO evidences
		SELECT id, uuid, entrez_gene_id, upper(trim(evidence_type)), known_effect FROM `+source)
	if err != nil {
		return 0, fmt.Errorf("load evidences: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO evidence_alterations
		SELECT DISTINCT id, CAST(trim(alteration_id) AS INTEGER)
		FROM (SELECT id, unnest(string_split(alterations, ',')) AS alteration_id FROM `+source+`)
		WHERE trim(alteration_id) <> ''`); err != nil {
		return 0, fmt.Errorf("load evidence alterations: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit evidence import: %w", err)
	}
	return res.RowsAffected()
}

// ImportDrugs replaces the drug table from a TSV file with the header
// columns id and name.
func (s *Store) ImportDrugs(ctx context.Context, tsvPath string) (int64, error) {
	return s.replaceFromTSV(ctx, "drugs", fmt.Sprintf(`SELECT id, name
		FROM read_csv('%s', delim='\t', header=true,
			columns={'id': 'INTEGER', 'name': 'VARCHAR'})`, escapeLiteral(tsvPath)))
}

// ImportTumorTypes replaces the tumor-type table from a TSV file with the
// header columns code, name, main_type and level. Main cancer types leave
// code empty.
func (s *Store) ImportTumorTypes(ctx context.Context, tsvPath string) (int64, error) {
	return s.replaceFromTSV(ctx, "tumor_types", fmt.Sprintf(`SELECT coalesce(code, ''), name, main_type, coalesce(level, 0)
		FROM read_csv('%s', delim='\t', header=true,
			columns={'code': 'VARCHAR', 'name': 'VARCHAR', 'main_type': 'VARCHAR', 'level': 'INTEGER'})`,
		escapeLiteral(tsvPath)))
}

func (s *Store) replaceFromTSV(ctx context.Context, table, query string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin %s import: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO `+table+` `+query)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s import: %w", table, err)
	}
	return res.RowsAffected()
}

// Counts returns the row count of each catalog table.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, table := range []string{"genes", "alterations", "evidences", "drugs", "tumor_types"} {
		var n int64
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// escapeLiteral quotes s for use inside a single-quoted SQL literal.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
