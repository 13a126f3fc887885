// Package hotspots provides recurrent mutation hotspot lookups backed by
// DuckDB. Hotspot data is loaded from a cancerhotspots.org style TSV file
// with the columns Hugo_Symbol, Residue, Variant_Amino_Acid and Type.
package hotspots

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

// Hotspot types.
const (
	TypeSingleResidue = "single residue"
	TypeInframeIndel  = "in-frame indel"
)

// Hotspot is a recurrently mutated residue or residue range of a gene.
type Hotspot struct {
	HugoSymbol string
	Start      int
	End        int
	Type       string
	// Variants holds the observed variant amino acids of a single-residue
	// hotspot; empty means any.
	Variants string
}

// Matches reports whether a falls on the hotspot.
func (h *Hotspot) Matches(a *alteration.Alteration) bool {
	start, ok1 := a.Start.Value()
	end, ok2 := a.End.Value()
	if !ok1 || !ok2 {
		return false
	}
	switch h.Type {
	case TypeSingleResidue:
		if !a.Consequence.Is(alteration.TermMissenseVariant) || start != end || start != h.Start {
			return false
		}
		return h.Variants == "" || (len(a.VariantResidues) == 1 && strings.Contains(h.Variants, a.VariantResidues))
	case TypeInframeIndel:
		return alteration.IsInframe(a) && start <= h.End && end >= h.Start
	}
	return false
}

// Store provides hotspot lookups backed by DuckDB.
type Store struct {
	db *sql.DB

	mu       sync.RWMutex
	memCache map[string][]*Hotspot // by upper-case symbol, sorted by start
}

// New creates the hotspot table in db if needed.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure hotspot schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS hotspots (
		hugo_symbol VARCHAR,
		protein_start INTEGER,
		protein_end INTEGER,
		variant_amino_acids VARCHAR,
		hotspot_type VARCHAR
	)`); err != nil {
		return err
	}
	s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_hotspots_gene ON hotspots (hugo_symbol)`)
	return nil
}

// Loaded returns true if the hotspot table has data.
func (s *Store) Loaded() bool {
	n, err := s.Count()
	return err == nil && n > 0
}

// Count returns the number of hotspots.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM hotspots").Scan(&count); err != nil {
		return 0, fmt.Errorf("count hotspots: %w", err)
	}
	return count, nil
}

// Load replaces the hotspots with the contents of a TSV file. Residues are
// written as "V600" for single residues or "746-750" for indel ranges;
// variant amino acids as "E:897|K:64".
func (s *Store) Load(tsvPath string) error {
	s.db.Exec(`DELETE FROM hotspots`)

	query := fmt.Sprintf(`INSERT INTO hotspots
		SELECT upper(trim(Hugo_Symbol)),
			CAST(regexp_extract(Residue, '(\d+)', 1) AS INTEGER),
			CAST(regexp_extract(Residue, '(\d+)\D*$', 1) AS INTEGER),
			regexp_replace(coalesce(Variant_Amino_Acid, ''), ':\d+\|?', '', 'g'),
			lower(trim(Type))
		FROM read_csv('%s', delim='\t', header=true,
			columns={
				'Hugo_Symbol': 'VARCHAR',
				'Residue': 'VARCHAR',
				'Variant_Amino_Acid': 'VARCHAR',
				'Type': 'VARCHAR'
			})
		WHERE regexp_matches(Residue, '\d')`, strings.ReplaceAll(tsvPath, "'", "''"))

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("loading hotspot data: %w", err)
	}
	s.mu.Lock()
	s.memCache = nil
	s.mu.Unlock()
	return nil
}

// PreloadToMemory loads every hotspot into per-gene sorted slices.
func (s *Store) PreloadToMemory() error {
	rows, err := s.db.Query(`SELECT hugo_symbol, protein_start, protein_end, variant_amino_acids, hotspot_type
		FROM hotspots ORDER BY hugo_symbol, protein_start`)
	if err != nil {
		return fmt.Errorf("query hotspots for preload: %w", err)
	}
	defer rows.Close()

	cache := make(map[string][]*Hotspot)
	for rows.Next() {
		h, err := scanHotspot(rows)
		if err != nil {
			return err
		}
		cache[h.HugoSymbol] = append(cache[h.HugoSymbol], h)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("preload rows: %w", err)
	}

	s.mu.Lock()
	s.memCache = cache
	s.mu.Unlock()
	return nil
}

func scanHotspot(rows *sql.Rows) (*Hotspot, error) {
	var (
		h        Hotspot
		variants sql.NullString
	)
	if err := rows.Scan(&h.HugoSymbol, &h.Start, &h.End, &variants, &h.Type); err != nil {
		return nil, fmt.Errorf("scan hotspot: %w", err)
	}
	h.Variants = variants.String
	return &h, nil
}

// Gene returns the hotspots of a gene ordered by start.
func (s *Store) Gene(ctx context.Context, hugoSymbol string) ([]*Hotspot, error) {
	symbol := strings.ToUpper(strings.TrimSpace(hugoSymbol))

	// Fast path: in-memory
	s.mu.RLock()
	cache := s.memCache
	s.mu.RUnlock()
	if cache != nil {
		return cache[symbol], nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT hugo_symbol, protein_start, protein_end, variant_amino_acids, hotspot_type
		FROM hotspots WHERE hugo_symbol = ? ORDER BY protein_start`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query hotspots of %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []*Hotspot
	for rows.Next() {
		h, err := scanHotspot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hotspots: %w", err)
	}
	return out, nil
}

// IsHotspot reports whether a falls on a hotspot of its gene.
func (s *Store) IsHotspot(ctx context.Context, a *alteration.Alteration) (bool, error) {
	if a == nil || a.Gene == nil {
		return false, nil
	}
	list, err := s.Gene(ctx, a.Gene.HugoSymbol)
	if err != nil {
		return false, err
	}
	end, ok := a.End.Value()
	if !ok {
		return false, nil
	}
	// Candidates start at or before the alteration end.
	n := sort.Search(len(list), func(i int) bool { return list[i].Start > end })
	for _, h := range list[:n] {
		if h.Matches(a) {
			return true, nil
		}
	}
	return false, nil
}
