// Package duckdb stores the curated catalog (genes, alterations, evidences,
// drugs and the tumor-type ontology) in DuckDB and serves it to the cache.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding the catalog.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS genes (
		entrez_gene_id INTEGER PRIMARY KEY,
		hugo_symbol VARCHAR,
		oncogene BOOLEAN,
		tsg BOOLEAN
	)`,
	// Positions are ordinals; NULL means unset.
	`CREATE TABLE IF NOT EXISTS alterations (
		id INTEGER PRIMARY KEY,
		entrez_gene_id INTEGER,
		alteration_type VARCHAR,
		alteration VARCHAR,
		name VARCHAR,
		consequence VARCHAR,
		protein_start INTEGER,
		protein_end INTEGER,
		ref_residues VARCHAR,
		variant_residues VARCHAR,
		genomes VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS evidences (
		id INTEGER PRIMARY KEY,
		uuid VARCHAR,
		entrez_gene_id INTEGER,
		evidence_type VARCHAR,
		known_effect VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS evidence_alterations (
		evidence_id INTEGER,
		alteration_id INTEGER,
		PRIMARY KEY (evidence_id, alteration_id)
	)`,
	`CREATE TABLE IF NOT EXISTS drugs (
		id INTEGER PRIMARY KEY,
		name VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS tumor_types (
		code VARCHAR,
		name VARCHAR,
		main_type VARCHAR,
		level INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS sources (
		kind VARCHAR PRIMARY KEY,
		path VARCHAR,
		size BIGINT,
		mod_time TIMESTAMP
	)`,
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	// Index for per-gene reads
	s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_alterations_gene ON alterations (entrez_gene_id)`)
	s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_evidences_gene ON evidences (entrez_gene_id)`)
	return nil
}
