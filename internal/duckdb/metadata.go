package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// SourceCurrent reports whether the source recorded for kind matches fp,
// i.e. the file was already imported and has not changed since.
func (s *Store) SourceCurrent(ctx context.Context, kind string, fp FileFingerprint) (bool, error) {
	var (
		size    int64
		modTime time.Time
	)
	err := s.db.QueryRowContext(ctx, `SELECT size, mod_time FROM sources WHERE kind = ?`, kind).Scan(&size, &modTime)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query source %s: %w", kind, err)
	}
	return size == fp.Size && modTime.Equal(fp.ModTime.UTC().Truncate(time.Microsecond)), nil
}

// RecordSource stores fp as the imported source of kind.
func (s *Store) RecordSource(ctx context.Context, kind string, fp FileFingerprint) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO sources VALUES (?, ?, ?, ?)`,
		kind, fp.Path, fp.Size, fp.ModTime.UTC().Truncate(time.Microsecond))
	if err != nil {
		return fmt.Errorf("record source %s: %w", kind, err)
	}
	return nil
}
