// Package postgres provides the PostgreSQL-backed material catalog.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/schulmaterial/schulmaterial/internal/logging"
	"github.com/schulmaterial/schulmaterial/internal/material"
	"github.com/schulmaterial/schulmaterial/internal/metrics"
)

// Store is a PostgreSQL material catalog.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL store.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// UpdateConnectionMetrics updates the database connection metrics.
func (s *Store) UpdateConnectionMetrics() {
	stats := s.db.Stats()
	metrics.SetDBConnectionsOpen(stats.OpenConnections)
}

// Migrate runs SQL migration files.
func (s *Store) Migrate(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}

	for _, f := range files {
		logging.Info("running migration", zap.String("file", filepath.Base(f)))
		content, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
	}

	return nil
}

// selectColumns is the column list every row scan uses. The free-text
// columns are nullable in the schema so legacy imports load cleanly.
const selectColumns = `id, COALESCE(klasse, ''), COALESCE(fach, ''), COALESCE(materialform, ''), ` +
	`COALESCE(thema, ''), titel, COALESCE(beschreibung, ''), COALESCE(datei_pfad, ''), ` +
	`COALESCE(original_dateiname, ''), COALESCE(autor, 'Unbekannt'), datum`

func scanMaterial(row interface{ Scan(...any) error }) (material.Material, error) {
	var m material.Material
	err := row.Scan(&m.ID, &m.Klasse, &m.Fach, &m.Materialform, &m.Thema, &m.Titel,
		&m.Beschreibung, &m.DateiPfad, &m.OriginalDateiname, &m.Autor, &m.Datum)
	return m, err
}

// nullStr maps empty strings to SQL NULL.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Insert stores a new material and returns its id.
func (s *Store) Insert(ctx context.Context, f material.Fields) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	f = f.WithDefaults()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert_material", time.Since(start)) }()

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO materialien (klasse, fach, materialform, thema, titel, beschreibung, datei_pfad, original_dateiname, autor, datum)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		f.Klasse, f.Fach, f.Materialform, f.Thema, f.Titel, nullStr(f.Beschreibung),
		nullStr(f.DateiPfad), nullStr(f.OriginalDateiname), f.Autor, f.Datum).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert material: %w", err)
	}
	return id, nil
}

// Get returns a single material by id.
func (s *Store) Get(ctx context.Context, id int64) (material.Material, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("get_material", time.Since(start)) }()

	m, err := scanMaterial(s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM materialien WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return material.Material{}, material.ErrNotFound
	}
	if err != nil {
		return material.Material{}, fmt.Errorf("get material %d: %w", id, err)
	}
	return m, nil
}

// List returns all materials matching the filter, oldest first.
func (s *Store) List(ctx context.Context, f material.Filter) ([]material.Material, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("list_materials", time.Since(start)) }()

	query, args := listQuery(f)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	materials := []material.Material{}
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// Update replaces the mutable fields of a material.
func (s *Store) Update(ctx context.Context, id int64, f material.Fields) error {
	if err := f.Validate(); err != nil {
		return err
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("update_material", time.Since(start)) }()

	res, err := s.db.ExecContext(ctx,
		`UPDATE materialien
		 SET klasse = $1, fach = $2, materialform = $3, thema = $4, titel = $5,
		     beschreibung = $6, datei_pfad = $7, original_dateiname = $8, autor = $9, datum = $10
		 WHERE id = $11`,
		f.Klasse, f.Fach, f.Materialform, f.Thema, f.Titel, nullStr(f.Beschreibung),
		nullStr(f.DateiPfad), nullStr(f.OriginalDateiname), f.Autor, f.Datum, id)
	if err != nil {
		return fmt.Errorf("update material %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update material %d: %w", id, err)
	}
	if n == 0 {
		return material.ErrNotFound
	}
	return nil
}

// Delete removes a material row and returns the removed record, so
// callers can clean up the stored file afterwards.
func (s *Store) Delete(ctx context.Context, id int64) (material.Material, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("delete_material", time.Since(start)) }()

	m, err := scanMaterial(s.db.QueryRowContext(ctx,
		`DELETE FROM materialien WHERE id = $1 RETURNING `+selectColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return material.Material{}, material.ErrNotFound
	}
	if err != nil {
		return material.Material{}, fmt.Errorf("delete material %d: %w", id, err)
	}
	return m, nil
}

// Count returns the number of materials in the catalog.
func (s *Store) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("count_materials", time.Since(start)) }()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM materialien`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count materials: %w", err)
	}
	return n, nil
}
