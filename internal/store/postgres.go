// Package store provides the concrete metadata and blob collaborators
// behind the lifecycle interfaces: PostgreSQL for object metadata, MinIO
// or a local directory for encrypted blobs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"burnlink/internal/lifecycle"
)

// OpenDB opens a PostgreSQL connection pool using DATABASE_URL.
func OpenDB(databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Validate connectivity immediately.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Postgres implements lifecycle.ObjectStore on a *sql.DB pool.
type Postgres struct {
	db *sql.DB
}

var _ lifecycle.ObjectStore = (*Postgres)(nil)

// NewPostgres wraps an open pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) CreateObject(ctx context.Context, obj *lifecycle.Object) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO objects (id, filename, storage_path, salt, password, max_downloads, downloads, expire_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
	`, obj.ID, obj.Filename, obj.StoragePath, obj.Salt, nullString(obj.Password),
		obj.MaxDownloads, obj.ExpireAt, obj.CreatedAt)
	return err
}

func (p *Postgres) GetObject(ctx context.Context, id string) (*lifecycle.Object, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, filename, storage_path, salt, password, max_downloads, downloads, expire_at, created_at
		FROM objects
		WHERE id = $1
	`, id)

	obj, err := scanObject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// ClaimDownload is the per-object serialization point for the quota
// invariant: a single conditional UPDATE means two racing final downloads
// can never both pass.
func (p *Postgres) ClaimDownload(ctx context.Context, id string) (int, bool, error) {
	var downloads int
	err := p.db.QueryRowContext(ctx, `
		UPDATE objects
		SET downloads = downloads + 1
		WHERE id = $1
		  AND (max_downloads = 0 OR downloads < max_downloads)
		RETURNING downloads
	`, id).Scan(&downloads)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return downloads, true, nil
}

func (p *Postgres) DeleteObject(ctx context.Context, id string) error {
	// Idempotent: deleting an unknown id affects zero rows and is fine.
	_, err := p.db.ExecContext(ctx, `DELETE FROM objects WHERE id = $1`, id)
	return err
}

func (p *Postgres) ListObjects(ctx context.Context) ([]*lifecycle.Object, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, filename, storage_path, salt, password, max_downloads, downloads, expire_at, created_at
		FROM objects
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*lifecycle.Object
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

func (p *Postgres) ListStoragePaths(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT storage_path FROM objects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (*lifecycle.Object, error) {
	var (
		obj      lifecycle.Object
		password sql.NullString
	)
	err := row.Scan(&obj.ID, &obj.Filename, &obj.StoragePath, &obj.Salt,
		&password, &obj.MaxDownloads, &obj.Downloads, &obj.ExpireAt, &obj.CreatedAt)
	if err != nil {
		return nil, err
	}
	obj.Password = password.String
	obj.ExpireAt = obj.ExpireAt.UTC()
	obj.CreatedAt = obj.CreatedAt.UTC()
	return &obj, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
