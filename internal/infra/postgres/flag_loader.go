package postgres

import (
	"context"

	"flagguess/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// FlagLoader reads the flags table.
type FlagLoader struct {
	pool *pgxpool.Pool
}

func NewFlagLoader(pool *pgxpool.Pool) *FlagLoader {
	return &FlagLoader{pool: pool}
}

func (l *FlagLoader) LoadFlags(ctx context.Context) ([]domain.Flag, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, country_name, image_ref FROM flags ORDER BY id`)
	if err != nil {
		return nil, domain.StorageError("load flags", err)
	}
	defer rows.Close()

	var flags []domain.Flag
	for rows.Next() {
		var f domain.Flag
		if err := rows.Scan(&f.ID, &f.CountryName, &f.ImageRef); err != nil {
			return nil, domain.StorageError("scan flag", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("load flags", err)
	}
	return flags, nil
}

// SaveFlags inserts flags, updating the image of countries already present.
// It returns how many rows were written.
func (l *FlagLoader) SaveFlags(ctx context.Context, flags []domain.Flag) (int, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, domain.StorageError("begin seed", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range flags {
		_, err := tx.Exec(ctx, `
			INSERT INTO flags (country_name, image_ref)
			VALUES ($1, $2)
			ON CONFLICT (country_name) DO UPDATE SET image_ref = EXCLUDED.image_ref
		`, f.CountryName, f.ImageRef)
		if err != nil {
			return 0, domain.StorageError("seed flag "+f.CountryName, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, domain.StorageError("commit seed", err)
	}
	return len(flags), nil
}
