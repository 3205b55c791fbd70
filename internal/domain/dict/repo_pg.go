package dict

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const itemCols = `id, set_code, code, name, COALESCE(spell, ''), status, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.SetCode, &it.Code, &it.Name, &it.Spell, &it.Status, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Search matches active items by code, name or spell prefix. An empty
// query lists the whole set, which the form uses for small enumerations
// like RC016.
func (r *repoPG) Search(ctx context.Context, setCode, query string, limit, offset int) ([]*Item, int, error) {
	where := `set_code = $1 AND status = 1`
	args := []interface{}{setCode}
	if query != "" {
		where += ` AND (code ILIKE $2 || '%' OR name ILIKE '%' || $2 || '%' OR spell ILIKE $2 || '%')`
		args = append(args, query)
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM dict_item WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count dict items: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM dict_item WHERE %s ORDER BY code LIMIT $%d OFFSET $%d`,
		itemCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query dict items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan dict item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate dict items: %w", err)
	}
	return items, total, nil
}

func (r *repoPG) Name(ctx context.Context, setCode, code string) (string, bool, error) {
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT name FROM dict_item WHERE set_code = $1 AND code = $2 AND status = 1 LIMIT 1`,
		setCode, code,
	).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("look up dict name: %w", err)
	}
	return name, true, nil
}

func (r *repoPG) Sets(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT set_code FROM dict_item WHERE status = 1 ORDER BY set_code`)
	if err != nil {
		return nil, fmt.Errorf("query dict sets: %w", err)
	}
	defer rows.Close()

	var sets []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan dict set: %w", err)
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}
