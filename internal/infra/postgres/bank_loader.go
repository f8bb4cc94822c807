package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chwazi-quiz/internal/domain"
	"chwazi-quiz/internal/infra/file"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BankLoader loads categories (questions as JSONB) from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadCategory(ctx context.Context, name string) (domain.Category, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT questions FROM categories WHERE name=$1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, domain.ErrUnknownCategory
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("load category: %w", err)
	}
	return decodeCategory(name, raw)
}

// decodeCategory applies the same checks as the JSON bank loader, so rows edited
// by hand cannot start a game that no answer can advance.
func decodeCategory(name string, raw []byte) (domain.Category, error) {
	category := domain.Category{Name: name}
	if err := json.Unmarshal(raw, &category.Questions); err != nil {
		return domain.Category{}, fmt.Errorf("unmarshal category: %w", err)
	}
	for i, q := range category.Questions {
		if err := file.Validate(q); err != nil {
			return domain.Category{}, fmt.Errorf("category %q question %d: %w", name, i, err)
		}
	}
	return category, nil
}

func (l *BankLoader) LoadCategoryNames(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT name FROM categories ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
