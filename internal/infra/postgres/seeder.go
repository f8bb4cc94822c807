package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chwazi-quiz/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type categoryRow struct {
	bun.BaseModel `bun:"table:categories"`

	Name      string            `bun:"name,pk"`
	Position  int               `bun:"position,notnull"`
	Questions []domain.Question `bun:"questions,type:jsonb,notnull"`
	UpdatedAt time.Time         `bun:"updated_at,notnull"`
}

// OpenDB opens a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Seeder upserts a question bank into the categories table.
type Seeder struct {
	db  *bun.DB
	now func() time.Time
}

func NewSeeder(db *bun.DB) *Seeder {
	return &Seeder{db: db, now: time.Now}
}

// Seed writes every category of bank in one transaction, keeping bank order.
func (s *Seeder) Seed(ctx context.Context, bank domain.Bank) (int, error) {
	if len(bank) == 0 {
		return 0, nil
	}
	now := s.now()
	rows := make([]categoryRow, 0, len(bank))
	for i, c := range bank {
		questions := c.Questions
		if questions == nil {
			questions = []domain.Question{}
		}
		rows = append(rows, categoryRow{
			Name:      c.Name,
			Position:  i,
			Questions: questions,
			UpdatedAt: now,
		})
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (name) DO UPDATE").
			Set("position = EXCLUDED.position").
			Set("questions = EXCLUDED.questions").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("seed categories: %w", err)
	}
	return len(rows), nil
}
