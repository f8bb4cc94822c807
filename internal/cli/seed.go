package cli

import (
	"context"
	"fmt"
	"log"

	"chwazi-quiz/internal/config"
	"chwazi-quiz/internal/infra/file"
	"chwazi-quiz/internal/infra/postgres"
	redisinfra "chwazi-quiz/internal/infra/redis"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads a JSON question bank into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [bank.json]",
		Short: "Migrate and load a question bank into Postgres (built-in bank when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runSeed(cmd.Context(), *configPath, path)
		},
	}
}

func runSeed(ctx context.Context, configPath, bankPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	loader, err := openFileLoader(bankPath)
	if err != nil {
		return err
	}

	db := postgres.OpenDB(cfg.Postgres.URL)
	defer db.Close()

	n, err := postgres.NewSeeder(db).Seed(ctx, loader.Bank())
	if err != nil {
		return err
	}
	log.Printf("seeded %d categories", n)
	return clearBankCache(ctx, cfg)
}

// clearBankCache drops the Redis bank cache so running servers pick up the new
// bank on their next load instead of after the TTL.
func clearBankCache(ctx context.Context, cfg config.Config) error {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()
	if err := redisinfra.InvalidateBankCache(ctx, client); err != nil {
		return fmt.Errorf("clear bank cache: %w", err)
	}
	log.Printf("bank cache cleared")
	return nil
}

func openFileLoader(path string) (*file.BankLoader, error) {
	if path == "" {
		return file.NewDefaultBankLoader()
	}
	return file.NewBankLoaderFromPath(path)
}
