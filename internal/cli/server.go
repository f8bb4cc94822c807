package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chwazi-quiz/internal/app"
	"chwazi-quiz/internal/config"
	"chwazi-quiz/internal/domain"
	"chwazi-quiz/internal/infra/memory"
	pgloader "chwazi-quiz/internal/infra/postgres"
	redisinfra "chwazi-quiz/internal/infra/redis"
	transport "chwazi-quiz/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var loader memory.BankLoader
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgloader.NewBankLoader(pool)
		log.Printf("question bank: postgres")
	} else {
		fileLoader, err := openFileLoader(cfg.Bank.Path)
		if err != nil {
			return err
		}
		loader = fileLoader
		log.Printf("question bank: %d categories from %q", len(fileLoader.Bank()), bankSource(cfg.Bank.Path))
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var bankRepo app.BankRepository
	if redisClient != nil {
		bankRepo = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		bankRepo = memory.NewBankRepository(loader, bankTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	service := app.NewGameService(store, bankRepo)
	if cfg.Game.Seed != 0 {
		service = service.WithSeed(cfg.Game.Seed)
	}

	defaultParticipants := cfg.Game.DefaultParticipants
	if defaultParticipants == 0 {
		defaultParticipants = domain.MinParticipants
	}
	wsHandler := transport.NewWSHandler(service, transport.Timing{
		AnswerReveal:        config.TTLDuration(cfg.Game.AnswerReveal, time.Second),
		ScoreboardDismiss:   config.TTLDuration(cfg.Game.ScoreboardDismiss, 5*time.Second),
		DefaultParticipants: defaultParticipants,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, wsHandler, os.Stdout),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting chwazi-quiz on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func bankSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
