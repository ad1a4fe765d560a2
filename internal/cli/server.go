package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"solo-quiz-service/internal/app"
	"solo-quiz-service/internal/config"
	"solo-quiz-service/internal/infra/memory"
	pgbank "solo-quiz-service/internal/infra/postgres"
	redisstore "solo-quiz-service/internal/infra/redis"
	transport "solo-quiz-service/internal/transport/http"
	"solo-quiz-service/internal/trivia"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	}
	progressTTL := config.Duration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	bank, err := buildBank(ctx, pool)
	if err != nil {
		return err
	}

	client := trivia.NewClient(cfg.Trivia.URL, config.Duration(cfg.Trivia.Timeout, trivia.DefaultTimeout))
	cache := memory.NewQuestionCache(client, config.Duration(cfg.Trivia.CacheTTL, time.Minute))
	api := trivia.NewSource(cache)

	var progress app.ProgressRepository
	var scores app.ScoreRepository
	if redisClient != nil {
		progress = redisstore.NewProgressStore(redisClient, progressTTL)
		scores = redisstore.NewScoreStore(redisClient)
	} else {
		progress = memory.NewProgressStore()
		scores = memory.NewScoreStore()
	}

	service := app.NewSessionService(progress, scores, api, bank).
		WithQuestionTimer(config.Duration(cfg.Quiz.QuestionTimer, app.QuestionTime))
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
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

// buildBank prefers the Postgres-backed question bank when configured and
// falls back to the embedded one.
func buildBank(ctx context.Context, pool *pgxpool.Pool) (*trivia.Bank, error) {
	if pool == nil {
		return trivia.NewBank()
	}
	records, err := pgbank.NewBankLoader(pool).LoadBank(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return trivia.NewBank()
	}
	return trivia.NewBankFromRecords(records), nil
}
