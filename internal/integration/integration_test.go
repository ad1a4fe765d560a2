package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"solo-quiz-service/internal/app"
	"solo-quiz-service/internal/domain"
	pgbank "solo-quiz-service/internal/infra/postgres"
	pgmigrations "solo-quiz-service/internal/infra/postgres/migrations"
	infraredis "solo-quiz-service/internal/infra/redis"
	"solo-quiz-service/internal/trivia"
)

func TestPlaythroughEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	records, err := pgbank.NewBankLoader(pool).LoadBank(ctx)
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 seeded bank questions, got %d", len(records))
	}
	bank := trivia.NewBankFromRecords(records)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	progress := infraredis.NewProgressStore(redisClient, time.Hour)
	scores := infraredis.NewScoreStore(redisClient)
	service := app.NewSessionService(progress, scores, bank, bank)

	view, err := service.Start(ctx, "u1", app.StartRequest{Amount: 5, Source: domain.SourceLocal})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 5; i++ {
		if view.Question == nil {
			t.Fatalf("expected question at index %d", i)
		}
		if _, err := service.Select(ctx, "u1", view.Question.Options[0]); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if _, err := service.Lock(ctx, "u1"); err != nil {
			t.Fatalf("lock %d: %v", i, err)
		}
		view, err = service.Advance(ctx, "u1")
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	if view.State != domain.SessionFinished {
		t.Fatalf("expected finished session, got %s", view.State)
	}
	if len(view.HighScores) != 1 || view.HighScores[0].Total != 5 {
		t.Fatalf("expected one ledger entry over 5 questions, got %+v", view.HighScores)
	}

	// the finished session and the ledger both survive a round trip to redis
	stored, ok, err := progress.Load(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("load progress: ok=%v err=%v", ok, err)
	}
	if stored.FinishedAt == nil || stored.Score != view.Score {
		t.Fatalf("stored session out of sync: %+v", stored)
	}
	ledger, err := scores.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list scores: %v", err)
	}
	if len(ledger) != 1 || ledger[0].Score != view.Score {
		t.Fatalf("unexpected ledger: %+v", ledger)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
