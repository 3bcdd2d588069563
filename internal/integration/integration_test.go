package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"telequiz/internal/app"
	"telequiz/internal/domain"
	"telequiz/internal/infra/memory"
	pgstore "telequiz/internal/infra/postgres"
	pgmigrations "telequiz/internal/infra/postgres/migrations"
	rediscache "telequiz/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestQuizRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := pgstore.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	cache := rediscache.NewQuizCache(redisClient, store, 5*time.Minute)

	authoring := app.NewAuthoring(store, cache, app.NewSweeper(store), 48*time.Hour)
	quiz, err := authoring.AddQuiz(ctx, "Quiz One", 10*time.Minute,
		"What is 2 + 2?+3,4,5+2\nCapital of France?+Paris,London+1")
	if err != nil {
		t.Fatalf("add quiz: %v", err)
	}
	if _, err := authoring.SetActive(ctx, quiz.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}

	engine := app.NewEngine(cache, store, store, memory.NewSessionStore(), app.NewWallTimers())

	prompt, _, err := engine.StartSession(ctx, "u1", "Alice")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if prompt.Total != 2 || prompt.Index != 0 {
		t.Fatalf("expected question 0 of 2, got %+v", prompt)
	}

	if _, _, err := engine.SubmitAnswer(ctx, "u1", 0, 1); err != nil { // correct
		t.Fatalf("submit: %v", err)
	}
	_, result, err := engine.SubmitAnswer(ctx, "u1", 1, 1) // wrong
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result == nil || result.Score != 1 || result.Total != 2 {
		t.Fatalf("expected 1/2, got %+v", result)
	}

	attempt, ok, err := store.LastAttempt(ctx, "u1", quiz.ID)
	if err != nil || !ok {
		t.Fatalf("expected persisted attempt, ok=%v err=%v", ok, err)
	}
	if attempt.Score != 1 || attempt.Total != 2 || attempt.QuizVersion != 1 {
		t.Fatalf("unexpected attempt %+v", attempt)
	}

	// Same version blocks a retake; a bump re-admits.
	if _, _, err := engine.StartSession(ctx, "u1", "Alice"); err != domain.ErrAlreadyCompleted {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if _, err := authoring.BumpVersion(ctx, quiz.ID); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if _, _, err := engine.StartSession(ctx, "u1", "Alice"); err != nil {
		t.Fatalf("expected retake after bump: %v", err)
	}

	// Sweep removes nothing while the attempt is fresh.
	removed, err := app.NewSweeper(store).Sweep(ctx, time.Now(), 48*time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected no fresh attempts removed, got %d", removed)
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

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
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
