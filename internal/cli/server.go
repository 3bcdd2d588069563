package cli

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"telequiz/internal/app"
	"telequiz/internal/config"
	"telequiz/internal/domain"
	"telequiz/internal/infra/memory"
	"telequiz/internal/infra/postgres"
	rediscache "telequiz/internal/infra/redis"
	"telequiz/internal/transport/telegram"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// gatewayStore is the full persistence surface the bot needs; both the
// in-memory and the Postgres stores satisfy it.
type gatewayStore interface {
	app.QuizRepository
	app.ActiveQuizSource
	app.AttemptStore
	app.AttemptSweepStore
	app.QuizAdminStore
}

type quizCache interface {
	app.QuizRepository
	Invalidate(quizID string)
}

// NewStartCmd builds the CLI subcommand to run the bot.
func NewStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath)
		},
	}
}

func runBot(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not configured")
	}
	if cfg.Telegram.OwnerID == 0 {
		return fmt.Errorf("telegram owner id not configured")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store gatewayStore
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	} else {
		log.Printf("no postgres configured, using in-memory storage")
		store = seededMemoryStore(ctx)
	}

	quizTTL := config.Duration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var cache quizCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		cache = rediscache.NewQuizCache(client, store, quizTTL)
	} else {
		cache = memory.NewQuizCache(store, quizTTL)
	}

	engine := app.NewEngine(cache, store, store, memory.NewSessionStore(), app.NewWallTimers())
	sweeper := app.NewSweeper(store)

	sweepAge := config.Duration(cfg.Sweep.MaxAge, 48*time.Hour)
	sweepInterval := config.Duration(cfg.Sweep.Interval, time.Hour)
	authoring := app.NewAuthoring(store, cache, sweeper, sweepAge)

	bot, err := telegram.NewBot(cfg.Telegram.Token, engine, authoring, cfg.Telegram.OwnerID)
	if err != nil {
		return err
	}
	engine.SetResultSink(bot)

	go sweeper.Run(ctx, sweepInterval, sweepAge)

	log.Printf("starting quiz bot (sweep every %s, max attempt age %s)", sweepInterval, sweepAge)
	bot.Run(ctx)
	log.Printf("shutting down")
	return nil
}

// seededMemoryStore provides demo content when no database is configured.
func seededMemoryStore(ctx context.Context) *memory.Store {
	store := memory.NewStore()
	quiz := domain.Quiz{
		ID:        "demo_quiz",
		Title:     "Demo Quiz",
		Version:   1,
		TimeLimit: 5 * time.Minute,
		Questions: []domain.Question{
			{
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4", "5"},
				CorrectIndex: 1,
			},
			{
				Text:         "Which planet is closest to the sun?",
				Options:      []string{"Venus", "Earth", "Mercury"},
				CorrectIndex: 2,
			},
		},
	}
	_ = store.SaveQuiz(ctx, quiz)
	_ = store.SetActiveQuizID(ctx, quiz.ID)
	return store
}
