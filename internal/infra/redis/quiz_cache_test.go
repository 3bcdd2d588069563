package redis

import (
	"context"
	"testing"
	"time"

	"telequiz/internal/domain"
	"telequiz/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuizCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := memory.NewStore()
	_ = store.SaveQuiz(ctx, sampleQuiz())

	source := &countingSource{store: store}
	cache := NewQuizCache(newClient(mr), source, time.Minute)

	quiz, err := cache.GetQuiz(ctx, "quiz_1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].CorrectIndex != 1 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if !mr.Exists("quiz:def:quiz_1") {
		t.Fatalf("expected redis key to be set")
	}

	// Second read is served from Redis.
	if _, err := cache.GetQuiz(ctx, "quiz_1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls=%d", source.calls)
	}
}

func TestQuizCacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := memory.NewStore()
	_ = store.SaveQuiz(ctx, sampleQuiz())

	source := &countingSource{store: store}
	cache := NewQuizCache(newClient(mr), source, time.Minute)

	if _, err := cache.GetQuiz(ctx, "quiz_1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}

	bumped := sampleQuiz()
	bumped.Version = 2
	_ = store.SaveQuiz(ctx, bumped)
	cache.Invalidate("quiz_1")

	if mr.Exists("quiz:def:quiz_1") {
		t.Fatalf("expected redis key removed on invalidation")
	}
	quiz, err := cache.GetQuiz(ctx, "quiz_1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Version != 2 || source.calls != 2 {
		t.Fatalf("expected reload after invalidation, version=%d calls=%d", quiz.Version, source.calls)
	}
}

type countingSource struct {
	store *memory.Store
	calls int
}

func (s *countingSource) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	s.calls++
	return s.store.GetQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        "quiz_1",
		Title:     "Quiz One",
		Version:   1,
		TimeLimit: 10 * time.Minute,
		Questions: []domain.Question{
			{
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4", "5"},
				CorrectIndex: 1,
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
