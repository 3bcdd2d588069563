package memory

import (
	"context"
	"testing"
	"time"

	"telequiz/internal/domain"
)

func TestQuizCacheHitsAndInvalidation(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.SaveQuiz(ctx, domain.Quiz{ID: "quiz_1", Title: "Quiz", Version: 1})

	source := &countingSource{Store: store}
	cache := NewQuizCache(source, time.Minute)

	if _, err := cache.GetQuiz(ctx, "quiz_1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if _, err := cache.GetQuiz(ctx, "quiz_1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected one source hit, got %d", source.calls)
	}

	_ = store.SaveQuiz(ctx, domain.Quiz{ID: "quiz_1", Title: "Quiz", Version: 2})
	cache.Invalidate("quiz_1")

	quiz, err := cache.GetQuiz(ctx, "quiz_1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Version != 2 {
		t.Fatalf("expected reload after invalidation, got version %d", quiz.Version)
	}
	if source.calls != 2 {
		t.Fatalf("expected second source hit after invalidation, got %d", source.calls)
	}
}

type countingSource struct {
	*Store
	calls int
}

func (s *countingSource) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	s.calls++
	return s.Store.GetQuiz(ctx, quizID)
}
