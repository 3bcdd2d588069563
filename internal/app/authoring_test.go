package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"telequiz/internal/app"
	"telequiz/internal/domain"
	"telequiz/internal/infra/memory"
)

func TestAddQuizParsesAndSaves(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := &recordingInvalidator{}
	authoring := app.NewAuthoring(store, cache, nil, 0)

	quiz, err := authoring.AddQuiz(ctx, "English Test 1", 20*time.Minute, "What is 2 + 2?+3,4,5+2")
	if err != nil {
		t.Fatalf("add quiz: %v", err)
	}
	if quiz.ID != "english_test_1" || quiz.Version != 1 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}

	stored, err := store.GetQuiz(ctx, "english_test_1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(stored.Questions) != 1 || stored.TimeLimit != 20*time.Minute {
		t.Fatalf("unexpected stored quiz %+v", stored)
	}
	if cache.count("english_test_1") != 1 {
		t.Fatalf("expected cache invalidation on add")
	}
}

func TestBumpVersionIncrementsAndInvalidates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := &recordingInvalidator{}
	authoring := app.NewAuthoring(store, cache, nil, 0)

	if _, err := authoring.AddQuiz(ctx, "Quiz", 5*time.Minute, "Q?+a,b+1"); err != nil {
		t.Fatalf("add quiz: %v", err)
	}

	quiz, err := authoring.BumpVersion(ctx, "quiz")
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if quiz.Version != 2 {
		t.Fatalf("expected version 2, got %d", quiz.Version)
	}
	if cache.count("quiz") != 2 {
		t.Fatalf("expected invalidation on add and bump, got %d", cache.count("quiz"))
	}

	if _, err := authoring.BumpVersion(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestDeleteQuizClearsActivePointer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	authoring := app.NewAuthoring(store, nil, nil, 0)

	if _, err := authoring.AddQuiz(ctx, "Quiz", 5*time.Minute, "Q?+a,b+1"); err != nil {
		t.Fatalf("add quiz: %v", err)
	}
	if _, err := authoring.SetActive(ctx, "quiz"); err != nil {
		t.Fatalf("set active: %v", err)
	}

	if _, err := authoring.DeleteQuiz(ctx, "quiz"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	activeID, err := store.ActiveQuizID(ctx)
	if err != nil {
		t.Fatalf("active id: %v", err)
	}
	if activeID != "" {
		t.Fatalf("expected active pointer cleared, got %q", activeID)
	}
}

func TestSetActiveUnknownQuiz(t *testing.T) {
	ctx := context.Background()
	authoring := app.NewAuthoring(memory.NewStore(), nil, nil, 0)

	if _, err := authoring.SetActive(ctx, "nope"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestScoresExpiresStaleAttemptsFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	sweeper := app.NewSweeper(store)
	authoring := app.NewAuthoring(store, nil, sweeper, 48*time.Hour)

	if _, err := authoring.AddQuiz(ctx, "Quiz", 5*time.Minute, "Q?+a,b+1"); err != nil {
		t.Fatalf("add quiz: %v", err)
	}
	now := time.Now()
	_ = store.PutAttempt(ctx, domain.Attempt{
		UserID: "stale", QuizID: "quiz", QuizVersion: 1,
		Score: 1, Total: 1, DisplayName: "Stale", CommittedAt: now.Add(-72 * time.Hour),
	})
	_ = store.PutAttempt(ctx, domain.Attempt{
		UserID: "fresh", QuizID: "quiz", QuizVersion: 1,
		Score: 1, Total: 1, DisplayName: "Fresh", CommittedAt: now,
	})

	_, attempts, err := authoring.Scores(ctx, "quiz")
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if len(attempts) != 1 || attempts[0].DisplayName != "Fresh" {
		t.Fatalf("expected only the fresh attempt, got %+v", attempts)
	}
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls map[string]int
}

func (r *recordingInvalidator) Invalidate(quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[quizID]++
}

func (r *recordingInvalidator) count(quizID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[quizID]
}
