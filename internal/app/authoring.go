package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"telequiz/internal/domain"
)

// QuizAdminStore is the persistence surface for quiz authoring.
type QuizAdminStore interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	ActiveQuizID(ctx context.Context) (string, error)
	SetActiveQuizID(ctx context.Context, quizID string) error
	ListAttempts(ctx context.Context, quizID string) ([]domain.Attempt, error)
}

// QuizCacheInvalidator drops a cached quiz definition after a mutation.
type QuizCacheInvalidator interface {
	Invalidate(quizID string)
}

// Authoring covers the admin operations: creating quizzes from free text,
// pointing the active-quiz slot, bumping versions to allow retakes, and
// listing raw scores.
type Authoring struct {
	store    QuizAdminStore
	cache    QuizCacheInvalidator
	sweeper  *Sweeper
	scoreAge time.Duration
	now      func() time.Time
}

// NewAuthoring builds the authoring service. cache may be nil when no quiz
// cache is in front of the store. sweeper, when non-nil, expires attempts
// older than scoreAge before scores are listed.
func NewAuthoring(store QuizAdminStore, cache QuizCacheInvalidator, sweeper *Sweeper, scoreAge time.Duration) *Authoring {
	return &Authoring{
		store:    store,
		cache:    cache,
		sweeper:  sweeper,
		scoreAge: scoreAge,
		now:      time.Now,
	}
}

// AddQuiz parses the question block and saves a new quiz at version 1.
// Saving over an existing id replaces it outright, version included.
func (a *Authoring) AddQuiz(ctx context.Context, title string, timeLimit time.Duration, questionBlock string) (domain.Quiz, error) {
	if title == "" {
		return domain.Quiz{}, fmt.Errorf("quiz title is required")
	}
	if timeLimit <= 0 {
		return domain.Quiz{}, fmt.Errorf("time limit must be positive")
	}
	questions, err := ParseQuestions(questionBlock)
	if err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:        SlugID(title),
		Title:     title,
		Version:   1,
		TimeLimit: timeLimit,
		Questions: questions,
	}
	if err := a.store.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	a.invalidate(quiz.ID)
	return quiz, nil
}

// SetActive points the active-quiz slot at the given quiz.
func (a *Authoring) SetActive(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := a.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := a.store.SetActiveQuizID(ctx, quizID); err != nil {
		return domain.Quiz{}, fmt.Errorf("set active quiz: %w", err)
	}
	return quiz, nil
}

// BumpVersion increments the quiz version, re-admitting every user who
// completed the previous one.
func (a *Authoring) BumpVersion(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := a.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Version++
	if err := a.store.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	a.invalidate(quizID)
	return quiz, nil
}

// DeleteQuiz removes the quiz permanently and clears the active-quiz slot
// if it pointed there.
func (a *Authoring) DeleteQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := a.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := a.store.DeleteQuiz(ctx, quizID); err != nil {
		return domain.Quiz{}, fmt.Errorf("delete quiz: %w", err)
	}
	activeID, err := a.store.ActiveQuizID(ctx)
	if err == nil && activeID == quizID {
		if err := a.store.SetActiveQuizID(ctx, ""); err != nil {
			log.Printf("clear active quiz after delete: %v", err)
		}
	}
	a.invalidate(quizID)
	return quiz, nil
}

// ListQuizzes returns every stored quiz along with the active quiz id.
func (a *Authoring) ListQuizzes(ctx context.Context) ([]domain.Quiz, string, error) {
	quizzes, err := a.store.ListQuizzes(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list quizzes: %w", err)
	}
	activeID, err := a.store.ActiveQuizID(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("resolve active quiz: %w", err)
	}
	return quizzes, activeID, nil
}

// Scores lists the committed attempts for a quiz, expiring stale ones first.
func (a *Authoring) Scores(ctx context.Context, quizID string) (domain.Quiz, []domain.Attempt, error) {
	quiz, err := a.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	if a.sweeper != nil {
		if _, err := a.sweeper.Sweep(ctx, a.now(), a.scoreAge); err != nil {
			log.Printf("sweep before listing scores: %v", err)
		}
	}
	attempts, err := a.store.ListAttempts(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, nil, fmt.Errorf("list attempts: %w", err)
	}
	return quiz, attempts, nil
}

func (a *Authoring) invalidate(quizID string) {
	if a.cache != nil {
		a.cache.Invalidate(quizID)
	}
}
