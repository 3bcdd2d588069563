package app

import (
	"context"
	"fmt"

	"telequiz/internal/domain"
)

// RetakeGate decides whether a user may start a new session for a quiz.
// A user is admitted when they hold no attempt for the quiz, or when their
// stored attempt was taken against a version older than the current one.
type RetakeGate struct {
	attempts AttemptStore
}

func NewRetakeGate(attempts AttemptStore) *RetakeGate {
	return &RetakeGate{attempts: attempts}
}

// MayStart is side-effect free.
func (g *RetakeGate) MayStart(ctx context.Context, userID string, quiz domain.Quiz) (bool, error) {
	attempt, ok, err := g.attempts.LastAttempt(ctx, userID, quiz.ID)
	if err != nil {
		return false, fmt.Errorf("load last attempt: %w", err)
	}
	if !ok {
		return true, nil
	}
	return attempt.QuizVersion != quiz.Version, nil
}
