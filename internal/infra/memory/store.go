package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"telequiz/internal/domain"
)

// Store is an in-memory persistence gateway: quizzes, the active-quiz
// pointer, and the most recent committed attempt per (user, quiz) pair.
// Useful for tests and for running the bot without external storage.
type Store struct {
	mu       sync.RWMutex
	quizzes  map[string]domain.Quiz
	activeID string
	attempts map[string]map[string]domain.Attempt // userID -> quizID -> attempt
}

func NewStore() *Store {
	return &Store{
		quizzes:  make(map[string]domain.Quiz),
		attempts: make(map[string]map[string]domain.Attempt),
	}
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, quizID)
	return nil
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quizzes := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		quizzes = append(quizzes, quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}

func (s *Store) ActiveQuizID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID, nil
}

func (s *Store) SetActiveQuizID(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = quizID
	return nil
}

func (s *Store) LastAttempt(_ context.Context, userID, quizID string) (domain.Attempt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[userID][quizID]
	return attempt, ok, nil
}

func (s *Store) PutAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byQuiz, ok := s.attempts[attempt.UserID]
	if !ok {
		byQuiz = make(map[string]domain.Attempt)
		s.attempts[attempt.UserID] = byQuiz
	}
	byQuiz[attempt.QuizID] = attempt
	return nil
}

func (s *Store) DeleteAttempt(_ context.Context, userID, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteAttemptLocked(userID, quizID)
	return nil
}

func (s *Store) ListAttempts(_ context.Context, quizID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var attempts []domain.Attempt
	for _, byQuiz := range s.attempts {
		if attempt, ok := byQuiz[quizID]; ok {
			attempts = append(attempts, attempt)
		}
	}
	sort.Slice(attempts, func(i, j int) bool {
		if attempts[i].Score != attempts[j].Score {
			return attempts[i].Score > attempts[j].Score
		}
		return attempts[i].DisplayName < attempts[j].DisplayName
	})
	return attempts, nil
}

func (s *Store) DeleteAttemptsBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for userID, byQuiz := range s.attempts {
		for quizID, attempt := range byQuiz {
			if attempt.CommittedAt.Before(cutoff) {
				s.deleteAttemptLocked(userID, quizID)
				removed++
			}
		}
	}
	return removed, nil
}

func (s *Store) deleteAttemptLocked(userID, quizID string) {
	byQuiz, ok := s.attempts[userID]
	if !ok {
		return
	}
	delete(byQuiz, quizID)
	if len(byQuiz) == 0 {
		delete(s.attempts, userID)
	}
}
