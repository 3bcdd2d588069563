package app

import (
	"sync"
	"time"

	"telequiz/internal/domain"
)

// SessionStore abstracts the process-wide table of in-flight sessions,
// keyed by user id. Exactly one session may exist per user at a time.
type SessionStore interface {
	// Create stores the session unless one already exists for the user.
	// The check and the insert are atomic.
	Create(userID string, s *Session) bool
	Get(userID string) (*Session, bool)
	Delete(userID string)
}

// Session is the ephemeral, in-memory state of one user's quiz run. The
// question set and quiz version are captured at start time; a later version
// bump does not affect a session already in flight.
//
// All mutation happens under mu. The done flag marks a committed session so
// that whichever of SubmitAnswer and HandleTimeout loses the commit race
// observes it and backs off.
type Session struct {
	mu sync.Mutex

	userID      string
	displayName string
	quizID      string
	quizTitle   string
	quizVersion int
	questions   []domain.Question

	index    int // current question, 0-based
	score    int
	deadline time.Time
	timer    TimerHandle
	done     bool
}

func newSession(userID, displayName string, quiz domain.Quiz, deadline time.Time) *Session {
	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	return &Session{
		userID:      userID,
		displayName: displayName,
		quizID:      quiz.ID,
		quizTitle:   quiz.Title,
		quizVersion: quiz.Version,
		questions:   questions,
		deadline:    deadline,
	}
}

// Progress reports the session's current question index and accumulated
// score as a snapshot.
func (s *Session) Progress() (index, score int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, s.score
}
