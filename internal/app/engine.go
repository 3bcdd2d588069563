package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"telequiz/internal/domain"
)

// QuizRepository loads quiz definitions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ActiveQuizSource reports which quiz, if any, users may currently take.
// An empty id means no quiz is active.
type ActiveQuizSource interface {
	ActiveQuizID(ctx context.Context) (string, error)
}

// AttemptStore is the durable side of the engine: the most recent committed
// attempt per (user, quiz) pair. PutAttempt is an upsert.
type AttemptStore interface {
	LastAttempt(ctx context.Context, userID, quizID string) (domain.Attempt, bool, error)
	PutAttempt(ctx context.Context, attempt domain.Attempt) error
}

// ResultSink receives results the engine produces outside a request, i.e.
// when a session times out. The transport registers one to push the final
// score to the user.
type ResultSink interface {
	DeliverResult(result domain.Result)
}

// Engine is the per-user quiz state machine. It starts sessions, serves
// questions, grades answers, resolves timeouts, and commits exactly one
// terminal attempt per session even when an answer and the deadline fire
// concurrently for the same user.
type Engine struct {
	quizzes  QuizRepository
	active   ActiveQuizSource
	attempts AttemptStore
	sessions SessionStore
	timers   TimerService
	gate     *RetakeGate
	sink     ResultSink
	now      func() time.Time
}

func NewEngine(quizzes QuizRepository, active ActiveQuizSource, attempts AttemptStore, sessions SessionStore, timers TimerService) *Engine {
	return NewEngineWithClock(quizzes, active, attempts, sessions, timers, time.Now)
}

// NewEngineWithClock is test-only for deterministic timestamps.
func NewEngineWithClock(quizzes QuizRepository, active ActiveQuizSource, attempts AttemptStore, sessions SessionStore, timers TimerService, now func() time.Time) *Engine {
	return &Engine{
		quizzes:  quizzes,
		active:   active,
		attempts: attempts,
		sessions: sessions,
		timers:   timers,
		gate:     NewRetakeGate(attempts),
		now:      now,
	}
}

// SetResultSink registers the receiver for timeout-driven results. Must be
// called before the engine starts accepting sessions.
func (e *Engine) SetResultSink(sink ResultSink) {
	e.sink = sink
}

// CanStart runs the start preconditions without creating a session: an
// active quiz must exist and the retake gate must admit the user. It
// returns the quiz the session would run so the transport can announce it.
func (e *Engine) CanStart(ctx context.Context, userID string) (domain.Quiz, error) {
	quizID, err := e.active.ActiveQuizID(ctx)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("resolve active quiz: %w", err)
	}
	if quizID == "" {
		return domain.Quiz{}, domain.ErrNoActiveQuiz
	}

	quiz, err := e.quizzes.GetQuiz(ctx, quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		// Active pointer to a since-deleted quiz.
		return domain.Quiz{}, domain.ErrNoActiveQuiz
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz %s: %w", quizID, err)
	}

	ok, err := e.gate.MayStart(ctx, userID, quiz)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !ok {
		return domain.Quiz{}, domain.ErrAlreadyCompleted
	}
	return quiz, nil
}

// StartSession begins a run of the active quiz for the user and arms the
// session deadline. It returns the first question, or the final result when
// the quiz has no questions and the session commits immediately.
func (e *Engine) StartSession(ctx context.Context, userID, displayName string) (*domain.Prompt, *domain.Result, error) {
	quiz, err := e.CanStart(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	session := newSession(userID, displayName, quiz, e.now().Add(quiz.TimeLimit))
	session.mu.Lock()
	defer session.mu.Unlock()
	if !e.sessions.Create(userID, session) {
		return nil, nil, domain.ErrSessionInProgress
	}

	if len(session.questions) == 0 {
		result, err := e.commitLocked(ctx, session, 0, false)
		if err != nil {
			// The session was created by this very call; drop it so the
			// user is not stuck behind ErrSessionInProgress.
			e.sessions.Delete(userID)
			return nil, nil, err
		}
		return nil, result, nil
	}

	session.timer = e.timers.Arm(quiz.TimeLimit, func() {
		e.timeoutSession(session)
	})
	return e.promptLocked(session), nil, nil
}

// SubmitAnswer grades the user's choice for the question at questionIndex.
// Submissions with no matching session, or for a question the session has
// already advanced past, are stale and silently ignored (all three returns
// nil): late deliveries and duplicates arise naturally from the transport.
//
// On the last question the session commits as a normal completion and the
// final result is returned; otherwise the next question is returned.
func (e *Engine) SubmitAnswer(ctx context.Context, userID string, questionIndex, optionIndex int) (*domain.Prompt, *domain.Result, error) {
	session, ok := e.sessions.Get(userID)
	if !ok {
		return nil, nil, nil
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.done {
		return nil, nil, nil
	}
	if questionIndex != session.index {
		log.Printf("stale answer from user %s: question %d, session at %d", userID, questionIndex, session.index)
		return nil, nil, nil
	}

	question := session.questions[session.index]
	// An out-of-range option is simply incorrect.
	correct := optionIndex >= 0 && optionIndex == question.CorrectIndex

	next := session.index + 1
	if next == len(session.questions) {
		final := session.score
		if correct {
			final++
		}
		result, err := e.commitLocked(ctx, session, final, false)
		if err != nil {
			// Session state is untouched, so the caller may retry.
			return nil, nil, err
		}
		return nil, result, nil
	}

	if correct {
		session.score++
	}
	session.index = next
	return e.promptLocked(session), nil, nil
}

// HandleTimeout expires the user's current session, committing whatever
// progress accumulated so far; unanswered questions count as wrong. If the
// user has no session this is a no-op.
func (e *Engine) HandleTimeout(userID string) {
	if session, ok := e.sessions.Get(userID); ok {
		e.timeoutSession(session)
	}
}

// timeoutSession resolves the deadline of one specific session. Cancelling a
// wall timer is best effort, so a fire can arrive after its session committed
// and even after the same user started a fresh session. The session in the
// store must therefore be this exact instance, not merely one for the same
// user, before anything is committed.
func (e *Engine) timeoutSession(session *Session) {
	current, ok := e.sessions.Get(session.userID)
	if !ok || current != session {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.done {
		return
	}

	result, err := e.commitLocked(context.Background(), session, session.score, true)
	if err != nil {
		log.Printf("commit timed-out session for user %s: %v", session.userID, err)
		return
	}
	if e.sink != nil {
		e.sink.DeliverResult(*result)
	}
}

// commitLocked writes the terminal attempt and removes the session. The
// caller holds session.mu. On a persistence failure the session is left
// exactly as it was, so the operation can be retried.
func (e *Engine) commitLocked(ctx context.Context, session *Session, finalScore int, timedOut bool) (*domain.Result, error) {
	attempt := domain.Attempt{
		UserID:      session.userID,
		QuizID:      session.quizID,
		QuizVersion: session.quizVersion,
		Score:       finalScore,
		Total:       len(session.questions),
		DisplayName: session.displayName,
		CommittedAt: e.now(),
	}
	if err := e.attempts.PutAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("put attempt: %w", err)
	}

	session.done = true
	if session.timer != nil {
		session.timer.Cancel()
	}
	e.sessions.Delete(session.userID)

	return &domain.Result{
		UserID:      session.userID,
		DisplayName: session.displayName,
		QuizID:      session.quizID,
		QuizTitle:   session.quizTitle,
		Score:       finalScore,
		Total:       len(session.questions),
		TimedOut:    timedOut,
	}, nil
}

func (e *Engine) promptLocked(session *Session) *domain.Prompt {
	question := session.questions[session.index]
	return &domain.Prompt{
		QuizID:    session.quizID,
		QuizTitle: session.quizTitle,
		Index:     session.index,
		Total:     len(session.questions),
		Text:      question.Text,
		Options:   question.Options,
		Deadline:  session.deadline,
	}
}
