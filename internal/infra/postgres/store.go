package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telequiz/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store is the Postgres persistence gateway. Quiz definitions live as
// JSONB; attempts are a plain table keyed by (user_id, quiz_id) so
// PutAttempt is a single upsert and the sweeper is one cutoff delete.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		quiz.ID, raw)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *Store) ActiveQuizID(ctx context.Context) (string, error) {
	var quizID string
	err := s.pool.QueryRow(ctx, `SELECT quiz_id FROM active_quiz`).Scan(&quizID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load active quiz: %w", err)
	}
	return quizID, nil
}

func (s *Store) SetActiveQuizID(ctx context.Context, quizID string) error {
	if quizID == "" {
		if _, err := s.pool.Exec(ctx, `DELETE FROM active_quiz`); err != nil {
			return fmt.Errorf("clear active quiz: %w", err)
		}
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO active_quiz (slot, quiz_id) VALUES (TRUE, $1)
		 ON CONFLICT (slot) DO UPDATE SET quiz_id = EXCLUDED.quiz_id`,
		quizID)
	if err != nil {
		return fmt.Errorf("set active quiz: %w", err)
	}
	return nil
}

func (s *Store) LastAttempt(ctx context.Context, userID, quizID string) (domain.Attempt, bool, error) {
	var attempt domain.Attempt
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, quiz_id, quiz_version, score, total, display_name, committed_at
		 FROM attempts WHERE user_id=$1 AND quiz_id=$2`,
		userID, quizID).Scan(
		&attempt.UserID, &attempt.QuizID, &attempt.QuizVersion,
		&attempt.Score, &attempt.Total, &attempt.DisplayName, &attempt.CommittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, false, nil
	}
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("load attempt: %w", err)
	}
	return attempt, true, nil
}

func (s *Store) PutAttempt(ctx context.Context, attempt domain.Attempt) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO attempts (user_id, quiz_id, quiz_version, score, total, display_name, committed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, quiz_id) DO UPDATE SET
		   quiz_version = EXCLUDED.quiz_version,
		   score        = EXCLUDED.score,
		   total        = EXCLUDED.total,
		   display_name = EXCLUDED.display_name,
		   committed_at = EXCLUDED.committed_at`,
		attempt.UserID, attempt.QuizID, attempt.QuizVersion,
		attempt.Score, attempt.Total, attempt.DisplayName, attempt.CommittedAt)
	if err != nil {
		return fmt.Errorf("put attempt: %w", err)
	}
	return nil
}

func (s *Store) DeleteAttempt(ctx context.Context, userID, quizID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM attempts WHERE user_id=$1 AND quiz_id=$2`, userID, quizID); err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	return nil
}

func (s *Store) ListAttempts(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, quiz_id, quiz_version, score, total, display_name, committed_at
		 FROM attempts WHERE quiz_id=$1
		 ORDER BY score DESC, display_name`,
		quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var attempt domain.Attempt
		if err := rows.Scan(
			&attempt.UserID, &attempt.QuizID, &attempt.QuizVersion,
			&attempt.Score, &attempt.Total, &attempt.DisplayName, &attempt.CommittedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

func (s *Store) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM attempts WHERE committed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired attempts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
