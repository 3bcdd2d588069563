package domain

import "errors"

var (
	// ErrNoActiveQuiz is returned when no quiz is currently designated active.
	ErrNoActiveQuiz = errors.New("no active quiz")
	// ErrAlreadyCompleted is returned when the user already holds an attempt
	// for the quiz's current version.
	ErrAlreadyCompleted = errors.New("quiz already completed")
	// ErrSessionInProgress is returned when the user tries to start a second
	// session while one is still running.
	ErrSessionInProgress = errors.New("quiz session already in progress")
	// ErrQuizNotFound indicates the quiz definition could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
)
