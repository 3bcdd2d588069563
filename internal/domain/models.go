package domain

import "time"

// Question is a single multiple-choice question. CorrectIndex is a 0-based
// index into Options; a saved question always has at least two options.
type Question struct {
	Text         string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctOptionIndex"`
}

// Quiz is a named, versioned, ordered set of questions with a time limit.
// Question order is significant and fixed for a given version; bumping
// Version is the only mechanism that re-admits users who already completed
// the quiz.
type Quiz struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Version   int           `json:"version"`
	TimeLimit time.Duration `json:"timeLimit"`
	Questions []Question    `json:"questions"`
}

// Attempt is the durable, terminal record of one completed (or timed-out)
// session. At most one Attempt exists per (UserID, QuizID) pair.
type Attempt struct {
	UserID      string    `json:"userId"`
	QuizID      string    `json:"quizId"`
	QuizVersion int       `json:"quizVersion"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	DisplayName string    `json:"displayName"`
	CommittedAt time.Time `json:"committedAt"`
}

// Prompt is one question prepared for delivery over the chat transport.
type Prompt struct {
	QuizID    string
	QuizTitle string
	Index     int // 0-based question index
	Total     int
	Text      string
	Options   []string
	Deadline  time.Time
}

// Result is the terminal outcome of a session, for delivery to the user.
type Result struct {
	UserID      string
	DisplayName string
	QuizID      string
	QuizTitle   string
	Score       int
	Total       int
	TimedOut    bool
}
