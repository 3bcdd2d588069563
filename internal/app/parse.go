package app

import (
	"fmt"
	"strconv"
	"strings"

	"telequiz/internal/domain"
)

// ParseQuestions turns a free-text question block into structured questions.
// One question per line:
//
//	What is 2 + 2?+3,4,5+2
//
// i.e. question text, the comma-separated options, and the 1-based number
// of the correct option, joined by '+'. Blank lines are skipped.
func ParseQuestions(text string) ([]domain.Question, error) {
	var questions []domain.Question
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, "+")
		if len(parts) != 3 {
			return nil, fmt.Errorf("line %d: expected question+options+answer, got %d part(s)", i+1, len(parts))
		}

		prompt := strings.TrimSpace(parts[0])
		if prompt == "" {
			return nil, fmt.Errorf("line %d: empty question text", i+1)
		}

		rawOptions := strings.Split(parts[1], ",")
		options := make([]string, 0, len(rawOptions))
		for _, opt := range rawOptions {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				return nil, fmt.Errorf("line %d: empty option", i+1)
			}
			options = append(options, opt)
		}
		if len(options) < 2 {
			return nil, fmt.Errorf("line %d: need at least 2 options, got %d", i+1, len(options))
		}

		correct, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("line %d: correct answer number: %v", i+1, err)
		}
		if correct < 1 || correct > len(options) {
			return nil, fmt.Errorf("line %d: correct answer number %d out of range 1..%d", i+1, correct, len(options))
		}

		questions = append(questions, domain.Question{
			Text:         prompt,
			Options:      options,
			CorrectIndex: correct - 1,
		})
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions found")
	}
	return questions, nil
}

// SlugID derives a stable quiz id from its title.
func SlugID(title string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "_")
}
