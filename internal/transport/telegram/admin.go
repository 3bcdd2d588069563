package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"telequiz/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const adminHelpText = `Admin commands:

/addquiz <Title>; <TimeLimitMinutes>
  Reply to the message containing the questions, one per line:
  Question+Option1,Option2,Option3+CorrectNumber

/setactive <QuizID>      make a quiz the one users can take
/updateversion <QuizID>  bump the version so everyone may retake it
/listquizzes             show all quizzes and their ids
/viewscores <QuizID>     show recorded scores for a quiz
/deletequiz <QuizID>     delete a quiz permanently`

func (b *Bot) handleAdminHelp(_ context.Context, msg *tgbotapi.Message) {
	b.send(msg.Chat.ID, adminHelpText)
}

func (b *Bot) handleAddQuiz(ctx context.Context, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil || msg.ReplyToMessage.Text == "" {
		b.send(msg.Chat.ID, "Reply to the message that contains your questions when using /addquiz.")
		return
	}

	parts := strings.Split(msg.CommandArguments(), ";")
	if len(parts) != 2 {
		b.send(msg.Chat.ID, "Usage: /addquiz <Title>; <TimeLimitMinutes>")
		return
	}
	title := strings.TrimSpace(parts[0])
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || minutes <= 0 {
		b.send(msg.Chat.ID, "The time limit must be a positive number of minutes.")
		return
	}

	quiz, err := b.authoring.AddQuiz(ctx, title, time.Duration(minutes)*time.Minute, msg.ReplyToMessage.Text)
	if err != nil {
		b.send(msg.Chat.ID, "Could not create the quiz: "+err.Error())
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf(
		"Quiz %q created with id %s: %d questions, %s time limit.",
		quiz.Title, quiz.ID, len(quiz.Questions), quiz.TimeLimit))
}

func (b *Bot) handleListQuizzes(ctx context.Context, msg *tgbotapi.Message) {
	quizzes, activeID, err := b.authoring.ListQuizzes(ctx)
	if err != nil {
		b.send(msg.Chat.ID, "Could not list quizzes: "+err.Error())
		return
	}
	if len(quizzes) == 0 {
		b.send(msg.Chat.ID, "No quizzes have been created yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Available quizzes:\n")
	for _, quiz := range quizzes {
		sb.WriteString(fmt.Sprintf("\n- %s (id %s, v%d, %d questions)", quiz.Title, quiz.ID, quiz.Version, len(quiz.Questions)))
		if quiz.ID == activeID {
			sb.WriteString(" [ACTIVE]")
		}
	}
	b.send(msg.Chat.ID, sb.String())
}

func (b *Bot) handleSetActive(ctx context.Context, msg *tgbotapi.Message) {
	quizID := strings.TrimSpace(msg.CommandArguments())
	if quizID == "" {
		b.send(msg.Chat.ID, "Usage: /setactive <QuizID>")
		return
	}
	quiz, err := b.authoring.SetActive(ctx, quizID)
	if err != nil {
		b.send(msg.Chat.ID, quizErrorText(err))
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf("%q is now the active quiz.", quiz.Title))
}

func (b *Bot) handleUpdateVersion(ctx context.Context, msg *tgbotapi.Message) {
	quizID := strings.TrimSpace(msg.CommandArguments())
	if quizID == "" {
		b.send(msg.Chat.ID, "Usage: /updateversion <QuizID>")
		return
	}
	quiz, err := b.authoring.BumpVersion(ctx, quizID)
	if err != nil {
		b.send(msg.Chat.ID, quizErrorText(err))
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf("%q is now at v%d. Users can retake it.", quiz.Title, quiz.Version))
}

func (b *Bot) handleViewScores(ctx context.Context, msg *tgbotapi.Message) {
	quizID := strings.TrimSpace(msg.CommandArguments())
	if quizID == "" {
		b.send(msg.Chat.ID, "Usage: /viewscores <QuizID>")
		return
	}
	quiz, attempts, err := b.authoring.Scores(ctx, quizID)
	if err != nil {
		b.send(msg.Chat.ID, quizErrorText(err))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scores for %q:\n", quiz.Title))
	if len(attempts) == 0 {
		sb.WriteString("\nNo scores recorded for this quiz yet.")
	}
	for _, attempt := range attempts {
		sb.WriteString(fmt.Sprintf("\n%s: %d/%d (v%d, %s)",
			attempt.DisplayName, attempt.Score, attempt.Total,
			attempt.QuizVersion, attempt.CommittedAt.UTC().Format("2006-01-02 15:04")))
	}
	b.send(msg.Chat.ID, sb.String())
}

func (b *Bot) handleDeleteQuiz(ctx context.Context, msg *tgbotapi.Message) {
	quizID := strings.TrimSpace(msg.CommandArguments())
	if quizID == "" {
		b.send(msg.Chat.ID, "Usage: /deletequiz <QuizID>")
		return
	}
	quiz, err := b.authoring.DeleteQuiz(ctx, quizID)
	if err != nil {
		b.send(msg.Chat.ID, quizErrorText(err))
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf("Quiz %q has been permanently deleted.", quiz.Title))
}

func quizErrorText(err error) string {
	if errors.Is(err, domain.ErrQuizNotFound) {
		return "Quiz id not found. Use /listquizzes to see the available ids."
	}
	return "Operation failed: " + err.Error()
}
