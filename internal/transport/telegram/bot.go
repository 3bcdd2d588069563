package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"telequiz/internal/app"
	"telequiz/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot is the Telegram transport: it translates chat updates into engine
// and authoring calls and formats their outputs back into messages. All
// quiz traffic happens in private chats, where the chat id equals the
// user id, which is what DeliverResult relies on to reach a user after a
// timeout.
type Bot struct {
	api       *tgbotapi.BotAPI
	engine    *app.Engine
	authoring *app.Authoring
	ownerID   int64

	mu          sync.Mutex
	pendingName map[int64]struct{} // chats asked for a full name after /start
}

func NewBot(token string, engine *app.Engine, authoring *app.Authoring, ownerID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram api: %w", err)
	}
	return &Bot{
		api:         api,
		engine:      engine,
		authoring:   authoring,
		ownerID:     ownerID,
		pendingName: make(map[int64]struct{}),
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	log.Printf("authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			}
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

// DeliverResult implements app.ResultSink for timeout-driven results.
func (b *Bot) DeliverResult(result domain.Result) {
	chatID, err := strconv.ParseInt(result.UserID, 10, 64)
	if err != nil {
		log.Printf("deliver result: bad user id %q: %v", result.UserID, err)
		return
	}
	b.send(chatID, formatResult(result))
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	b.mu.Lock()
	_, pending := b.pendingName[msg.Chat.ID]
	if pending {
		delete(b.pendingName, msg.Chat.ID)
	}
	b.mu.Unlock()
	if !pending {
		return
	}

	b.beginSession(ctx, msg, strings.TrimSpace(msg.Text))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "cancel":
		b.handleCancel(msg)
	case "admin":
		b.ownerOnly(b.handleAdminHelp)(ctx, msg)
	case "addquiz":
		b.ownerOnly(b.handleAddQuiz)(ctx, msg)
	case "listquizzes":
		b.ownerOnly(b.handleListQuizzes)(ctx, msg)
	case "setactive":
		b.ownerOnly(b.handleSetActive)(ctx, msg)
	case "updateversion":
		b.ownerOnly(b.handleUpdateVersion)(ctx, msg)
	case "viewscores":
		b.ownerOnly(b.handleViewScores)(ctx, msg)
	case "deletequiz":
		b.ownerOnly(b.handleDeleteQuiz)(ctx, msg)
	default:
		b.send(msg.Chat.ID, "Unknown command.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	quiz, err := b.engine.CanStart(ctx, userID)
	if err != nil {
		b.send(msg.Chat.ID, startErrorText(err))
		return
	}

	b.mu.Lock()
	b.pendingName[msg.Chat.ID] = struct{}{}
	b.mu.Unlock()

	b.send(msg.Chat.ID, fmt.Sprintf(
		"Welcome! Ready to take the %q quiz?\nYou will have %s to answer %d questions.\n\nPlease reply with your full name to begin, or send /cancel.",
		quiz.Title, quiz.TimeLimit, len(quiz.Questions)))
}

func (b *Bot) handleCancel(msg *tgbotapi.Message) {
	b.mu.Lock()
	_, pending := b.pendingName[msg.Chat.ID]
	delete(b.pendingName, msg.Chat.ID)
	b.mu.Unlock()
	if pending {
		b.send(msg.Chat.ID, "Quiz cancelled.")
	}
}

func (b *Bot) beginSession(ctx context.Context, msg *tgbotapi.Message, displayName string) {
	if displayName == "" {
		displayName = msg.From.FirstName
	}
	userID := strconv.FormatInt(msg.From.ID, 10)

	prompt, result, err := b.engine.StartSession(ctx, userID, displayName)
	if err != nil {
		b.send(msg.Chat.ID, startErrorText(err))
		return
	}
	if result != nil {
		b.send(msg.Chat.ID, formatResult(*result))
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf("Good luck, %s! The clock is running.", displayName))
	b.sendPrompt(msg.Chat.ID, prompt)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Acknowledge so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("answer callback: %v", err)
	}
	if cb.Message == nil || cb.From == nil {
		return
	}

	questionIndex, optionIndex, ok := decodeAnswerData(cb.Data)
	if !ok {
		return
	}

	userID := strconv.FormatInt(cb.From.ID, 10)
	prompt, result, err := b.engine.SubmitAnswer(ctx, userID, questionIndex, optionIndex)
	if err != nil {
		b.send(cb.Message.Chat.ID, "Something went wrong saving your answer, please tap it again.")
		return
	}
	switch {
	case result != nil:
		b.send(cb.Message.Chat.ID, formatResult(*result))
	case prompt != nil:
		b.sendPrompt(cb.Message.Chat.ID, prompt)
	}
	// Neither prompt nor result: a stale or duplicate tap, dropped.
}

func (b *Bot) sendPrompt(chatID int64, prompt *domain.Prompt) {
	text := promptText(prompt, time.Now())

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(prompt.Options))
	for i, option := range prompt.Options {
		label := fmt.Sprintf("%c. %s", 'A'+i, option)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, encodeAnswerData(prompt.Index, i)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send question to chat %d: %v", chatID, err)
	}
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("send message to chat %d: %v", chatID, err)
	}
}

// promptText renders a question with its position and the time left on the
// session clock. A deadline the timer has not resolved yet can already be in
// the past; show zero rather than a negative duration.
func promptText(prompt *domain.Prompt, now time.Time) string {
	remaining := prompt.Deadline.Sub(now).Round(time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("Question %d of %d (%s left)\n\n%s",
		prompt.Index+1, prompt.Total, remaining, prompt.Text)
}

func startErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoActiveQuiz):
		return "There is no active quiz at the moment. Please check back later!"
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return "You have already completed this quiz. You can take it again once the admin updates it."
	case errors.Is(err, domain.ErrSessionInProgress):
		return "You already have a quiz in progress. Answer the current question!"
	default:
		log.Printf("start session: %v", err)
		return "Something went wrong starting the quiz, please try again."
	}
}

func formatResult(result domain.Result) string {
	if result.TimedOut {
		return fmt.Sprintf("Time's up, %s!\nYour score for %q is %d out of %d.",
			result.DisplayName, result.QuizTitle, result.Score, result.Total)
	}
	return fmt.Sprintf("Quiz finished!\nThanks, %s. Your score for %q is %d out of %d.",
		result.DisplayName, result.QuizTitle, result.Score, result.Total)
}
