package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type commandHandler func(ctx context.Context, msg *tgbotapi.Message)

// ownerOnly wraps an authoring command handler and rejects everyone but
// the configured bot owner.
func (b *Bot) ownerOnly(fn commandHandler) commandHandler {
	return func(ctx context.Context, msg *tgbotapi.Message) {
		if msg.From == nil || msg.From.ID != b.ownerID {
			b.send(msg.Chat.ID, "Sorry, this is an admin-only command.")
			return
		}
		fn(ctx, msg)
	}
}
