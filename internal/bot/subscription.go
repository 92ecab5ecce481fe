package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// chatMemberChecker verifies the user is a member of every required chat.
// An API failure counts as not subscribed.
type chatMemberChecker struct {
	bot    *tgbotapi.BotAPI
	chats  []int64
	logger *zap.Logger
}

var _ SubscriptionChecker = (*chatMemberChecker)(nil)

func newChatMemberChecker(bot *tgbotapi.BotAPI, chats []int64, logger *zap.Logger) *chatMemberChecker {
	return &chatMemberChecker{bot: bot, chats: chats, logger: logger}
}

func (c *chatMemberChecker) IsSubscribed(userID int64) bool {
	for _, chatID := range c.chats {
		member, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				ChatID: chatID,
				UserID: userID,
			},
		})
		if err != nil {
			c.logger.Warn("Failed to check chat membership",
				zap.Int64("user_id", userID),
				zap.Int64("chat_id", chatID),
				zap.Error(err))
			return false
		}

		if member.Status == "left" || member.Status == "kicked" {
			return false
		}
	}
	return true
}
