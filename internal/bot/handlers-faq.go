package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// FAQ runs in inline mode: the user types a question fragment after the bot
// name and picks a match from the popup.

func (b *Bot) handleFAQCommand(ctx context.Context, userID int64) {
	b.screens.Clear(userID)

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			createSwitchInlineButton("🔍 Открыть FAQ"),
		),
	)
	b.sendScreen(userID,
		fmt.Sprintf("🔍 Введи свой вопрос после @%s, чтобы получить ответ из FAQ.", b.bot.Self.UserName),
		&kb)
}

func (b *Bot) handleFAQInline(ctx context.Context, query *tgbotapi.InlineQuery) {
	userID := query.From.ID
	text := strings.ToLower(strings.TrimSpace(query.Query))

	questions, err := b.storage.Questions(ctx)
	if err != nil {
		b.logger.Error("Failed to get FAQ questions",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}

	var results []interface{}
	for _, q := range questions {
		if text != "" && !strings.Contains(strings.ToLower(q.Text), text) {
			continue
		}

		article := tgbotapi.NewInlineQueryResultArticleMarkdown(
			strconv.FormatInt(q.ID, 10),
			q.Text,
			fmt.Sprintf("❓ *%s*\n\n%s", q.Text, q.Answer),
		)
		article.Description = previewAnswer(q.Answer)

		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				createSwitchInlineButton("🔍 Другой вопрос"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🏠 Главное меню", cbStart),
			),
		)
		article.ReplyMarkup = &kb

		results = append(results, article)
	}

	if err := b.api.AnswerInlineQuery(query.ID, results); err != nil {
		b.logger.Error("Failed to answer FAQ inline query",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}

func previewAnswer(answer string) string {
	const maxPreview = 50
	if len(answer) <= maxPreview {
		return answer
	}
	runes := []rune(answer)
	if len(runes) <= maxPreview {
		return answer
	}
	return string(runes[:maxPreview])
}
