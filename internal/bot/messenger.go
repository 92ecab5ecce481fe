package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMessenger adapts the Bot API client to the Messenger surface the
// handlers use.
type telegramMessenger struct {
	bot *tgbotapi.BotAPI
}

var _ Messenger = (*telegramMessenger)(nil)

func newTelegramMessenger(bot *tgbotapi.BotAPI) *telegramMessenger {
	return &telegramMessenger{bot: bot}
}

func (m *telegramMessenger) SendText(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}

	sent, err := m.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

func (m *telegramMessenger) SendPhoto(chatID int64, photo, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewPhoto(chatID, photoFile(photo))
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}

	sent, err := m.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send photo: %w", err)
	}
	return sent.MessageID, nil
}

func (m *telegramMessenger) EditText(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	var msg tgbotapi.Chattable
	if keyboard != nil {
		cfg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *keyboard)
		msg = cfg
	} else {
		msg = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}

	if _, err := m.bot.Send(msg); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (m *telegramMessenger) DeleteMessage(chatID int64, messageID int) error {
	if _, err := m.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (m *telegramMessenger) AnswerInlineQuery(queryID string, results []interface{}) error {
	_, err := m.bot.Request(tgbotapi.InlineConfig{
		InlineQueryID: queryID,
		Results:       results,
		CacheTime:     0,
	})
	if err != nil {
		return fmt.Errorf("answer inline query: %w", err)
	}
	return nil
}

func (m *telegramMessenger) AnswerCallback(callbackID string) error {
	if _, err := m.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// Product images are stored either as Telegram file ids or as plain URLs.
func photoFile(photo string) tgbotapi.RequestFileData {
	if strings.HasPrefix(photo, "http://") || strings.HasPrefix(photo, "https://") {
		return tgbotapi.FileURL(photo)
	}
	return tgbotapi.FileID(photo)
}
