package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kuzven/tgshopbot/internal/storage"
)

func (b *Bot) handleStart(ctx context.Context, from *tgbotapi.User) {
	if err := b.storage.UpsertUser(ctx, from.ID, from.UserName, from.FirstName, from.LastName); err != nil {
		b.logger.Error("Failed to upsert user",
			zap.Int64("user_id", from.ID),
			zap.Error(err))
	}

	b.sendMainMenu(ctx, from.ID, from.FirstName)
}

// sendMainMenu retires the previous screen and renders either the main menu
// or, for users outside the channel/group, the subscribe prompt with no
// catalog access.
func (b *Bot) sendMainMenu(ctx context.Context, userID int64, firstName string) {
	b.screens.Clear(userID)

	if err := b.sessions.Clear(ctx, userID); err != nil {
		b.logger.Warn("Failed to clear session on main menu",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}

	if !b.subs.IsSubscribed(userID) {
		b.sendScreen(userID,
			fmt.Sprintf("❗ %s, ты не подписан на наш канал и группу!\n\nПодпишись, затем нажми /start", firstName),
			b.createSubscribeKeyboard())
		return
	}

	text := fmt.Sprintf("%s, добро пожаловать в главное меню бота 👋\n\nВыбери раздел 👇", firstName)

	if note := b.pendingOrderNote(ctx, userID); note != "" {
		text += "\n\n" + note
	}

	b.sendScreen(userID, text, b.createMainMenuKeyboard())
}

// pendingOrderNote reminds the user about their latest unpaid order.
func (b *Bot) pendingOrderNote(ctx context.Context, userID int64) string {
	order, err := b.storage.LatestOrder(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.logger.Warn("Failed to get latest order",
				zap.Int64("user_id", userID),
				zap.Error(err))
		}
		return ""
	}

	if order.PaymentStatus != storage.OrderStatusNew {
		return ""
	}
	return fmt.Sprintf("⏳ Заказ #%d на сумму %.2f ₽ ожидает оплаты.", order.ID, order.Total)
}

func (b *Bot) handleHelp(ctx context.Context, userID int64) {
	b.screens.Clear(userID)

	helpText := `Я бот-магазин. Доступные команды:
/start - Главное меню
/cart - Корзина
/faq - Поиск по частым вопросам
/help - Эта справка

Выбирай товары в каталоге, добавляй их в корзину и оформляй заказ.`

	b.sendScreen(userID, helpText, createMainMenuOnlyKeyboard())
}
