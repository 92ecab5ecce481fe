package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kuzven/tgshopbot/internal/fulfillment"
	"github.com/kuzven/tgshopbot/internal/payment"
	"github.com/kuzven/tgshopbot/internal/session"
	"github.com/kuzven/tgshopbot/internal/storage"
)

// CHECKOUT FLOW

func (b *Bot) handleCheckout(ctx context.Context, userID int64) {
	err := b.sessions.Save(ctx, userID, session.State{Step: session.StepAwaitDelivery})
	if err != nil {
		b.logger.Error("Failed to save session",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(userID, "Произошла ошибка, попробуй ещё раз.")
		return
	}

	b.screens.Clear(userID)
	b.sendScreen(userID, "Введи данные для доставки (адрес, телефон и др.) 👇", nil)
}

// handleDeliveryInfo creates the order from the current cart in a single
// storage transaction, requests a payment intent, and starts the status
// watch. On a storage failure the pending state is kept so the user can
// resend the delivery info.
func (b *Bot) handleDeliveryInfo(ctx context.Context, userID int64, deliveryInfo string) {
	order, err := b.storage.CreateOrder(ctx, userID, deliveryInfo)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.sendError(userID, "Ошибка! Твой профиль не найден, нажми /start.")
			return
		}
		b.logger.Error("Failed to create order",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(userID, "Не удалось оформить заказ, отправь данные ещё раз.")
		return
	}

	b.logger.Info("Order created",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.ID),
		zap.Float64("total", order.Total),
		zap.Int("lines", len(order.Lines)))

	if err := b.sessions.Clear(ctx, userID); err != nil {
		b.logger.Warn("Failed to clear session",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}

	pay, err := b.gateway.CreatePayment(ctx, payment.CreateRequest{
		Amount:         order.Total,
		Currency:       b.cfg.PaymentCurrency,
		Description:    fmt.Sprintf("Заказ #%d", order.ID),
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		b.logger.Error("Failed to create payment",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		b.screens.Clear(userID)
		b.sendScreen(userID,
			fmt.Sprintf("✅ Заказ #%d оформлен, но оплата сейчас недоступна. Попробуй позже через главное меню.", order.ID),
			createMainMenuOnlyKeyboard())
		return
	}

	if err := b.storage.SetOrderPayment(ctx, order.ID, pay.ID, storage.OrderStatusNew); err != nil {
		b.logger.Error("Failed to attach payment to order",
			zap.Int64("order_id", order.ID),
			zap.String("payment_id", pay.ID),
			zap.Error(err))
	}

	b.screens.Clear(userID)
	b.sendScreen(userID,
		fmt.Sprintf("✅ Заказ #%d на сумму %.2f ₽ оформлен!\n\nОплати по ссылке 👇", order.ID, order.Total),
		createPaymentKeyboard(pay.RedirectURL))

	go b.watchPayment(ctx, order, pay.ID)
}

// watchPayment runs for the lifetime of one payment: it blocks on the
// watcher until a terminal status, then records the outcome and notifies
// the user. It holds the per-user lock only while rendering the outcome.
func (b *Bot) watchPayment(ctx context.Context, order *storage.Order, paymentID string) {
	status, err := b.watcher.Wait(ctx, paymentID)
	if err != nil {
		b.logger.Warn("Payment watch stopped",
			zap.Int64("order_id", order.ID),
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return
	}

	lock := b.userLock(order.TelegramID)
	lock.Lock()
	defer lock.Unlock()

	switch status {
	case payment.StatusSucceeded:
		b.completeOrder(ctx, order, paymentID)

	case payment.StatusFailed, payment.StatusCanceled:
		orderStatus := storage.OrderStatusFailed
		if status == payment.StatusCanceled {
			orderStatus = storage.OrderStatusCanceled
		}
		if err := b.storage.SetOrderPayment(ctx, order.ID, paymentID, orderStatus); err != nil {
			b.logger.Error("Failed to mark order payment",
				zap.Int64("order_id", order.ID),
				zap.Error(err))
		}

		b.screens.Clear(order.TelegramID)
		b.sendScreen(order.TelegramID,
			fmt.Sprintf("❌ Оплата заказа #%d не прошла. Оформи заказ заново.", order.ID),
			createMainMenuOnlyKeyboard())
	}
}

func (b *Bot) completeOrder(ctx context.Context, order *storage.Order, paymentID string) {
	if err := b.storage.SetOrderPayment(ctx, order.ID, paymentID, storage.OrderStatusPaid); err != nil {
		b.logger.Error("Failed to mark order paid",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}

	err := b.ledger.Append(fulfillment.Record{
		OrderID:      order.ID,
		UserID:       order.TelegramID,
		Total:        order.Total,
		DeliveryInfo: order.DeliveryInfo,
		ItemsSummary: summarizeLines(order.Lines),
	})
	if err != nil {
		b.logger.Error("Failed to append fulfillment ledger",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}

	b.notifyNewOrderToChannel(order)

	b.screens.Clear(order.TelegramID)
	b.sendScreen(order.TelegramID,
		fmt.Sprintf("✅ Оплата получена! Заказ #%d принят, ожидай доставку.", order.ID),
		createMainMenuOnlyKeyboard())
}

// summarizeLines renders order lines as "2 × Кружка; 1 × Футболка".
func summarizeLines(lines []storage.OrderLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%d × %s", line.Quantity, line.Name))
	}
	return strings.Join(parts, "; ")
}
