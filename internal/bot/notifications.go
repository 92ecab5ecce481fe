package bot

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kuzven/tgshopbot/internal/storage"
)

// notifyNewOrderToChannel posts a paid order to the staff channel. These
// messages are not part of any user screen and are never recorded.
func (b *Bot) notifyNewOrderToChannel(order *storage.Order) {
	if b.cfg.AdminChannelID == 0 {
		b.logger.Warn("Channel notifications disabled - no channel ID configured")
		return
	}

	text := fmt.Sprintf(
		"📦 Оплачен заказ #%d\n"+
			"Покупатель: %d\n"+
			"Состав: %s\n"+
			"Сумма: %.2f ₽\n"+
			"Доставка: %s",
		order.ID,
		order.TelegramID,
		summarizeLines(order.Lines),
		order.Total,
		order.DeliveryInfo,
	)

	if _, err := b.api.SendText(b.cfg.AdminChannelID, text, nil); err != nil {
		b.logger.Error("Failed to send channel notification",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}
}
