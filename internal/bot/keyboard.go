package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kuzven/tgshopbot/internal/storage"
)

// BOT KEYBOARDS

func (b *Bot) createMainMenuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📦 Каталог", prefixCatalogPage+"1"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 Корзина", cbViewCart),
		),
		tgbotapi.NewInlineKeyboardRow(
			createSwitchInlineButton("❓ FAQ"),
		),
	)
	return &kb
}

func (b *Bot) createSubscribeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 Подписаться на канал", b.cfg.ChannelURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 Подписаться на группу", b.cfg.GroupURL),
		),
	)
	return &kb
}

func createMainMenuOnlyKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Главное меню", cbStart),
		),
	)
	return &kb
}

func createCategoriesKeyboard(categories []storage.Category, page int, hasNext bool) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, category := range categories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(category.Name, fmt.Sprintf("%s%d", prefixCategory, category.ID)),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", fmt.Sprintf("%s%d", prefixCatalogPage, page-1)))
	}
	if hasNext {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️ Вперёд", fmt.Sprintf("%s%d", prefixCatalogPage, page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Главное меню", cbStart),
	))

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func createSubcategoriesKeyboard(subcategories []storage.Subcategory, categoryID int64, page int, hasNext bool) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, sub := range subcategories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(sub.Name, fmt.Sprintf("%s%d", prefixSubcategory, sub.ID)),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", fmt.Sprintf("%s%d_%d", prefixSubcategoryPage, categoryID, page-1)))
	}
	if hasNext {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️ Вперёд", fmt.Sprintf("%s%d_%d", prefixSubcategoryPage, categoryID, page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Главное меню", cbStart),
	))

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func createProductKeyboard(product storage.Product) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🛒 В корзину (%.2f ₽)", product.Price),
				fmt.Sprintf("%s%d", prefixAddToCart, product.ID),
			),
		),
	)
	return &kb
}

func createProductNavKeyboard(subcategoryID int64, page int, hasNext bool) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	var nav []tgbotapi.InlineKeyboardButton
	if page > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", fmt.Sprintf("%s%d_%d", prefixProductPage, subcategoryID, page-1)))
	}
	if hasNext {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️ Вперёд", fmt.Sprintf("%s%d_%d", prefixProductPage, subcategoryID, page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Главное меню", cbStart),
	))

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func createConfirmCartKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", cbConfirmCart),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Главное меню", cbStart),
		),
	)
	return &kb
}

func createAfterAddKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 Перейти в корзину", cbViewCart),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Главное меню", cbStart),
		),
	)
	return &kb
}

func createCartItemKeyboard(productID int64) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", fmt.Sprintf("%s%d", prefixRemove, productID)),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Изменить", fmt.Sprintf("%s%d", prefixUpdate, productID)),
		),
	)
	return &kb
}

func createCartSummaryKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📦 Оформить заказ", cbCheckout),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Главное меню", cbStart),
		),
	)
	return &kb
}

func createPaymentKeyboard(redirectURL string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💳 Оплатить", redirectURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Главное меню", cbStart),
		),
	)
	return &kb
}

// createSwitchInlineButton opens inline mode in the current chat, used for
// the FAQ search. The helper in tgbotapi only covers switch-to-other-chat.
func createSwitchInlineButton(text string) tgbotapi.InlineKeyboardButton {
	query := ""
	return tgbotapi.InlineKeyboardButton{
		Text:                         text,
		SwitchInlineQueryCurrentChat: &query,
	}
}
