package bot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kuzven/tgshopbot/internal/session"
	"github.com/kuzven/tgshopbot/internal/storage"
)

// CART FLOW
//
// Idle -> AwaitQuantity -> AwaitConfirm -> Idle for adding, and
// Idle -> AwaitUpdateQuantity -> Idle for changing a line. At most one
// pending entry exists per user; starting a new flow replaces the old one
// without telling the user.

// handleAddToCart asks for a quantity, snapshotting the product name and
// price at this moment rather than re-fetching them later.
func (b *Bot) handleAddToCart(ctx context.Context, userID, productID int64) {
	product, err := b.storage.ProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.screens.Clear(userID)
			b.sendScreen(userID, "❌ Такого товара больше нет.", createMainMenuOnlyKeyboard())
			return
		}
		b.logger.Error("Failed to get product",
			zap.Int64("user_id", userID),
			zap.Int64("product_id", productID),
			zap.Error(err))
		b.sendError(userID, "Не удалось загрузить товар, попробуй ещё раз.")
		return
	}

	err = b.sessions.Save(ctx, userID, session.State{
		Step:        session.StepAwaitQuantity,
		ProductID:   product.ID,
		ProductName: product.Name,
		Price:       product.Price,
	})
	if err != nil {
		b.logger.Error("Failed to save session",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(userID, "Произошла ошибка, попробуй ещё раз.")
		return
	}

	b.screens.Clear(userID)
	b.sendScreen(userID, "Отправь цифрами количество товара:", nil)
}

// handleQuantityInput consumes free text while a quantity is awaited.
// Invalid input re-prompts and leaves the pending state untouched.
func (b *Bot) handleQuantityInput(ctx context.Context, userID int64, text string, state session.State) {
	quantity, err := ParseQuantity(text)
	if err != nil {
		b.screens.Clear(userID)
		b.sendScreen(userID, "❌ Количество должно быть целым числом больше 0. Отправь снова:", nil)
		return
	}

	switch state.Step {
	case session.StepAwaitQuantity:
		state.Quantity = quantity
		state.Step = session.StepAwaitConfirm
		if err := b.sessions.Save(ctx, userID, state); err != nil {
			b.logger.Error("Failed to save session",
				zap.Int64("user_id", userID),
				zap.Error(err))
			b.sendError(userID, "Произошла ошибка, попробуй ещё раз.")
			return
		}

		b.screens.Clear(userID)
		b.sendScreen(userID,
			fmt.Sprintf("Добавить в корзину %d шт. товара %s?", quantity, state.ProductName),
			createConfirmCartKeyboard())

	case session.StepAwaitUpdateQuantity:
		if err := b.storage.SetCartQuantity(ctx, userID, state.ProductID, quantity); err != nil {
			b.logger.Error("Failed to update cart quantity",
				zap.Int64("user_id", userID),
				zap.Int64("product_id", state.ProductID),
				zap.Error(err))
			b.sendError(userID, "Не удалось изменить количество, попробуй ещё раз.")
			return
		}

		if err := b.sessions.Clear(ctx, userID); err != nil {
			b.logger.Warn("Failed to clear session",
				zap.Int64("user_id", userID),
				zap.Error(err))
		}

		b.renderCart(ctx, userID)
	}
}

// handleConfirmCart commits the pending entry. The quantity merges into an
// existing line for the same product, it never overwrites it.
func (b *Bot) handleConfirmCart(ctx context.Context, userID int64) {
	state, err := b.sessions.Get(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to get session",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(userID, "Произошла ошибка, попробуй ещё раз.")
		return
	}

	if state.Step != session.StepAwaitConfirm {
		// Stale button press or state lost on restart.
		b.screens.Clear(userID)
		b.sendScreen(userID, "❌ Ошибка! Сначала укажи количество товара.", createMainMenuOnlyKeyboard())
		return
	}

	if err := b.storage.AddToCart(ctx, userID, state.ProductID, state.Quantity); err != nil {
		b.logger.Error("Failed to add to cart",
			zap.Int64("user_id", userID),
			zap.Int64("product_id", state.ProductID),
			zap.Error(err))
		b.sendError(userID, "Не удалось добавить товар в корзину, попробуй ещё раз.")
		return
	}

	if err := b.sessions.Clear(ctx, userID); err != nil {
		b.logger.Warn("Failed to clear session",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}

	b.screens.Clear(userID)
	b.sendScreen(userID,
		fmt.Sprintf("✅ %d шт. товара %s добавлены в корзину!", state.Quantity, state.ProductName),
		createAfterAddKeyboard())
}

func (b *Bot) handleRemoveFromCart(ctx context.Context, userID, productID int64) {
	if err := b.storage.RemoveFromCart(ctx, userID, productID); err != nil {
		b.logger.Error("Failed to remove from cart",
			zap.Int64("user_id", userID),
			zap.Int64("product_id", productID),
			zap.Error(err))
		b.sendError(userID, "Не удалось удалить товар, попробуй ещё раз.")
		return
	}

	b.renderCart(ctx, userID)
}

func (b *Bot) handleUpdateQuantity(ctx context.Context, userID, productID int64) {
	product, err := b.storage.ProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.screens.Clear(userID)
			b.sendScreen(userID, "❌ Такого товара больше нет.", createMainMenuOnlyKeyboard())
			return
		}
		b.logger.Error("Failed to get product",
			zap.Int64("user_id", userID),
			zap.Int64("product_id", productID),
			zap.Error(err))
		b.sendError(userID, "Произошла ошибка, попробуй ещё раз.")
		return
	}

	err = b.sessions.Save(ctx, userID, session.State{
		Step:        session.StepAwaitUpdateQuantity,
		ProductID:   product.ID,
		ProductName: product.Name,
		Price:       product.Price,
	})
	if err != nil {
		b.logger.Error("Failed to save session",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(userID, "Произошла ошибка, попробуй ещё раз.")
		return
	}

	b.screens.Clear(userID)
	b.sendScreen(userID, fmt.Sprintf("Отправь цифрами новое количество товара %s:", product.Name), nil)
}

// renderCart shows one card per line plus a summary with the grand total.
// Every rendered message id lands in the screen registry.
func (b *Bot) renderCart(ctx context.Context, userID int64) {
	b.screens.Clear(userID)

	items, err := b.storage.CartItems(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to get cart items",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(userID, "Не удалось загрузить корзину, попробуй ещё раз.")
		return
	}

	if len(items) == 0 {
		b.sendScreen(userID, "🛒 Корзина пуста.", createMainMenuOnlyKeyboard())
		return
	}

	var total float64
	for _, item := range items {
		lineTotal := item.Price * float64(item.Quantity)
		total += lineTotal

		caption := fmt.Sprintf("*%s*\n\n%d шт. × %.2f ₽ = %.2f ₽",
			item.Name, item.Quantity, item.Price, lineTotal)
		b.sendPhotoScreen(userID, item.Image, caption, createCartItemKeyboard(item.ProductID))
	}

	b.sendScreen(userID, fmt.Sprintf("Итого: %.2f ₽", total), createCartSummaryKeyboard())
}
