package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kuzven/tgshopbot/internal/fulfillment"
	"github.com/kuzven/tgshopbot/internal/storage"
)

// Repository is the storage capability the handlers need. All operations are
// keyed by the Telegram user id; the internal id join happens inside storage.
type Repository interface {
	UpsertUser(ctx context.Context, telegramID int64, username, firstName, lastName string) error

	Categories(ctx context.Context, limit, offset int) ([]storage.Category, error)
	Subcategories(ctx context.Context, categoryID int64, limit, offset int) ([]storage.Subcategory, error)
	Products(ctx context.Context, subcategoryID int64, limit, offset int) ([]storage.Product, error)
	CountProducts(ctx context.Context, subcategoryID int64) (int, error)
	ProductByID(ctx context.Context, productID int64) (*storage.Product, error)

	AddToCart(ctx context.Context, telegramID, productID int64, quantity int) error
	SetCartQuantity(ctx context.Context, telegramID, productID int64, quantity int) error
	RemoveFromCart(ctx context.Context, telegramID, productID int64) error
	CartItems(ctx context.Context, telegramID int64) ([]storage.CartItem, error)

	CreateOrder(ctx context.Context, telegramID int64, deliveryInfo string) (*storage.Order, error)
	SetOrderPayment(ctx context.Context, orderID int64, paymentID, status string) error
	LatestOrder(ctx context.Context, telegramID int64) (*storage.Order, error)

	Questions(ctx context.Context) ([]storage.Question, error)
}

var _ Repository = (*storage.PostgresStorage)(nil)

// Messenger is the chat transport surface the handlers render through.
// Send methods return the new message id so it can be recorded for the
// current screen.
type Messenger interface {
	SendText(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error)
	SendPhoto(chatID int64, photo, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error)
	EditText(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	DeleteMessage(chatID int64, messageID int) error
	AnswerInlineQuery(queryID string, results []interface{}) error
	AnswerCallback(callbackID string) error
}

// SubscriptionChecker gates the catalog behind channel/group membership.
type SubscriptionChecker interface {
	IsSubscribed(userID int64) bool
}

// Ledger persists completed orders for fulfillment staff.
type Ledger interface {
	Append(rec fulfillment.Record) error
}

var _ Ledger = (*fulfillment.Ledger)(nil)
