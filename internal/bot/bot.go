package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kuzven/tgshopbot/internal/config"
	"github.com/kuzven/tgshopbot/internal/payment"
	"github.com/kuzven/tgshopbot/internal/session"
)

type Bot struct {
	bot      *tgbotapi.BotAPI
	api      Messenger
	logger   *zap.Logger
	storage  Repository
	sessions session.Store
	screens  *ScreenRegistry
	gateway  payment.Gateway
	watcher  *payment.Watcher
	ledger   Ledger
	subs     SubscriptionChecker
	cfg      *config.Config

	// Events for one user are handled strictly one at a time: the pending
	// session state is read and written around every storage call, and an
	// interleaved handler for the same user would corrupt the flow.
	// Different users run in parallel.
	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex

	wg sync.WaitGroup
}

func New(
	storage Repository,
	sessions session.Store,
	gateway payment.Gateway,
	ledger Ledger,
	cfg *config.Config,
	logger *zap.Logger,
) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	api := newTelegramMessenger(botAPI)

	b := &Bot{
		bot:      botAPI,
		api:      api,
		logger:   logger,
		storage:  storage,
		sessions: sessions,
		screens:  NewScreenRegistry(api, logger),
		gateway:  gateway,
		watcher:  payment.NewWatcher(gateway, cfg.PaymentPollInterval, logger),
		ledger:   ledger,
		subs:     newChatMemberChecker(botAPI, []int64{cfg.ChannelID, cfg.GroupID}, logger),
		cfg:      cfg,
		locks:    make(map[int64]*sync.Mutex),
	}
	return b, nil
}

func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	if err := b.setCommands(); err != nil {
		b.logger.Warn("Failed to set bot commands", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			b.bot.StopReceivingUpdates()
			b.wg.Wait()
			return nil

		case update := <-updates:
			b.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}(update)
		}
	}
}

func (b *Bot) setCommands() error {
	_, err := b.bot.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Меню"},
		tgbotapi.BotCommand{Command: "cart", Description: "Корзина"},
		tgbotapi.BotCommand{Command: "faq", Description: "FAQ"},
		tgbotapi.BotCommand{Command: "help", Description: "Помощь"},
	))
	return err
}

// handleUpdate serializes handling per user and keeps every failure inside
// the handler boundary: nothing here may take down the update loop.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	userID := updateUserID(update)
	if userID == 0 {
		return
	}

	lock := b.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic in update handler",
				zap.Int64("user_id", userID),
				zap.Any("panic", r))
			b.sendError(userID, "Произошла ошибка, попробуй ещё раз.")
		}
	}()

	switch {
	case update.Message != nil:
		b.processMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.processCallback(ctx, update.CallbackQuery)
	case update.InlineQuery != nil:
		b.handleFAQInline(ctx, update.InlineQuery)
	}
}

func (b *Bot) userLock(userID int64) *sync.Mutex {
	b.locksMu.Lock()
	defer b.locksMu.Unlock()

	lock, ok := b.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[userID] = lock
	}
	return lock
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	b.logger.Debug("Processing message",
		zap.Int64("user_id", userID),
		zap.String("text", msg.Text))

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg.From)
		case "help":
			b.handleHelp(ctx, userID)
		case "faq":
			b.handleFAQCommand(ctx, userID)
		case "cart":
			b.renderCart(ctx, userID)
		default:
			b.sendError(userID, "Неизвестная команда. Используй /start.")
		}
		return
	}

	state, err := b.sessions.Get(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to get session state",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(userID, "Произошла ошибка, попробуй ещё раз.")
		return
	}

	switch state.Step {
	case session.StepAwaitQuantity, session.StepAwaitUpdateQuantity:
		b.handleQuantityInput(ctx, userID, msg.Text, state)
	case session.StepAwaitDelivery:
		b.handleDeliveryInfo(ctx, userID, msg.Text)
	default:
		b.sendScreen(userID, "Я не понимаю это сообщение. Используй меню 👇", createMainMenuOnlyKeyboard())
	}
}

func (b *Bot) processCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID
	data := callback.Data

	b.logger.Debug("Processing callback",
		zap.Int64("user_id", userID),
		zap.String("data", data))

	if err := b.api.AnswerCallback(callback.ID); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}

	switch {
	case data == cbStart:
		b.sendMainMenu(ctx, userID, callback.From.FirstName)
	case data == cbViewCart:
		b.renderCart(ctx, userID)
	case data == cbConfirmCart:
		b.handleConfirmCart(ctx, userID)
	case data == cbCheckout:
		b.handleCheckout(ctx, userID)

	case strings.HasPrefix(data, prefixCatalogPage):
		page := parseInt(strings.TrimPrefix(data, prefixCatalogPage))
		b.handleCategoriesPage(ctx, userID, page)

	case strings.HasPrefix(data, prefixSubcategoryPage):
		categoryID, page := parsePair(strings.TrimPrefix(data, prefixSubcategoryPage))
		b.handleSubcategoriesPage(ctx, userID, categoryID, page)

	case strings.HasPrefix(data, prefixCategory):
		categoryID := parseInt64(strings.TrimPrefix(data, prefixCategory))
		b.handleSubcategoriesPage(ctx, userID, categoryID, 1)

	case strings.HasPrefix(data, prefixProductPage):
		subcategoryID, page := parsePair(strings.TrimPrefix(data, prefixProductPage))
		b.handleProductsPage(ctx, userID, subcategoryID, page)

	case strings.HasPrefix(data, prefixSubcategory):
		subcategoryID := parseInt64(strings.TrimPrefix(data, prefixSubcategory))
		b.handleProductsPage(ctx, userID, subcategoryID, 1)

	case strings.HasPrefix(data, prefixAddToCart):
		productID := parseInt64(strings.TrimPrefix(data, prefixAddToCart))
		b.handleAddToCart(ctx, userID, productID)

	case strings.HasPrefix(data, prefixRemove):
		productID := parseInt64(strings.TrimPrefix(data, prefixRemove))
		b.handleRemoveFromCart(ctx, userID, productID)

	case strings.HasPrefix(data, prefixUpdate):
		productID := parseInt64(strings.TrimPrefix(data, prefixUpdate))
		b.handleUpdateQuantity(ctx, userID, productID)

	default:
		b.logger.Warn("Unknown callback data",
			zap.Int64("user_id", userID),
			zap.String("data", data))
	}
}

// sendScreen sends a text message and records it into the current screen.
// The id is recorded only when the send succeeded, so a failed send can
// never leave a phantom id behind.
func (b *Bot) sendScreen(userID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	messageID, err := b.api.SendText(userID, text, keyboard)
	if err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}
	b.screens.Record(userID, messageID)
}

func (b *Bot) sendPhotoScreen(userID int64, photo, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	messageID, err := b.api.SendPhoto(userID, photo, caption, keyboard)
	if err != nil {
		b.logger.Error("Failed to send photo",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}
	b.screens.Record(userID, messageID)
}

func (b *Bot) sendError(userID int64, text string) {
	b.sendScreen(userID, "❌ "+text, nil)
}

func updateUserID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	case update.InlineQuery != nil && update.InlineQuery.From != nil:
		return update.InlineQuery.From.ID
	}
	return 0
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// parsePair splits "<id>_<page>" callback payloads.
func parsePair(s string) (int64, int) {
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return 0, 1
	}
	return parseInt64(parts[0]), parseInt(parts[1])
}
