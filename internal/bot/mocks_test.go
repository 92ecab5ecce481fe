package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kuzven/tgshopbot/internal/config"
	"github.com/kuzven/tgshopbot/internal/fulfillment"
	"github.com/kuzven/tgshopbot/internal/payment"
	"github.com/kuzven/tgshopbot/internal/session"
	"github.com/kuzven/tgshopbot/internal/storage"
)

type sentMessage struct {
	ID     int
	ChatID int64
	Text   string
	Photo  string
	KB     *tgbotapi.InlineKeyboardMarkup
}

type fakeMessenger struct {
	mu         sync.Mutex
	nextID     int
	sent       []sentMessage
	deleted    []int
	inline     []interface{}
	failSend   bool
	failDelete map[int]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{failDelete: make(map[int]bool)}
}

func (m *fakeMessenger) SendText(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend {
		return 0, fmt.Errorf("send failed")
	}
	m.nextID++
	m.sent = append(m.sent, sentMessage{ID: m.nextID, ChatID: chatID, Text: text, KB: kb})
	return m.nextID, nil
}

func (m *fakeMessenger) SendPhoto(chatID int64, photo, caption string, kb *tgbotapi.InlineKeyboardMarkup) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend {
		return 0, fmt.Errorf("send failed")
	}
	m.nextID++
	m.sent = append(m.sent, sentMessage{ID: m.nextID, ChatID: chatID, Text: caption, Photo: photo, KB: kb})
	return m.nextID, nil
}

func (m *fakeMessenger) EditText(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	return nil
}

func (m *fakeMessenger) DeleteMessage(chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete[messageID] {
		return fmt.Errorf("message to delete not found")
	}
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) AnswerInlineQuery(queryID string, results []interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inline = results
	return nil
}

func (m *fakeMessenger) AnswerCallback(callbackID string) error {
	return nil
}

func (m *fakeMessenger) lastSent() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

// fakeRepository keeps everything in maps and mirrors the additive cart
// merge and the snapshot-then-clear checkout of the SQL layer.
type fakeRepository struct {
	mu            sync.Mutex
	users         map[int64]bool
	categories    []storage.Category
	subcategories []storage.Subcategory
	products      map[int64]storage.Product
	productIDs    []int64 // insertion order
	cart          map[int64]map[int64]int // telegramID -> productID -> quantity
	orders        []*storage.Order
	questions     []storage.Question
	nextOrderID   int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:    make(map[int64]bool),
		products: make(map[int64]storage.Product),
		cart:     make(map[int64]map[int64]int),
	}
}

func (r *fakeRepository) addProduct(p storage.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	r.productIDs = append(r.productIDs, p.ID)
}

func (r *fakeRepository) UpsertUser(_ context.Context, telegramID int64, _, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[telegramID] = true
	return nil
}

func (r *fakeRepository) Categories(_ context.Context, limit, offset int) ([]storage.Category, error) {
	return pageOf(r.categories, limit, offset), nil
}

func (r *fakeRepository) Subcategories(_ context.Context, categoryID int64, limit, offset int) ([]storage.Subcategory, error) {
	var filtered []storage.Subcategory
	for _, s := range r.subcategories {
		if s.CategoryID == categoryID {
			filtered = append(filtered, s)
		}
	}
	return pageOf(filtered, limit, offset), nil
}

func (r *fakeRepository) Products(_ context.Context, subcategoryID int64, limit, offset int) ([]storage.Product, error) {
	return pageOf(r.productsOf(subcategoryID), limit, offset), nil
}

func (r *fakeRepository) CountProducts(_ context.Context, subcategoryID int64) (int, error) {
	return len(r.productsOf(subcategoryID)), nil
}

func (r *fakeRepository) productsOf(subcategoryID int64) []storage.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	var filtered []storage.Product
	for _, id := range r.productIDs {
		if p := r.products[id]; p.SubcategoryID == subcategoryID {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func (r *fakeRepository) ProductByID(_ context.Context, productID int64) (*storage.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, storage.ErrNotFound)
	}
	return &p, nil
}

func (r *fakeRepository) AddToCart(_ context.Context, telegramID, productID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cart[telegramID] == nil {
		r.cart[telegramID] = make(map[int64]int)
	}
	r.cart[telegramID][productID] += quantity
	return nil
}

func (r *fakeRepository) SetCartQuantity(_ context.Context, telegramID, productID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cart[telegramID] != nil {
		if _, ok := r.cart[telegramID][productID]; ok {
			r.cart[telegramID][productID] = quantity
		}
	}
	return nil
}

func (r *fakeRepository) RemoveFromCart(_ context.Context, telegramID, productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cart[telegramID] != nil {
		delete(r.cart[telegramID], productID)
	}
	return nil
}

func (r *fakeRepository) CartItems(_ context.Context, telegramID int64) ([]storage.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []storage.CartItem
	for _, id := range r.productIDs {
		qty, ok := r.cart[telegramID][id]
		if !ok {
			continue
		}
		p := r.products[id]
		items = append(items, storage.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.Image,
			Quantity:  qty,
		})
	}
	return items, nil
}

func (r *fakeRepository) CreateOrder(_ context.Context, telegramID int64, deliveryInfo string) (*storage.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.users[telegramID] {
		return nil, fmt.Errorf("user %d: %w", telegramID, storage.ErrNotFound)
	}

	r.nextOrderID++
	order := &storage.Order{
		ID:            r.nextOrderID,
		TelegramID:    telegramID,
		DeliveryInfo:  deliveryInfo,
		PaymentStatus: storage.OrderStatusNew,
		CreatedAt:     time.Now(),
	}
	for _, id := range r.productIDs {
		qty, ok := r.cart[telegramID][id]
		if !ok {
			continue
		}
		p := r.products[id]
		order.Lines = append(order.Lines, storage.OrderLine{
			OrderID:   order.ID,
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  qty,
		})
		order.Total += p.Price * float64(qty)
	}
	delete(r.cart, telegramID)

	r.orders = append(r.orders, order)
	return order, nil
}

func (r *fakeRepository) SetOrderPayment(_ context.Context, orderID int64, paymentID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == orderID {
			o.PaymentID = paymentID
			o.PaymentStatus = status
			return nil
		}
	}
	return fmt.Errorf("order %d: %w", orderID, storage.ErrNotFound)
}

func (r *fakeRepository) LatestOrder(_ context.Context, telegramID int64) (*storage.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].TelegramID == telegramID {
			// Detached copy, like a fresh row scan: callers must not see
			// later writes through a shared pointer.
			order := *r.orders[i]
			return &order, nil
		}
	}
	return nil, fmt.Errorf("latest order for %d: %w", telegramID, storage.ErrNotFound)
}

func (r *fakeRepository) Questions(_ context.Context) ([]storage.Question, error) {
	return r.questions, nil
}

func (r *fakeRepository) cartQuantity(telegramID, productID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cart[telegramID][productID]
}

func pageOf[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type fakeGateway struct {
	mu         sync.Mutex
	created    []payment.CreateRequest
	failCreate bool
	statuses   []payment.Status
	statusErrs []error
	calls      int
}

func (g *fakeGateway) CreatePayment(_ context.Context, req payment.CreateRequest) (*payment.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate {
		return nil, fmt.Errorf("provider unavailable")
	}
	g.created = append(g.created, req)
	return &payment.Payment{
		ID:          fmt.Sprintf("pay-%d", len(g.created)),
		RedirectURL: "https://pay.example.com/redirect",
	}, nil
}

func (g *fakeGateway) GetStatus(_ context.Context, _ string) (payment.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	if i < len(g.statusErrs) && g.statusErrs[i] != nil {
		return "", g.statusErrs[i]
	}
	if i >= len(g.statuses) {
		return g.statuses[len(g.statuses)-1], nil
	}
	return g.statuses[i], nil
}

type fakeLedger struct {
	mu       sync.Mutex
	records  []fulfillment.Record
	appended chan struct{}
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{appended: make(chan struct{}, 8)}
}

func (l *fakeLedger) Append(rec fulfillment.Record) error {
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
	l.appended <- struct{}{}
	return nil
}

type fakeSubs struct {
	subscribed bool
}

func (s *fakeSubs) IsSubscribed(int64) bool { return s.subscribed }

func testConfig() *config.Config {
	return &config.Config{
		ChannelURL:           "https://t.me/shop_channel",
		GroupURL:             "https://t.me/shop_group",
		PaymentCurrency:      "RUB",
		PaymentPollInterval:  5 * time.Millisecond,
		CategoriesPerPage:    5,
		SubcategoriesPerPage: 5,
		ProductsPerPage:      3,
	}
}

func newTestBot(repo *fakeRepository, api *fakeMessenger, gateway *fakeGateway, ledger *fakeLedger, subs *fakeSubs) *Bot {
	logger := zap.NewNop()
	cfg := testConfig()
	return &Bot{
		bot:      &tgbotapi.BotAPI{Self: tgbotapi.User{UserName: "tgshopbot"}},
		api:      api,
		logger:   logger,
		storage:  repo,
		sessions: session.NewMemoryStore(),
		screens:  NewScreenRegistry(api, logger),
		gateway:  gateway,
		watcher:  payment.NewWatcher(gateway, cfg.PaymentPollInterval, logger),
		ledger:   ledger,
		subs:     subs,
		cfg:      cfg,
		locks:    make(map[int64]*sync.Mutex),
	}
}
