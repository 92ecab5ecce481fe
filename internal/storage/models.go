package storage

import "time"

type Category struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type Subcategory struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	CategoryID int64  `db:"category_id"`
}

type Product struct {
	ID            int64   `db:"id"`
	Name          string  `db:"name"`
	Description   string  `db:"description"`
	Price         float64 `db:"price"`
	Image         string  `db:"image"`
	SubcategoryID int64   `db:"subcategory_id"`
}

// CartItem is a cart line joined with its product row.
type CartItem struct {
	ProductID   int64   `db:"product_id"`
	Name        string  `db:"name"`
	Description string  `db:"description"`
	Price       float64 `db:"price"`
	Image       string  `db:"image"`
	Quantity    int     `db:"quantity"`
}

// Payment statuses stored on an order.
const (
	OrderStatusNew      = "new"
	OrderStatusPaid     = "paid"
	OrderStatusFailed   = "failed"
	OrderStatusCanceled = "canceled"
)

type Order struct {
	ID            int64     `db:"id"`
	TelegramID    int64     `db:"telegram_id"`
	DeliveryInfo  string    `db:"delivery_info"`
	Total         float64   `db:"total"`
	PaymentStatus string    `db:"payment_status"`
	PaymentID     string    `db:"payment_id"`
	CreatedAt     time.Time `db:"created_at"`

	Lines []OrderLine `db:"-"`
}

// OrderLine is an immutable snapshot of a cart line at checkout time.
type OrderLine struct {
	OrderID   int64   `db:"order_id"`
	ProductID int64   `db:"product_id"`
	Name      string  `db:"name"`
	Price     float64 `db:"price"`
	Quantity  int     `db:"quantity"`
}

type Question struct {
	ID     int64  `db:"id"`
	Text   string `db:"text"`
	Answer string `db:"answer"`
}
