package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kuzven/tgshopbot/internal/config"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type PostgresStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPostgresStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)

	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:     db,
		logger: logger,
	}, nil
}

func (s *PostgresStorage) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// DB exposes the underlying connection for the migration runner.
func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

// UpsertUser registers the user on first contact and refreshes the profile
// fields on every subsequent /start.
func (s *PostgresStorage) UpsertUser(ctx context.Context, telegramID int64, username, firstName, lastName string) error {
	const query = `
        INSERT INTO users (telegram_id, username, first_name, last_name, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (telegram_id) DO UPDATE
        SET username = EXCLUDED.username,
            first_name = EXCLUDED.first_name,
            last_name = EXCLUDED.last_name
    `

	if _, err := s.db.ExecContext(ctx, query, telegramID, username, firstName, lastName); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Categories(ctx context.Context, limit, offset int) ([]Category, error) {
	const query = `SELECT id, name FROM categories ORDER BY id LIMIT $1 OFFSET $2`

	var categories []Category
	if err := s.db.SelectContext(ctx, &categories, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

func (s *PostgresStorage) Subcategories(ctx context.Context, categoryID int64, limit, offset int) ([]Subcategory, error) {
	const query = `
        SELECT id, name, category_id FROM subcategories
        WHERE category_id = $1
        ORDER BY id LIMIT $2 OFFSET $3
    `

	var subcategories []Subcategory
	if err := s.db.SelectContext(ctx, &subcategories, query, categoryID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get subcategories: %w", err)
	}
	return subcategories, nil
}

func (s *PostgresStorage) Products(ctx context.Context, subcategoryID int64, limit, offset int) ([]Product, error) {
	const query = `
        SELECT id, name, description, price, image, subcategory_id FROM products
        WHERE subcategory_id = $1
        ORDER BY id LIMIT $2 OFFSET $3
    `

	var products []Product
	if err := s.db.SelectContext(ctx, &products, query, subcategoryID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

func (s *PostgresStorage) CountProducts(ctx context.Context, subcategoryID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM products WHERE subcategory_id = $1`

	var total int
	if err := s.db.GetContext(ctx, &total, query, subcategoryID); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

func (s *PostgresStorage) ProductByID(ctx context.Context, productID int64) (*Product, error) {
	const query = `
        SELECT id, name, description, price, image, subcategory_id FROM products
        WHERE id = $1
    `

	var product Product
	err := s.db.GetContext(ctx, &product, query, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// AddToCart merges the quantity into an existing line for the same product
// instead of creating a duplicate.
func (s *PostgresStorage) AddToCart(ctx context.Context, telegramID, productID int64, quantity int) error {
	const query = `
        INSERT INTO cart_items (user_id, product_id, quantity)
        SELECT u.id, $2, $3 FROM users u WHERE u.telegram_id = $1
        ON CONFLICT (user_id, product_id) DO UPDATE
        SET quantity = cart_items.quantity + EXCLUDED.quantity
    `

	res, err := s.db.ExecContext(ctx, query, telegramID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to add to cart: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("user %d: %w", telegramID, ErrNotFound)
	}
	return nil
}

// SetCartQuantity overwrites the quantity of an existing line.
func (s *PostgresStorage) SetCartQuantity(ctx context.Context, telegramID, productID int64, quantity int) error {
	const query = `
        UPDATE cart_items SET quantity = $3
        FROM users u
        WHERE cart_items.user_id = u.id AND u.telegram_id = $1 AND cart_items.product_id = $2
    `

	if _, err := s.db.ExecContext(ctx, query, telegramID, productID, quantity); err != nil {
		return fmt.Errorf("failed to update cart quantity: %w", err)
	}
	return nil
}

// RemoveFromCart deletes the line; deleting an absent line is a no-op.
func (s *PostgresStorage) RemoveFromCart(ctx context.Context, telegramID, productID int64) error {
	const query = `
        DELETE FROM cart_items
        USING users u
        WHERE cart_items.user_id = u.id AND u.telegram_id = $1 AND cart_items.product_id = $2
    `

	if _, err := s.db.ExecContext(ctx, query, telegramID, productID); err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	return nil
}

func (s *PostgresStorage) CartItems(ctx context.Context, telegramID int64) ([]CartItem, error) {
	const query = `
        SELECT c.product_id, p.name, p.description, p.price, p.image, c.quantity
        FROM cart_items c
        JOIN products p ON p.id = c.product_id
        JOIN users u ON u.id = c.user_id
        WHERE u.telegram_id = $1
        ORDER BY c.product_id
    `

	var items []CartItem
	if err := s.db.SelectContext(ctx, &items, query, telegramID); err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	return items, nil
}

// CreateOrder snapshots the current cart into an order inside one transaction:
// the order row, its lines with prices read at checkout time, the computed
// total, and the cart cleanup either all commit or none do.
func (s *PostgresStorage) CreateOrder(ctx context.Context, telegramID int64, deliveryInfo string) (*Order, error) {
	const operation = "storage.CreateOrder"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin: %w", operation, err)
	}
	defer tx.Rollback()

	var userID int64
	err = tx.GetContext(ctx, &userID, `SELECT id FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: user %d: %w", operation, telegramID, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: get user: %w", operation, err)
	}

	order := Order{TelegramID: telegramID, DeliveryInfo: deliveryInfo, PaymentStatus: OrderStatusNew}
	err = tx.QueryRowxContext(ctx, `
        INSERT INTO orders (user_id, delivery_info, total, payment_status, payment_id, created_at)
        VALUES ($1, $2, 0, $3, '', NOW())
        RETURNING id, created_at
    `, userID, deliveryInfo, OrderStatusNew).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: insert order: %w", operation, err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO order_items (order_id, product_id, name, price, quantity)
        SELECT $1, p.id, p.name, p.price, c.quantity
        FROM cart_items c
        JOIN products p ON p.id = c.product_id
        WHERE c.user_id = $2
        ORDER BY c.product_id
    `, order.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: insert order items: %w", operation, err)
	}

	err = tx.GetContext(ctx, &order.Total, `
        SELECT COALESCE(SUM(price * quantity), 0) FROM order_items WHERE order_id = $1
    `, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: compute total: %w", operation, err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE orders SET total = $2 WHERE id = $1`, order.ID, order.Total); err != nil {
		return nil, fmt.Errorf("%s: set total: %w", operation, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("%s: clear cart: %w", operation, err)
	}

	err = tx.SelectContext(ctx, &order.Lines, `
        SELECT order_id, product_id, name, price, quantity FROM order_items
        WHERE order_id = $1 ORDER BY product_id
    `, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: get order items: %w", operation, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", operation, err)
	}

	return &order, nil
}

func (s *PostgresStorage) SetOrderPayment(ctx context.Context, orderID int64, paymentID, status string) error {
	const query = `UPDATE orders SET payment_id = $2, payment_status = $3 WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query, orderID, paymentID, status); err != nil {
		return fmt.Errorf("failed to set order payment: %w", err)
	}
	return nil
}

func (s *PostgresStorage) LatestOrder(ctx context.Context, telegramID int64) (*Order, error) {
	const query = `
        SELECT o.id, u.telegram_id, o.delivery_info, o.total, o.payment_status, o.payment_id, o.created_at
        FROM orders o
        JOIN users u ON u.id = o.user_id
        WHERE u.telegram_id = $1
        ORDER BY o.created_at DESC
        LIMIT 1
    `

	var order Order
	err := s.db.GetContext(ctx, &order, query, telegramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("latest order for %d: %w", telegramID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest order: %w", err)
	}

	err = s.db.SelectContext(ctx, &order.Lines, `
        SELECT order_id, product_id, name, price, quantity FROM order_items
        WHERE order_id = $1 ORDER BY product_id
    `, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	return &order, nil
}

func (s *PostgresStorage) Questions(ctx context.Context) ([]Question, error) {
	const query = `SELECT id, text, answer FROM faq_questions ORDER BY id`

	var questions []Question
	if err := s.db.SelectContext(ctx, &questions, query); err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}
