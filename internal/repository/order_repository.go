package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auto-atelier/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, customer_id, car_model_id, color_id, wheel_id, interior_id,
	price, status, customization_progress, purchased_at, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (r *orderRepository) db(tx pgx.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.pool
}

// Create inserts a new order.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	query := `
		INSERT INTO orders (id, customer_id, car_model_id, color_id, wheel_id, interior_id,
			price, status, customization_progress, purchased_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		order.ID,
		order.CustomerID,
		order.CarModelID,
		order.ColorID,
		order.WheelID,
		order.InteriorID,
		order.Price,
		order.Status,
		order.CustomizationProgress,
		order.PurchasedAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created successfully")

	return nil
}

// GetByID retrieves an order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if tx != nil {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(r.db(tx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return order, nil
}

// ListPurchased retrieves every purchased order.
func (r *orderRepository) ListPurchased(ctx context.Context, tx pgx.Tx) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY purchased_at`
	return r.list(ctx, r.db(tx), query, model.OrderStatusPurchased)
}

// ListByCustomer retrieves a customer's orders, newest first.
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, r.pool, query, customerID)
}

// MarkPurchased moves an order to purchased and stores its initial progress.
func (r *orderRepository) MarkPurchased(ctx context.Context, tx pgx.Tx, id uuid.UUID, progress *model.CustomizationProgress, at time.Time) error {
	query := `
		UPDATE orders
		SET status = $2, customization_progress = $3, purchased_at = $4, updated_at = $4
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, model.OrderStatusPurchased, progress, at)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to mark order purchased")
		return fmt.Errorf("failed to mark order purchased: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	r.logger.Debug().Str("order_id", id.String()).Msg("order marked purchased")
	return nil
}

// UpdateProgress replaces the customization progress of an order.
func (r *orderRepository) UpdateProgress(ctx context.Context, tx pgx.Tx, id uuid.UUID, progress *model.CustomizationProgress, at time.Time) error {
	query := `
		UPDATE orders
		SET customization_progress = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.db(tx).Exec(ctx, query, id, progress, at)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update progress")
		return fmt.Errorf("failed to update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// Cancel moves an order from the given status to cancelled.
func (r *orderRepository) Cancel(ctx context.Context, tx pgx.Tx, id uuid.UUID, from model.OrderStatus, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, updated_at = $4
		WHERE id = $1 AND status = $3
	`

	tag, err := r.db(tx).Exec(ctx, query, id, model.OrderStatusCancelled, from, at)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to cancel order")
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	if tag.RowsAffected() == 1 {
		r.logger.Debug().Str("order_id", id.String()).Str("from", string(from)).Msg("order cancelled")
		return true, nil
	}
	return false, nil
}

func (r *orderRepository) list(ctx context.Context, q querier, query string, args ...any) ([]model.Order, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.CarModelID,
		&o.ColorID,
		&o.WheelID,
		&o.InteriorID,
		&o.Price,
		&o.Status,
		&o.CustomizationProgress,
		&o.PurchasedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
