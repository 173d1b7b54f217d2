package repository

import (
	"context"
	"errors"
	"time"

	"auto-atelier/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new order.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order by its ID. When tx is non-nil the row is
	// locked for the rest of the transaction. Returns nil when not found.
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// ListPurchased retrieves every purchased order, the input of the capacity gate.
	ListPurchased(ctx context.Context, tx pgx.Tx) ([]model.Order, error)

	// ListByCustomer retrieves a customer's orders, newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error)

	// MarkPurchased moves an order to purchased and stores its initial progress.
	MarkPurchased(ctx context.Context, tx pgx.Tx, id uuid.UUID, progress *model.CustomizationProgress, at time.Time) error

	// UpdateProgress replaces the customization progress of an order.
	UpdateProgress(ctx context.Context, tx pgx.Tx, id uuid.UUID, progress *model.CustomizationProgress, at time.Time) error

	// Cancel moves an order from the given status to cancelled. It reports
	// false when the order is no longer in that status.
	Cancel(ctx context.Context, tx pgx.Tx, id uuid.UUID, from model.OrderStatus, at time.Time) (bool, error)
}

// AppointmentRepository defines the interface for appointment data access operations.
type AppointmentRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// LockSchedule serialises schedule changes until tx ends.
	LockSchedule(ctx context.Context, tx pgx.Tx) error

	// ListForBooking retrieves the appointments a booking decision depends on:
	// everything on the date plus everything belonging to the order.
	ListForBooking(ctx context.Context, tx pgx.Tx, date string, orderID uuid.UUID) ([]model.Appointment, error)

	// ListByDate retrieves all appointments on a date.
	ListByDate(ctx context.Context, date string) ([]model.Appointment, error)

	// ListByOrder retrieves all appointments of an order, newest first.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Appointment, error)

	// GetByID retrieves an appointment by its ID. When tx is non-nil the row
	// is locked for the rest of the transaction. Returns nil when not found.
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Appointment, error)

	// Create inserts a new appointment within the provided transaction.
	Create(ctx context.Context, tx pgx.Tx, appointment *model.Appointment) error

	// UpdateSchedule moves an appointment to a new date and time.
	UpdateSchedule(ctx context.Context, tx pgx.Tx, id uuid.UUID, date, timeOfDay string, at time.Time) error

	// MarkPaid records the payment of an appointment.
	MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error

	// Cancel stores the cancellation fields of an active appointment whose
	// payment status is still paymentStatus. It reports false when the
	// appointment was already cancelled or its payment status changed.
	Cancel(ctx context.Context, tx pgx.Tx, appointment *model.Appointment, paymentStatus model.PaymentStatus) (bool, error)

	// CancelUnpaidByOrder cancels the active unpaid appointments of an order
	// and returns how many were cancelled.
	CancelUnpaidByOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, at time.Time) (int64, error)
}

// querier is satisfied by both a pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Names of the partial unique indexes guarding active appointments.
const (
	activeSlotConstraint  = "appointments_active_slot_key"
	activeOrderConstraint = "appointments_active_order_key"
)

const uniqueViolation = "23505"

// mapConstraintError converts violations of the active appointment indexes
// into their domain errors. Other errors are returned unchanged.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case activeSlotConstraint:
		return model.ErrSlotTaken.Wrap(err)
	case activeOrderConstraint:
		return model.ErrAlreadyHasActiveBooking.Wrap(err)
	}
	return err
}
