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

// scheduleLockKey identifies the advisory lock taken by schedule changes.
const scheduleLockKey int64 = 0x61746c6965720001

const appointmentColumns = `
	id, transaction_id, date, time, status, payment_status,
	refund_amount, deduction_amount, refund_status, cancelled_at, created_at, updated_at`

// appointmentRepository implements the AppointmentRepository interface using PostgreSQL.
type appointmentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAppointmentRepository creates a new PostgreSQL-backed appointment repository.
func NewAppointmentRepository(pool *pgxpool.Pool, logger zerolog.Logger) AppointmentRepository {
	return &appointmentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "appointment").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *appointmentRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (r *appointmentRepository) db(tx pgx.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.pool
}

// LockSchedule takes a transaction-scoped advisory lock.
func (r *appointmentRepository) LockSchedule(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, scheduleLockKey); err != nil {
		r.logger.Error().Err(err).Msg("failed to lock schedule")
		return fmt.Errorf("failed to lock schedule: %w", err)
	}
	return nil
}

// ListForBooking retrieves everything on the date plus everything belonging to the order.
func (r *appointmentRepository) ListForBooking(ctx context.Context, tx pgx.Tx, date string, orderID uuid.UUID) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE date = $1 OR transaction_id = $2
		ORDER BY date, time`
	return r.list(ctx, r.db(tx), query, date, orderID)
}

// ListByDate retrieves all appointments on a date.
func (r *appointmentRepository) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE date = $1 ORDER BY time`
	return r.list(ctx, r.pool, query, date)
}

// ListByOrder retrieves all appointments of an order, newest first.
func (r *appointmentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE transaction_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, r.pool, query, orderID)
}

// GetByID retrieves an appointment by its ID.
func (r *appointmentRepository) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	if tx != nil {
		query += ` FOR UPDATE`
	}

	a, err := scanAppointment(r.db(tx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("appointment_id", id.String()).Msg("appointment not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("appointment_id", id.String()).Msg("failed to query appointment")
		return nil, fmt.Errorf("failed to query appointment: %w", err)
	}

	return a, nil
}

// Create inserts a new appointment within the provided transaction.
func (r *appointmentRepository) Create(ctx context.Context, tx pgx.Tx, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (id, transaction_id, date, time, status, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.Exec(ctx, query,
		a.ID,
		a.TransactionID,
		a.Date,
		a.Time,
		a.Status,
		a.PaymentStatus,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		mapped := mapConstraintError(err)
		if _, ok := model.AsDomainError(mapped); ok {
			r.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("appointment conflicts with an active one")
			return mapped
		}
		r.logger.Error().
			Err(err).
			Str("appointment_id", a.ID.String()).
			Str("order_id", a.TransactionID.String()).
			Msg("failed to create appointment")
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	r.logger.Debug().
		Str("appointment_id", a.ID.String()).
		Str("date", a.Date).
		Str("time", a.Time).
		Msg("appointment created successfully")

	return nil
}

// UpdateSchedule moves an appointment to a new date and time.
func (r *appointmentRepository) UpdateSchedule(ctx context.Context, tx pgx.Tx, id uuid.UUID, date, timeOfDay string, at time.Time) error {
	query := `
		UPDATE appointments
		SET date = $2, time = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, date, timeOfDay, at)
	if err != nil {
		mapped := mapConstraintError(err)
		if _, ok := model.AsDomainError(mapped); ok {
			r.logger.Warn().Err(err).Str("appointment_id", id.String()).Msg("reschedule conflicts with an active appointment")
			return mapped
		}
		r.logger.Error().Err(err).Str("appointment_id", id.String()).Msg("failed to reschedule appointment")
		return fmt.Errorf("failed to reschedule appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAppointmentNotFound
	}

	return nil
}

// MarkPaid records the payment of an appointment.
func (r *appointmentRepository) MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE appointments
		SET payment_status = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, model.PaymentPaid, at)
	if err != nil {
		r.logger.Error().Err(err).Str("appointment_id", id.String()).Msg("failed to mark appointment paid")
		return fmt.Errorf("failed to mark appointment paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAppointmentNotFound
	}

	return nil
}

// Cancel stores the cancellation fields of an active appointment whose
// payment status is still paymentStatus.
func (r *appointmentRepository) Cancel(ctx context.Context, tx pgx.Tx, a *model.Appointment, paymentStatus model.PaymentStatus) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $2, refund_amount = $3, deduction_amount = $4, refund_status = $5,
			cancelled_at = $6, updated_at = $7
		WHERE id = $1 AND status <> $2 AND payment_status = $8
	`

	tag, err := r.db(tx).Exec(ctx, query,
		a.ID,
		model.AppointmentStatusCancelled,
		a.RefundAmount,
		a.DeductionAmount,
		a.RefundStatus,
		a.CancelledAt,
		a.UpdatedAt,
		paymentStatus,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("failed to cancel appointment")
		return false, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// CancelUnpaidByOrder cancels the active unpaid appointments of an order.
func (r *appointmentRepository) CancelUnpaidByOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE appointments
		SET status = $2, cancelled_at = $3, updated_at = $3
		WHERE transaction_id = $1 AND status <> $2 AND payment_status = $4
	`

	tag, err := r.db(tx).Exec(ctx, query, orderID, model.AppointmentStatusCancelled, at, model.PaymentPending)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to cancel order appointments")
		return 0, fmt.Errorf("failed to cancel order appointments: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *appointmentRepository) list(ctx context.Context, q querier, query string, args ...any) ([]model.Appointment, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query appointments")
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	appointments := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan appointment row")
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, *a)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating appointment rows")
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}

	return appointments, nil
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.TransactionID,
		&a.Date,
		&a.Time,
		&a.Status,
		&a.PaymentStatus,
		&a.RefundAmount,
		&a.DeductionAmount,
		&a.RefundStatus,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
