package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auto-atelier/internal/booking"
	"auto-atelier/internal/events"
	"auto-atelier/internal/lock"
	"auto-atelier/internal/metrics"
	"auto-atelier/internal/model"
	"auto-atelier/internal/payment"
	"auto-atelier/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultRefundLockTTL = time.Minute
	maxCancelAttempts    = 2
)

var (
	errGatewayNotConfigured = errors.New("payment gateway not configured")
	errPaymentChanged       = errors.New("payment status changed during cancellation")
)

// bookingService implements BookingService.
type bookingService struct {
	orderRepo       repository.OrderRepository
	appointmentRepo repository.AppointmentRepository
	gateway         payment.Gateway
	locker          lock.Locker
	rules           booking.Rules
	publisher       events.Publisher
	metrics         *metrics.Metrics
	logger          zerolog.Logger
	now             func() time.Time
}

// NewBookingService creates a new booking service. A nil locker falls back
// to an in-process one.
func NewBookingService(
	orderRepo repository.OrderRepository,
	appointmentRepo repository.AppointmentRepository,
	gateway payment.Gateway,
	locker lock.Locker,
	rules booking.Rules,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) BookingService {
	if locker == nil {
		locker = lock.NewLocalLocker(defaultRefundLockTTL)
	}
	return &bookingService{
		orderRepo:       orderRepo,
		appointmentRepo: appointmentRepo,
		gateway:         gateway,
		locker:          locker,
		rules:           rules,
		publisher:       publisher,
		metrics:         m,
		logger:          logger.With().Str("service", "booking").Logger(),
		now:             time.Now,
	}
}

// AvailableSlots lists the free start times on date.
func (s *bookingService) AvailableSlots(ctx context.Context, date string, excludeID *uuid.UUID) (*model.SlotsResponse, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, model.ErrMissingSchedule
	}
	day, err := s.rules.ParseDate(date)
	if err != nil {
		return nil, model.ErrInvalidSchedule
	}
	date = day.Format(model.DateFormat)

	appointments, err := s.appointmentRepo.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("failed to list appointments")
		return nil, fmt.Errorf("failed to list available slots: %w", err)
	}

	slots := s.rules.AvailableSlots(day, s.now(), appointments, excludeID)

	out := make([]string, len(slots))
	for i, slot := range slots {
		out[i] = slot.String()
	}

	s.logger.Debug().Str("date", date).Int("available", len(out)).Msg("available slots computed")

	return &model.SlotsResponse{Date: date, Slots: out}, nil
}

// Book creates an appointment for an order. The decision and the insert run
// under the schedule lock so concurrent bookings see each other.
func (s *bookingService) Book(ctx context.Context, req *model.BookingRequest) (appointment *model.Appointment, err error) {
	defer func() { s.metrics.ObserveOperation("book", err) }()

	if req == nil {
		return nil, fmt.Errorf("booking request is nil")
	}
	if req.TransactionID == uuid.Nil {
		return nil, model.ErrMissingTransactionID
	}

	date, timeOfDay := s.rules.Canonical(req.Date, req.Time)

	tx, err := s.appointmentRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.appointmentRepo.LockSchedule(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	order, err := s.orderRepo.GetByID(ctx, tx, req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.Status == model.OrderStatusCancelled {
		s.logger.Warn().Str("order_id", order.ID.String()).Msg("booking for a cancelled order")
		return nil, model.ErrOrderCancelled
	}

	appointments, err := s.appointmentRepo.ListForBooking(ctx, tx, date, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	orders, err := s.orderRepo.ListPurchased(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	if err = s.rules.ValidateNewBooking(*order, date, timeOfDay, appointments, orders); err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("date", date).
			Str("time", timeOfDay).
			Msg("booking rejected")
		return nil, err
	}

	now := s.now()
	appointment = &model.Appointment{
		ID:            uuid.New(),
		TransactionID: order.ID,
		Date:          date,
		Time:          timeOfDay,
		Status:        model.AppointmentStatusBooked,
		PaymentStatus: model.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err = s.appointmentRepo.Create(ctx, tx, appointment); err != nil {
		if _, ok := model.AsDomainError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	s.logger.Info().
		Str("appointment_id", appointment.ID.String()).
		Str("order_id", order.ID.String()).
		Str("date", date).
		Str("time", timeOfDay).
		Msg("appointment booked")

	s.publish(ctx, events.New(events.AppointmentBooked, order.ID, now, appointment))

	return appointment, nil
}

// Reschedule moves an active appointment to another slot.
func (s *bookingService) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleRequest) (appointment *model.Appointment, err error) {
	defer func() { s.metrics.ObserveOperation("reschedule", err) }()

	if req == nil {
		return nil, fmt.Errorf("reschedule request is nil")
	}

	date, timeOfDay := s.rules.Canonical(req.Date, req.Time)

	tx, err := s.appointmentRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.appointmentRepo.LockSchedule(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	appointment, err = s.appointmentRepo.GetByID(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}
	if appointment == nil {
		return nil, model.ErrAppointmentNotFound
	}
	if !appointment.IsActive() {
		return nil, model.ErrAppointmentCancelled
	}

	appointments, err := s.appointmentRepo.ListForBooking(ctx, tx, date, appointment.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	if err = s.rules.ValidateEdit(*appointment, date, timeOfDay, appointments); err != nil {
		s.logger.Warn().
			Err(err).
			Str("appointment_id", id.String()).
			Str("date", date).
			Str("time", timeOfDay).
			Msg("reschedule rejected")
		return nil, err
	}

	now := s.now()
	if err = s.appointmentRepo.UpdateSchedule(ctx, tx, id, date, timeOfDay, now); err != nil {
		if _, ok := model.AsDomainError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", id.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	previous := appointment.Date + " " + appointment.Time
	appointment.Date = date
	appointment.Time = timeOfDay
	appointment.UpdatedAt = now

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", previous).
		Str("date", date).
		Str("time", timeOfDay).
		Msg("appointment rescheduled")

	s.publish(ctx, events.New(events.AppointmentMoved, appointment.TransactionID, now, appointment))

	return appointment, nil
}

// ConfirmPayment marks an appointment paid, moves its order to purchased and
// starts customization progress. Confirming an already paid appointment is a no-op.
func (s *bookingService) ConfirmPayment(ctx context.Context, id uuid.UUID) (appointment *model.Appointment, err error) {
	defer func() { s.metrics.ObserveOperation("confirm_payment", err) }()

	tx, err := s.appointmentRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	appointment, err = s.appointmentRepo.GetByID(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}
	if appointment == nil {
		return nil, model.ErrAppointmentNotFound
	}
	if !appointment.IsActive() {
		return nil, model.ErrAppointmentCancelled
	}
	if appointment.PaymentStatus == model.PaymentPaid {
		s.logger.Debug().Str("appointment_id", id.String()).Msg("appointment already paid")
		return appointment, nil
	}

	order, err := s.orderRepo.GetByID(ctx, tx, appointment.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.Status == model.OrderStatusCancelled {
		return nil, model.ErrOrderCancelled
	}

	now := s.now()
	if err = s.appointmentRepo.MarkPaid(ctx, tx, id, now); err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	if order.Status != model.OrderStatusPurchased {
		if err = s.orderRepo.MarkPurchased(ctx, tx, order.ID, booking.NewProgress(*order), now); err != nil {
			return nil, fmt.Errorf("failed to confirm payment: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", id.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}
	committed = true

	appointment.PaymentStatus = model.PaymentPaid
	appointment.UpdatedAt = now

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("order_id", order.ID.String()).
		Str("price", order.Price.StringFixed(2)).
		Msg("payment confirmed")

	s.publish(ctx, events.New(events.AppointmentPaid, order.ID, now, appointment))

	return appointment, nil
}

// Cancel cancels an appointment. Paid appointments are refunded through the
// gateway first; the appointment is only written once the refund succeeded,
// and a refunded cancellation also cancels the order.
func (s *bookingService) Cancel(ctx context.Context, id uuid.UUID) (resp *model.CancellationResponse, err error) {
	defer func() { s.metrics.ObserveOperation("cancel", err) }()

	for attempt := 1; ; attempt++ {
		resp, err = s.cancel(ctx, id)
		if !errors.Is(err, errPaymentChanged) {
			return resp, err
		}
		if attempt == maxCancelAttempts {
			return nil, fmt.Errorf("failed to cancel appointment: %w", err)
		}
		s.logger.Warn().Str("appointment_id", id.String()).Msg("payment status changed during cancellation, re-evaluating")
	}
}

func (s *bookingService) cancel(ctx context.Context, id uuid.UUID) (*model.CancellationResponse, error) {
	appointment, order, err := s.loadForCancel(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	decision := s.rules.EvaluateCancellation(*appointment, *order, now)
	if !decision.Allowed {
		s.logger.Warn().
			Err(decision.Reason).
			Str("appointment_id", id.String()).
			Str("date", appointment.Date).
			Str("time", appointment.Time).
			Msg("cancellation rejected")
		return nil, decision.Reason
	}

	if decision.Refund {
		release, err := s.locker.Acquire(ctx, "refund:"+id.String())
		if errors.Is(err, lock.ErrLocked) {
			s.logger.Warn().Str("appointment_id", id.String()).Msg("refund already in progress")
			return nil, model.ErrRefundInProgress
		}
		if err != nil {
			return nil, fmt.Errorf("failed to cancel appointment: %w", err)
		}
		defer func() {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				s.logger.Error().Err(relErr).Str("appointment_id", id.String()).Msg("failed to release refund lock")
			}
		}()

		// Another instance may have finished the cancellation before we got the lock.
		if appointment, order, err = s.loadForCancel(ctx, id); err != nil {
			return nil, err
		}
		if decision = s.rules.EvaluateCancellation(*appointment, *order, now); !decision.Allowed {
			return nil, decision.Reason
		}

		if err := s.refund(ctx, appointment, order, decision); err != nil {
			return nil, err
		}
	}

	cancelled := *appointment
	cancelled.Status = model.AppointmentStatusCancelled
	cancelled.CancelledAt = &now
	cancelled.UpdatedAt = now
	if decision.Refund {
		refundStatus := model.RefundStatusRefunded
		cancelled.RefundAmount = &decision.RefundAmount
		cancelled.DeductionAmount = &decision.DeductionAmount
		cancelled.RefundStatus = &refundStatus
	}

	stored, err := s.storeCancellation(ctx, &cancelled, appointment.PaymentStatus, order.ID, decision.Refund)
	if err != nil {
		if decision.Refund {
			s.logger.Error().
				Err(err).
				Str("appointment_id", id.String()).
				Str("refund_amount", decision.RefundAmount.StringFixed(2)).
				Msg("refund issued but cancellation was not stored")
		}
		return nil, err
	}
	if !stored {
		return nil, s.cancelConflict(ctx, id)
	}

	event := s.logger.Info().
		Str("appointment_id", id.String()).
		Str("order_id", order.ID.String()).
		Bool("refunded", decision.Refund)
	if decision.Refund {
		event = event.
			Str("refund_amount", decision.RefundAmount.StringFixed(2)).
			Str("deduction_amount", decision.DeductionAmount.StringFixed(2))
	}
	event.Msg("appointment cancelled")

	s.publish(ctx, events.New(events.AppointmentCancelled, order.ID, now, &cancelled))

	resp := &model.CancellationResponse{Appointment: cancelled}
	if decision.Refund {
		resp.RefundAmount = cancelled.RefundAmount
		resp.DeductionAmount = cancelled.DeductionAmount
	}
	return resp, nil
}

// storeCancellation writes the cancellation if the appointment is still
// active with the payment status the decision was made on. A refunded
// cancellation moves the purchased order to cancelled in the same transaction.
func (s *bookingService) storeCancellation(ctx context.Context, appointment *model.Appointment, paymentStatus model.PaymentStatus, orderID uuid.UUID, refunded bool) (bool, error) {
	tx, err := s.appointmentRepo.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	updated, err := s.appointmentRepo.Cancel(ctx, tx, appointment, paymentStatus)
	if err != nil {
		return false, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	if !updated {
		return false, nil
	}

	if refunded {
		if _, err := s.orderRepo.Cancel(ctx, tx, orderID, model.OrderStatusPurchased, appointment.UpdatedAt); err != nil {
			return false, fmt.Errorf("failed to cancel appointment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to commit transaction")
		return false, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	committed = true

	return true, nil
}

// cancelConflict explains why a conditional cancellation matched no row.
func (s *bookingService) cancelConflict(ctx context.Context, id uuid.UUID) error {
	current, err := s.appointmentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}
	switch {
	case current == nil:
		return model.ErrAppointmentNotFound
	case !current.IsActive():
		return model.ErrAppointmentCancelled
	default:
		return errPaymentChanged
	}
}

// CancelOrder cancels a saved order together with its unpaid appointments.
// Purchased orders are cancelled through their appointment instead.
func (s *bookingService) CancelOrder(ctx context.Context, id uuid.UUID) (resp *model.OrderResponse, err error) {
	defer func() { s.metrics.ObserveOperation("cancel_order", err) }()

	order, err := s.orderRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if err := orderCancelError(order); err != nil {
		return nil, err
	}

	tx, err := s.appointmentRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	// The schedule lock keeps Book from attaching an appointment mid-cancel.
	// Appointments are locked before the order, as in ConfirmPayment.
	if err = s.appointmentRepo.LockSchedule(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	now := s.now()
	released, err := s.appointmentRepo.CancelUnpaidByOrder(ctx, tx, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	cancelled, err := s.orderRepo.Cancel(ctx, tx, id, model.OrderStatusSaved, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if !cancelled {
		current, err := s.orderRepo.GetByID(ctx, nil, id)
		if err != nil {
			return nil, fmt.Errorf("failed to cancel order: %w", err)
		}
		if err := orderCancelError(current); err != nil {
			return nil, err
		}
		return nil, model.ErrOrderCancelled
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	committed = true

	order.Status = model.OrderStatusCancelled
	order.UpdatedAt = now

	s.logger.Info().
		Str("order_id", id.String()).
		Int64("appointments_released", released).
		Msg("order cancelled")

	s.publish(ctx, events.New(events.OrderCancelled, order.ID, now, order))

	return toOrderResponse(order), nil
}

// orderCancelError returns why order cannot be cancelled by its customer, or nil.
func orderCancelError(order *model.Order) error {
	switch {
	case order == nil:
		return model.ErrOrderNotFound
	case order.Status == model.OrderStatusCancelled:
		return model.ErrOrderCancelled
	case order.Status == model.OrderStatusPurchased:
		return model.ErrOrderPurchased
	}
	return nil
}

// GetByID retrieves an appointment.
func (s *bookingService) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, nil, id)
	if err != nil {
		s.logger.Error().Err(err).Str("appointment_id", id.String()).Msg("failed to get appointment")
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if appointment == nil {
		return nil, model.ErrAppointmentNotFound
	}
	return appointment, nil
}

// ListByOrder retrieves the appointments of an order, newest first.
func (s *bookingService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Appointment, error) {
	order, err := s.orderRepo.GetByID(ctx, nil, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	appointments, err := s.appointmentRepo.ListByOrder(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to list appointments")
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// loadForCancel reads an active appointment and its order.
func (s *bookingService) loadForCancel(ctx context.Context, id uuid.UUID) (*model.Appointment, *model.Order, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	if appointment == nil {
		return nil, nil, model.ErrAppointmentNotFound
	}
	if !appointment.IsActive() {
		return nil, nil, model.ErrAppointmentCancelled
	}

	order, err := s.orderRepo.GetByID(ctx, nil, appointment.TransactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	if order == nil {
		return nil, nil, model.ErrOrderNotFound
	}

	return appointment, order, nil
}

// refund returns the refundable share of the order price through the gateway.
func (s *bookingService) refund(ctx context.Context, appointment *model.Appointment, order *model.Order, decision booking.CancellationDecision) error {
	if s.gateway == nil {
		s.metrics.ObserveRefund(errGatewayNotConfigured)
		return model.ErrRefundFailed.Wrap(errGatewayNotConfigured)
	}

	result, err := s.gateway.Refund(ctx, payment.RefundRequest{
		AppointmentID: appointment.ID,
		OrderID:       order.ID,
		Amount:        decision.RefundAmount,
		Reason:        "appointment cancelled",
	})
	s.metrics.ObserveRefund(err)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("appointment_id", appointment.ID.String()).
			Str("refund_amount", decision.RefundAmount.StringFixed(2)).
			Msg("refund failed, appointment left unchanged")
		return model.ErrRefundFailed.Wrap(err)
	}

	s.logger.Info().
		Str("appointment_id", appointment.ID.String()).
		Str("refund_id", result.RefundID).
		Msg("refund accepted by gateway")
	return nil
}

func (s *bookingService) publish(ctx context.Context, e events.Event) {
	publish(ctx, s.publisher, s.logger, e)
}
