package service

import (
	"context"
	"time"

	"auto-atelier/internal/events"
	"auto-atelier/internal/lock"
	"auto-atelier/internal/model"
	"auto-atelier/internal/payment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListPurchased(ctx context.Context, tx pgx.Tx) ([]model.Order, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) MarkPurchased(ctx context.Context, tx pgx.Tx, id uuid.UUID, progress *model.CustomizationProgress, at time.Time) error {
	args := m.Called(ctx, tx, id, progress, at)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateProgress(ctx context.Context, tx pgx.Tx, id uuid.UUID, progress *model.CustomizationProgress, at time.Time) error {
	args := m.Called(ctx, tx, id, progress, at)
	return args.Error(0)
}

func (m *MockOrderRepository) Cancel(ctx context.Context, tx pgx.Tx, id uuid.UUID, from model.OrderStatus, at time.Time) (bool, error) {
	args := m.Called(ctx, tx, id, from, at)
	return args.Bool(0), args.Error(1)
}

// MockAppointmentRepository is a mock implementation of AppointmentRepository.
type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAppointmentRepository) LockSchedule(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockAppointmentRepository) ListForBooking(ctx context.Context, tx pgx.Tx, date string, orderID uuid.UUID) ([]model.Appointment, error) {
	args := m.Called(ctx, tx, date, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Appointment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Appointment, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appointment *model.Appointment) error {
	args := m.Called(ctx, tx, appointment)
	return args.Error(0)
}

func (m *MockAppointmentRepository) UpdateSchedule(ctx context.Context, tx pgx.Tx, id uuid.UUID, date, timeOfDay string, at time.Time) error {
	args := m.Called(ctx, tx, id, date, timeOfDay, at)
	return args.Error(0)
}

func (m *MockAppointmentRepository) MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, tx, id, at)
	return args.Error(0)
}

func (m *MockAppointmentRepository) Cancel(ctx context.Context, tx pgx.Tx, appointment *model.Appointment, paymentStatus model.PaymentStatus) (bool, error) {
	args := m.Called(ctx, tx, appointment, paymentStatus)
	return args.Bool(0), args.Error(1)
}

func (m *MockAppointmentRepository) CancelUnpaidByOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, tx, orderID, at)
	return args.Get(0).(int64), args.Error(1)
}

// MockGateway is a mock implementation of payment.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundResult), args.Error(1)
}

// MockLocker is a mock implementation of lock.Locker.
type MockLocker struct {
	mock.Mock
	released int
}

func (m *MockLocker) Acquire(ctx context.Context, key string) (lock.ReleaseFunc, error) {
	args := m.Called(ctx, key)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		m.released++
		return nil
	}, nil
}

// MockPublisher is a mock implementation of events.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evs ...events.Event) error {
	args := m.Called(ctx, evs)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// eventOfType matches a Publish call carrying a single event of type t.
func eventOfType(t events.Type) any {
	return mock.MatchedBy(func(evs []events.Event) bool {
		return len(evs) == 1 && evs[0].Type == t
	})
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }
