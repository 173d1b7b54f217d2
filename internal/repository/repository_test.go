package repository

import (
	"context"
	"testing"
	"time"

	"auto-atelier/internal/database"
	"auto-atelier/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and applies the schema migrations.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(connStr, zerolog.Nop()))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func strPtr(s string) *string { return &s }

func newTestOrder(customerID string, status model.OrderStatus) *model.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		CarModelID: "roadster",
		ColorID:    strPtr("midnight-blue"),
		WheelID:    strPtr("sport-19"),
		Price:      decimal.RequireFromString("1000.00"),
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newTestAppointment(orderID uuid.UUID, date, timeOfDay string) *model.Appointment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Appointment{
		ID:            uuid.New(),
		TransactionID: orderID,
		Date:          date,
		Time:          timeOfDay,
		Status:        model.AppointmentStatusBooked,
		PaymentStatus: model.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
