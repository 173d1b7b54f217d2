package repository

import (
	"context"
	"testing"
	"time"

	"auto-atelier/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRepository_BeginTx(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)

	require.NoError(t, err)
	require.NotNil(t, tx)

	// Rollback to cleanup
	err = tx.Rollback(ctx)
	assert.NoError(t, err)
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder("customer-1", model.OrderStatusSaved)
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.GetByID(ctx, nil, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, "customer-1", got.CustomerID)
	assert.Equal(t, "roadster", got.CarModelID)
	require.NotNil(t, got.ColorID)
	assert.Equal(t, "midnight-blue", *got.ColorID)
	assert.Nil(t, got.InteriorID)
	assert.True(t, order.Price.Equal(got.Price), "price %s", got.Price)
	assert.Equal(t, model.OrderStatusSaved, got.Status)
	assert.Nil(t, got.CustomizationProgress)
	assert.Nil(t, got.PurchasedAt)
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())

	got, err := repo.GetByID(context.Background(), nil, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderRepository_MarkPurchasedAndProgress(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder("customer-1", model.OrderStatusSaved)
	require.NoError(t, repo.Create(ctx, order))

	progress := &model.CustomizationProgress{
		Paint:         &model.StageProgress{},
		Wheels:        &model.StageProgress{},
		OverallStatus: model.ProgressPending,
	}
	at := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	locked, err := repo.GetByID(ctx, tx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, locked)
	require.NoError(t, repo.MarkPurchased(ctx, tx, order.ID, progress, at))
	require.NoError(t, tx.Commit(ctx))

	got, err := repo.GetByID(ctx, nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPurchased, got.Status)
	require.NotNil(t, got.PurchasedAt)
	assert.True(t, at.Equal(*got.PurchasedAt))
	require.NotNil(t, got.CustomizationProgress)
	assert.Equal(t, progress, got.CustomizationProgress)

	completedAt := at.Add(2 * time.Hour)
	progress.Paint = &model.StageProgress{Completed: true, CompletedAt: &completedAt}
	progress.OverallStatus = model.ProgressInProgress
	require.NoError(t, repo.UpdateProgress(ctx, nil, order.ID, progress, completedAt))

	got, err = repo.GetByID(ctx, nil, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CustomizationProgress.Paint)
	assert.True(t, got.CustomizationProgress.Paint.Completed)
	assert.True(t, completedAt.Equal(*got.CustomizationProgress.Paint.CompletedAt))
	assert.Equal(t, model.ProgressInProgress, got.CustomizationProgress.OverallStatus)
	assert.Nil(t, got.CustomizationProgress.Interior)
}

func TestOrderRepository_UpdateMissingOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	err := repo.UpdateProgress(ctx, nil, uuid.New(), nil, time.Now())
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestOrderRepository_Cancel(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder("customer-1", model.OrderStatusPurchased)
	require.NoError(t, repo.Create(ctx, order))

	ok, err := repo.Cancel(ctx, nil, order.ID, model.OrderStatusSaved, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "status did not match")

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	ok, err = repo.Cancel(ctx, tx, order.ID, model.OrderStatusPurchased, time.Now())
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)

	purchased, err := repo.ListPurchased(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, purchased)

	ok, err = repo.Cancel(ctx, nil, uuid.New(), model.OrderStatusSaved, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderRepository_Lists(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	saved := newTestOrder("customer-1", model.OrderStatusSaved)
	purchased := newTestOrder("customer-1", model.OrderStatusPurchased)
	purchased.CreatedAt = saved.CreatedAt.Add(time.Minute)
	other := newTestOrder("customer-2", model.OrderStatusPurchased)

	for _, o := range []*model.Order{saved, purchased, other} {
		require.NoError(t, repo.Create(ctx, o))
	}

	t.Run("By customer newest first", func(t *testing.T) {
		orders, err := repo.ListByCustomer(ctx, "customer-1")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, purchased.ID, orders[0].ID)
		assert.Equal(t, saved.ID, orders[1].ID)
	})

	t.Run("Unknown customer", func(t *testing.T) {
		orders, err := repo.ListByCustomer(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("Purchased only", func(t *testing.T) {
		orders, err := repo.ListPurchased(ctx, nil)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		for _, o := range orders {
			assert.Equal(t, model.OrderStatusPurchased, o.Status)
		}
	})
}
