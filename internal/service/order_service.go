package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"auto-atelier/internal/booking"
	"auto-atelier/internal/catalog"
	"auto-atelier/internal/events"
	"auto-atelier/internal/metrics"
	"auto-atelier/internal/model"
	"auto-atelier/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	catalog   catalog.Catalog
	rules     booking.Rules
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cat catalog.Catalog,
	rules booking.Rules,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		catalog:   cat,
		rules:     rules,
		publisher: publisher,
		metrics:   m,
		logger:    logger.With().Str("service", "order").Logger(),
		now:       time.Now,
	}
}

// SaveDesign prices a design from the catalog and stores it as a saved order.
func (s *orderService) SaveDesign(ctx context.Context, req *model.OrderRequest) (resp *model.OrderResponse, err error) {
	defer func() { s.metrics.ObserveOperation("save_design", err) }()

	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	sel := catalog.Selection{
		CarModelID: strings.TrimSpace(req.CarModelID),
		ColorID:    optionalID(req.ColorID),
		WheelID:    optionalID(req.WheelID),
		InteriorID: optionalID(req.InteriorID),
	}

	price, err := s.catalog.Price(sel)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("customer_id", req.CustomerID).
			Str("car_model_id", sel.CarModelID).
			Msg("design references unknown options")
		return nil, err
	}

	now := s.now()
	order := &model.Order{
		ID:         uuid.New(),
		CustomerID: strings.TrimSpace(req.CustomerID),
		CarModelID: sel.CarModelID,
		ColorID:    sel.ColorID,
		WheelID:    sel.WheelID,
		InteriorID: sel.InteriorID,
		Price:      price,
		Status:     model.OrderStatusSaved,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to save design")
		return nil, fmt.Errorf("failed to save design: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("customer_id", order.CustomerID).
		Str("price", order.Price.StringFixed(2)).
		Msg("design saved")

	s.publish(ctx, events.New(events.OrderSaved, order.ID, now, order))

	return toOrderResponse(order), nil
}

// GetByID retrieves an order with its derived progress figures.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, nil, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return toOrderResponse(order), nil
}

// ListByCustomer retrieves a customer's orders, newest first.
func (s *orderService) ListByCustomer(ctx context.Context, customerID string) ([]model.OrderResponse, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, model.ErrMissingCustomerID
	}

	orders, err := s.orderRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	out := make([]model.OrderResponse, len(orders))
	for i := range orders {
		out[i] = *toOrderResponse(&orders[i])
	}
	return out, nil
}

// UpdateStage marks one customization stage of a purchased order as completed or not.
func (s *orderService) UpdateStage(ctx context.Context, id uuid.UUID, stageName string, completed bool) (resp *model.OrderResponse, err error) {
	defer func() { s.metrics.ObserveOperation("update_stage", err) }()

	stage, ok := model.ParseStage(stageName)
	if !ok {
		s.logger.Warn().Str("order_id", id.String()).Str("stage", stageName).Msg("unknown stage")
		return nil, model.ErrInvalidStage
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err := s.orderRepo.GetByID(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}
	if order == nil {
		err = model.ErrOrderNotFound
		return nil, err
	}
	if order.Status != model.OrderStatusPurchased {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("status", string(order.Status)).
			Msg("stage update on an order that is not purchased")
		err = model.ErrOrderNotPurchased
		return nil, err
	}
	if !order.HasSelection(stage) {
		s.logger.Warn().Str("order_id", id.String()).Str("stage", string(stage)).Msg("stage not selected")
		err = model.ErrStageNotSelected
		return nil, err
	}

	current := order.CustomizationProgress
	if current == nil {
		current = booking.NewProgress(*order)
	}

	now := s.now()
	next, err := booking.ApplyStageUpdate(current, stage, completed, now)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", id.String()).Str("stage", string(stage)).Msg("stage update rejected")
		return nil, err
	}

	if err = s.orderRepo.UpdateProgress(ctx, tx, id, next, now); err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	order.CustomizationProgress = next
	order.UpdatedAt = now

	s.logger.Info().
		Str("order_id", id.String()).
		Str("stage", string(stage)).
		Bool("completed", completed).
		Str("overall_status", string(next.OverallStatus)).
		Msg("customization stage updated")

	s.publish(ctx, events.New(events.OrderStageUpdated, id, now, map[string]any{
		"stage":         stage,
		"completed":     completed,
		"overallStatus": next.OverallStatus,
	}))

	return toOrderResponse(order), nil
}

// Capacity reports the global capacity gate.
func (s *orderService) Capacity(ctx context.Context) (*model.CapacityResponse, error) {
	return capacity(ctx, s.orderRepo, nil, s.rules, s.metrics)
}

func (s *orderService) publish(ctx context.Context, e events.Event) {
	publish(ctx, s.publisher, s.logger, e)
}

func capacity(ctx context.Context, repo repository.OrderRepository, tx pgx.Tx, rules booking.Rules, m *metrics.Metrics) (*model.CapacityResponse, error) {
	orders, err := repo.ListPurchased(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to read capacity: %w", err)
	}

	active := booking.ActiveOrderCount(orders)
	m.SetActiveOrders(active)

	limit := rules.CapacityLimit
	if limit <= 0 {
		limit = booking.DefaultCapacityLimit
	}

	return &model.CapacityResponse{
		Active:  active,
		Limit:   limit,
		Reached: rules.IsCapacityReached(orders),
	}, nil
}

// publish delivers an event without failing the operation that raised it.
func publish(ctx context.Context, p events.Publisher, logger zerolog.Logger, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.Error().
			Err(err).
			Str("event_type", string(e.Type)).
			Str("key", e.Key).
			Msg("failed to publish event")
	}
}

func toOrderResponse(order *model.Order) *model.OrderResponse {
	return &model.OrderResponse{
		Order:           *order,
		PercentComplete: booking.PercentComplete(*order),
		OverallStatus:   booking.OverallStatus(*order),
	}
}

// validateOrderRequest validates the design request.
func validateOrderRequest(req *model.OrderRequest) error {
	if req == nil {
		return fmt.Errorf("order request is nil")
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		return model.ErrMissingCustomerID
	}
	if strings.TrimSpace(req.CarModelID) == "" {
		return model.ErrMissingCarModelID
	}
	return nil
}

// optionalID treats blank ids as not selected.
func optionalID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
