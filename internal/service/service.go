package service

import (
	"context"

	"auto-atelier/internal/model"

	"github.com/google/uuid"
)

// OrderService defines operations on saved designs and purchased orders.
type OrderService interface {
	// SaveDesign prices a design from the catalog and stores it as a saved order.
	SaveDesign(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error)

	// GetByID retrieves an order with its derived progress figures.
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)

	// ListByCustomer retrieves a customer's orders, newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]model.OrderResponse, error)

	// UpdateStage marks one customization stage of a purchased order as
	// completed or not.
	UpdateStage(ctx context.Context, id uuid.UUID, stage string, completed bool) (*model.OrderResponse, error)

	// Capacity reports the global capacity gate.
	Capacity(ctx context.Context) (*model.CapacityResponse, error)
}

// BookingService defines operations on appointments.
type BookingService interface {
	// AvailableSlots lists the free start times on date. excludeID keeps the
	// slot of an appointment being edited available.
	AvailableSlots(ctx context.Context, date string, excludeID *uuid.UUID) (*model.SlotsResponse, error)

	// Book creates an appointment for an order.
	Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error)

	// Reschedule moves an active appointment to another slot.
	Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleRequest) (*model.Appointment, error)

	// ConfirmPayment marks an appointment paid and its order purchased.
	ConfirmPayment(ctx context.Context, id uuid.UUID) (*model.Appointment, error)

	// Cancel cancels an appointment, refunding paid ones minus the processing fee.
	Cancel(ctx context.Context, id uuid.UUID) (*model.CancellationResponse, error)

	// CancelOrder cancels an unpaid order and releases its appointments.
	CancelOrder(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)

	// GetByID retrieves an appointment.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)

	// ListByOrder retrieves the appointments of an order, newest first.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Appointment, error)
}
