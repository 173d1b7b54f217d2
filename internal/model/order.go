package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusSaved     OrderStatus = "saved"
	OrderStatusPurchased OrderStatus = "purchased"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Stage is a customization work item.
type Stage string

const (
	StagePaint    Stage = "paint"
	StageWheels   Stage = "wheels"
	StageInterior Stage = "interior"
)

// Stages lists every stage in display order.
var Stages = []Stage{StagePaint, StageWheels, StageInterior}

// ParseStage converts a raw string into a Stage.
func ParseStage(s string) (Stage, bool) {
	switch Stage(s) {
	case StagePaint, StageWheels, StageInterior:
		return Stage(s), true
	}
	return "", false
}

// ProgressStatus is the aggregated customization state of an order.
type ProgressStatus string

const (
	ProgressPending    ProgressStatus = "pending"
	ProgressInProgress ProgressStatus = "in-progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// Order represents a customer's configured vehicle purchase.
type Order struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	CustomerID string          `json:"customerId" db:"customer_id"`
	CarModelID string          `json:"carModelId" db:"car_model_id"`
	ColorID    *string         `json:"colorId,omitempty" db:"color_id"`
	WheelID    *string         `json:"wheelId,omitempty" db:"wheel_id"`
	InteriorID *string         `json:"interiorId,omitempty" db:"interior_id"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Status     OrderStatus     `json:"status" db:"status"`

	CustomizationProgress *CustomizationProgress `json:"customizationProgress,omitempty" db:"customization_progress"`

	PurchasedAt *time.Time `json:"purchasedAt,omitempty" db:"purchased_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// HasSelection reports whether the order selected an option for the stage.
func (o *Order) HasSelection(stage Stage) bool {
	switch stage {
	case StagePaint:
		return o.ColorID != nil
	case StageWheels:
		return o.WheelID != nil
	case StageInterior:
		return o.InteriorID != nil
	}
	return false
}

// StageProgress is the completion state of one stage.
type StageProgress struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

// CustomizationProgress tracks per-stage work on a purchased order.
// Only stages the order selected have an entry.
type CustomizationProgress struct {
	Paint         *StageProgress `json:"paint,omitempty"`
	Wheels        *StageProgress `json:"wheels,omitempty"`
	Interior      *StageProgress `json:"interior,omitempty"`
	OverallStatus ProgressStatus `json:"overallStatus"`
}

// Stage returns the entry for the given stage, or nil when the stage is not tracked.
func (p *CustomizationProgress) Stage(stage Stage) *StageProgress {
	if p == nil {
		return nil
	}
	switch stage {
	case StagePaint:
		return p.Paint
	case StageWheels:
		return p.Wheels
	case StageInterior:
		return p.Interior
	}
	return nil
}

// SetStage replaces the entry for the given stage.
func (p *CustomizationProgress) SetStage(stage Stage, sp *StageProgress) {
	switch stage {
	case StagePaint:
		p.Paint = sp
	case StageWheels:
		p.Wheels = sp
	case StageInterior:
		p.Interior = sp
	}
}

// Clone returns a deep copy of the progress.
func (p *CustomizationProgress) Clone() *CustomizationProgress {
	if p == nil {
		return nil
	}
	out := &CustomizationProgress{OverallStatus: p.OverallStatus}
	for _, stage := range Stages {
		if sp := p.Stage(stage); sp != nil {
			cp := *sp
			if sp.CompletedAt != nil {
				at := *sp.CompletedAt
				cp.CompletedAt = &at
			}
			out.SetStage(stage, &cp)
		}
	}
	return out
}

// OrderRequest represents the request payload for saving a design.
type OrderRequest struct {
	CustomerID string  `json:"customerId"`
	CarModelID string  `json:"carModelId"`
	ColorID    *string `json:"colorId,omitempty"`
	WheelID    *string `json:"wheelId,omitempty"`
	InteriorID *string `json:"interiorId,omitempty"`
}

// StageUpdateRequest represents the request payload for a stage completion change.
type StageUpdateRequest struct {
	Completed bool `json:"completed"`
}

// OrderResponse represents an order together with its derived progress figures.
type OrderResponse struct {
	Order
	PercentComplete int            `json:"percentComplete"`
	OverallStatus   ProgressStatus `json:"overallStatus"`
}

// CapacityResponse reports the global capacity gate.
type CapacityResponse struct {
	Active  int  `json:"active"`
	Limit   int  `json:"limit"`
	Reached bool `json:"reached"`
}
