package booking

import "auto-atelier/internal/model"

// ActiveOrderCount counts purchased orders whose customization is not yet
// completed. A purchased order without progress counts as unfinished.
func ActiveOrderCount(orders []model.Order) int {
	n := 0
	for i := range orders {
		o := &orders[i]
		if o.Status != model.OrderStatusPurchased {
			continue
		}
		if o.CustomizationProgress != nil && o.CustomizationProgress.OverallStatus == model.ProgressCompleted {
			continue
		}
		n++
	}
	return n
}

// IsCapacityReached reports whether the number of active orders has hit the
// capacity limit.
func (r Rules) IsCapacityReached(orders []model.Order) bool {
	limit := r.CapacityLimit
	if limit <= 0 {
		limit = DefaultCapacityLimit
	}
	return ActiveOrderCount(orders) >= limit
}
