package booking

import (
	"math"
	"time"

	"auto-atelier/internal/model"
)

// NewProgress returns the initial progress for a freshly purchased order: one
// pending entry per selected stage.
func NewProgress(order model.Order) *model.CustomizationProgress {
	p := &model.CustomizationProgress{}
	for _, stage := range model.Stages {
		if order.HasSelection(stage) {
			p.SetStage(stage, &model.StageProgress{})
		}
	}
	p.OverallStatus = statusOf(countStages(p))
	return p
}

// ApplyStageUpdate returns a copy of current with stage marked completed or
// not. The completion timestamp is set to now when completed and cleared
// otherwise; repeating an update leaves the flag unchanged but moves the
// timestamp to the latest now. Other stages are untouched.
func ApplyStageUpdate(current *model.CustomizationProgress, stage model.Stage, completed bool, now time.Time) (*model.CustomizationProgress, error) {
	if _, ok := model.ParseStage(string(stage)); !ok {
		return nil, model.ErrInvalidStage
	}
	if current.Stage(stage) == nil {
		return nil, model.ErrStageNotSelected
	}

	next := current.Clone()
	sp := &model.StageProgress{Completed: completed}
	if completed {
		at := now
		sp.CompletedAt = &at
	}
	next.SetStage(stage, sp)
	next.OverallStatus = statusOf(countStages(next))

	return next, nil
}

// PercentComplete returns the share of the order's selected stages that are
// complete, rounded to the nearest integer. Orders without selections are 0.
func PercentComplete(order model.Order) int {
	done, total := countSelected(order)
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) * 100 / float64(total)))
}

// OverallStatus derives pending, in-progress or completed from the order's
// selected stages.
func OverallStatus(order model.Order) model.ProgressStatus {
	return statusOf(countSelected(order))
}

func statusOf(done, total int) model.ProgressStatus {
	switch {
	case total > 0 && done == total:
		return model.ProgressCompleted
	case done > 0:
		return model.ProgressInProgress
	default:
		return model.ProgressPending
	}
}

// countSelected counts the selected stages and how many of them are complete.
// A stage without a selection is ignored even if progress holds an entry for it.
func countSelected(order model.Order) (done, total int) {
	for _, stage := range model.Stages {
		if !order.HasSelection(stage) {
			continue
		}
		total++
		if sp := order.CustomizationProgress.Stage(stage); sp != nil && sp.Completed {
			done++
		}
	}
	return done, total
}

func countStages(p *model.CustomizationProgress) (done, total int) {
	for _, stage := range model.Stages {
		sp := p.Stage(stage)
		if sp == nil {
			continue
		}
		total++
		if sp.Completed {
			done++
		}
	}
	return done, total
}
