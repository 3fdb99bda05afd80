// Package progress owns per-(user, workspace, module, action) running
// counters, targets, and calendar-day streaks. Records are created lazily on
// the first action for a key, mutated on every subsequent action, and never
// deleted.
package progress

import (
	"time"

	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
	"github.com/bizhub-io/gamification-engine/pkg/timeutil"
)

// Key is the composite key identifying one progress record.
type Key struct {
	UserID      shared.UserID
	WorkspaceID shared.WorkspaceID
	Module      string
	Action      shared.Action
}

// Validate checks that all key components are present and well-formed.
func (k Key) Validate() error {
	if k.UserID.IsEmpty() {
		return shared.NewDomainError("progress", "Validate", shared.ErrEmptyValue, "user ID is required")
	}
	if k.WorkspaceID.IsEmpty() {
		return shared.NewDomainError("progress", "Validate", shared.ErrEmptyValue, "workspace ID is required")
	}
	if k.Module == "" {
		return shared.ErrInvalidModule
	}
	if !k.Action.IsValid() {
		return shared.ErrInvalidAction
	}
	return nil
}

// Progress is one running counter with its target and streak state.
type Progress struct {
	Key Key

	// CurrentValue is the accumulated counter for the action.
	CurrentValue float64

	// TargetValue is the optional goal; nil means no target set.
	TargetValue *float64

	// StreakCount is the number of consecutive calendar days with at least
	// one action. Zero only before the first action.
	StreakCount int

	// LastActionAt is when the key was last incremented.
	LastActionAt time.Time

	// Percentage is derived from CurrentValue/TargetValue, clamped to [0, 100].
	// Zero when no target is set.
	Percentage shared.Percent

	// Metadata carries opaque caller-supplied context for the latest action.
	Metadata map[string]interface{}

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a fresh progress record for a key. The record carries no
// activity until Apply is called.
func New(key Key, createdAt time.Time) *Progress {
	return &Progress{
		Key:       key,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ApplyResult describes what an Apply call changed, for event emission.
type ApplyResult struct {
	// StreakExtended is true when the streak grew by one day.
	StreakExtended bool

	// StreakReset is true when a missed day reset the streak to 1.
	StreakReset bool

	// TargetChanged is true when a supplied target replaced the stored one.
	TargetChanged bool
}

// Apply records one action occurrence at the given instant.
//
// Increment must be >= 0; a negative increment is rejected with no mutation.
// The streak grows by exactly 1 the first time an action lands on a new
// calendar day, stays unchanged for further same-day actions, and resets to 1
// after a calendar day with zero actions. A non-nil target that differs from
// the stored one overwrites it (late-bound goals).
func (p *Progress) Apply(increment float64, target *float64, metadata map[string]interface{}, now time.Time) (ApplyResult, error) {
	var res ApplyResult

	if increment < 0 {
		return res, shared.ErrNegativeIncrement
	}

	p.CurrentValue += increment

	switch {
	case p.LastActionAt.IsZero():
		p.StreakCount = 1
		res.StreakExtended = true
	case timeutil.SameDay(p.LastActionAt, now):
		// Same calendar day: streak unchanged.
	case timeutil.DaysBetween(p.LastActionAt, now) == 1:
		p.StreakCount++
		res.StreakExtended = true
	default:
		p.StreakCount = 1
		res.StreakReset = true
	}

	if target != nil && (p.TargetValue == nil || *p.TargetValue != *target) {
		t := *target
		p.TargetValue = &t
		res.TargetChanged = true
	}

	if metadata != nil {
		p.Metadata = metadata
	}

	p.LastActionAt = now
	p.UpdatedAt = now
	p.recomputePercentage()

	return res, nil
}

// recomputePercentage derives Percentage from the current value and target.
func (p *Progress) recomputePercentage() {
	if p.TargetValue == nil || *p.TargetValue <= 0 {
		p.Percentage = 0
		return
	}
	p.Percentage = shared.ClampPercent(p.CurrentValue / *p.TargetValue * 100)
}

// RemainingToTarget returns how far CurrentValue is from the target, never
// negative. Zero when no target is set.
func (p *Progress) RemainingToTarget() float64 {
	if p.TargetValue == nil {
		return 0
	}
	remaining := *p.TargetValue - p.CurrentValue
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StreakBrokenAsOf reports whether the streak would reset if the next action
// happened at the given instant.
func (p *Progress) StreakBrokenAsOf(now time.Time) bool {
	if p.LastActionAt.IsZero() {
		return false
	}
	return timeutil.DaysBetween(p.LastActionAt, now) > 1
}
