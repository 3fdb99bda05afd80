// Package achievement contains the achievement catalog model, the criteria
// rules that decide satisfaction, and per-user completion state.
//
// Achievement definitions are a global catalog, read-only to the engine at
// runtime; completion and progress state is workspace-scoped. A completion is
// monotonic: the false→true transition happens exactly once and never
// regresses.
package achievement

import (
	"time"

	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA (tagged union: Count | Value | Streak)
// ══════════════════════════════════════════════════════════════════════════════

// CriteriaKind discriminates the three criteria variants. There is no
// fallback: an unknown kind is a validation error, never a silent zero.
type CriteriaKind string

const (
	// CriteriaCount matches the accumulated action counter.
	CriteriaCount CriteriaKind = "count"

	// CriteriaValue matches the summed numeric payload from event history.
	CriteriaValue CriteriaKind = "value"

	// CriteriaStreak matches the consecutive-calendar-day streak.
	CriteriaStreak CriteriaKind = "streak"
)

// IsValid checks if the kind is one of the three variants.
func (k CriteriaKind) IsValid() bool {
	switch k {
	case CriteriaCount, CriteriaValue, CriteriaStreak:
		return true
	}
	return false
}

// Criteria is the rule deciding when an achievement is satisfied: a variant,
// the action it is bound to, and the threshold the matching stat must reach.
type Criteria struct {
	Kind      CriteriaKind  `json:"kind"`
	Action    shared.Action `json:"action"`
	Threshold float64       `json:"threshold"`
}

// Validate checks the criteria shape.
func (c Criteria) Validate() error {
	if !c.Kind.IsValid() {
		return shared.ErrUnknownCriteriaKind
	}
	if !c.Action.IsValid() {
		return shared.ErrInvalidAction
	}
	if c.Threshold <= 0 {
		return shared.ErrInvalidThreshold
	}
	return nil
}

// Satisfied reports whether the given stat value meets the threshold.
func (c Criteria) Satisfied(stat float64) bool {
	return stat >= c.Threshold
}

// ProgressPercent returns how far a stat is toward the threshold, capped at 100.
func (c Criteria) ProgressPercent(stat float64) shared.Percent {
	if c.Threshold <= 0 {
		return 0
	}
	return shared.ClampPercent(stat / c.Threshold * 100)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT (global catalog definition)
// ══════════════════════════════════════════════════════════════════════════════

// Achievement is a global definition of a completable milestone. The catalog
// lifecycle (seeding, editing, deactivation) happens out of band; the engine
// treats definitions as read-only at runtime.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Category    string
	Type        string
	Points      shared.Points
	Criteria    Criteria
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the definition.
func (a *Achievement) Validate() error {
	if a.Name == "" {
		return shared.NewDomainError("achievement", "Validate", shared.ErrEmptyValue, "name is required")
	}
	if !a.Points.IsValid() {
		return shared.ErrNegativePoints
	}
	return a.Criteria.Validate()
}

// ══════════════════════════════════════════════════════════════════════════════
// USER ACHIEVEMENT (workspace-scoped completion state)
// ══════════════════════════════════════════════════════════════════════════════

// UserAchievement is the per-(user, workspace, achievement) completion state.
// Created lazily the first time evaluation considers the pair; transitions
// exactly once, false→true; never regresses.
type UserAchievement struct {
	UserID        shared.UserID
	WorkspaceID   shared.WorkspaceID
	AchievementID string

	// Progress is the UI-feedback percentage toward the threshold, 0-100.
	Progress shared.Percent

	// IsCompleted is monotonic: once true, it stays true.
	IsCompleted bool

	// EarnedAt is set exactly when IsCompleted flips to true, nil before.
	EarnedAt *time.Time

	Metadata map[string]interface{}

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserAchievement creates the lazily-initialized state for a pair.
func NewUserAchievement(userID shared.UserID, workspaceID shared.WorkspaceID, achievementID string, createdAt time.Time) *UserAchievement {
	return &UserAchievement{
		UserID:        userID,
		WorkspaceID:   workspaceID,
		AchievementID: achievementID,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// Complete performs the monotonic false→true transition.
// Returns ErrCompletionRegression if already completed: the caller must treat
// completion as at-most-once.
func (ua *UserAchievement) Complete(earnedAt time.Time) error {
	if ua.IsCompleted {
		return shared.ErrCompletionRegression
	}
	ua.IsCompleted = true
	ua.Progress = 100
	t := earnedAt
	ua.EarnedAt = &t
	ua.UpdatedAt = earnedAt
	return nil
}

// UpdateProgress records UI-feedback progress on an incomplete achievement.
// Progress on a completed achievement is frozen at 100.
func (ua *UserAchievement) UpdateProgress(pct shared.Percent, now time.Time) {
	if ua.IsCompleted {
		return
	}
	ua.Progress = pct
	ua.UpdatedAt = now
}

// Earned pairs a newly completed achievement with its definition, for the
// "you just unlocked X" result list.
type Earned struct {
	Achievement *Achievement     `json:"achievement"`
	State       *UserAchievement `json:"state"`
}
