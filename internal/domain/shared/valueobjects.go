// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// UserID represents a unique user identifier (UUID format).
// Identity is owned by the surrounding platform; the engine only carries the ID.
type UserID string

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID format")
	}
	return uid, nil
}

// WorkspaceID represents a unique workspace (tenant) identifier.
type WorkspaceID string

// IsValid checks if the workspace ID is a valid UUID.
func (w WorkspaceID) IsValid() bool {
	return uuidRegex.MatchString(string(w))
}

// String returns the string representation.
func (w WorkspaceID) String() string {
	return string(w)
}

// IsEmpty checks if the ID is empty.
func (w WorkspaceID) IsEmpty() bool {
	return w == ""
}

// NewWorkspaceID creates a new WorkspaceID with validation.
func NewWorkspaceID(id string) (WorkspaceID, error) {
	wid := WorkspaceID(strings.ToLower(strings.TrimSpace(id)))
	if !wid.IsValid() {
		return "", NewDomainError("shared", "NewWorkspaceID", ErrInvalidID, "invalid workspace ID format")
	}
	return wid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Action Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Action identifies a trackable user action (e.g., "post_created", "deal_closed").
type Action string

// Action format: lowercase snake_case, 2-64 chars.
var actionRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// IsValid checks if the action key format is valid.
func (a Action) IsValid() bool {
	return actionRegex.MatchString(string(a))
}

// String returns the string representation.
func (a Action) String() string {
	return string(a)
}

// NewAction creates a new Action with validation.
func NewAction(key string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(key)))
	if !a.IsValid() {
		return "", NewDomainError("shared", "NewAction", ErrInvalidFormat, "invalid action key format")
	}
	return a, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Points Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Points represents achievement points awarded on completion.
type Points int

// IsValid checks if the points value is non-negative.
func (p Points) IsValid() bool {
	return p >= 0
}

// Int returns the underlying int value.
func (p Points) Int() int {
	return int(p)
}

// NewPoints creates a new Points value with validation.
func NewPoints(value int) (Points, error) {
	if value < 0 {
		return 0, ErrNegativePoints
	}
	return Points(value), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Percent Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Percent represents a progress percentage, always clamped to [0, 100].
type Percent float64

// ClampPercent clamps an arbitrary value into the valid percentage range.
func ClampPercent(v float64) Percent {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return Percent(v)
}

// Float64 returns the underlying float64 value.
func (p Percent) Float64() float64 {
	return float64(p)
}

// IsComplete returns true when the percentage reached 100.
func (p Percent) IsComplete() bool {
	return p >= 100
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters for workspace-wide queries.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}
