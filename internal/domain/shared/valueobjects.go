// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a platform user identifier (UUID format).
// The user entity itself is owned by the platform, not by the progress engine.
type UserID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

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

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents cumulative experience points earned by a user.
type XP int

// MinXP is the lower bound; the ledger never lets XP go negative.
const MinXP XP = 0

// XPPerLevel is the amount of XP that advances one level.
const XPPerLevel = 500

// IsValid checks if the XP value is within valid range.
func (x XP) IsValid() bool {
	return x >= MinXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds XP and returns the result, floored at MinXP.
func (x XP) Add(amount int) XP {
	result := XP(int(x) + amount)
	if result < MinXP {
		return MinXP
	}
	return result
}

// Level calculates the level derived from XP.
// Formula: level = floor(xp / 500) + 1. Level is never stored as
// independently mutable state; it is always recomputed from XP.
func (x XP) Level() Level {
	if x < 0 {
		return MinLevel
	}
	return Level(int(x)/XPPerLevel) + 1
}

// ProgressToNextLevel returns percentage progress to the next level (0-100).
func (x XP) ProgressToNextLevel() int {
	if x < 0 {
		return 0
	}
	return (int(x) % XPPerLevel) * 100 / XPPerLevel
}

// ToNextLevel returns how much XP is missing until the next level.
func (x XP) ToNextLevel() int {
	if x < 0 {
		return XPPerLevel
	}
	return XPPerLevel - int(x)%XPPerLevel
}

// NewXP creates a new XP value with validation.
func NewXP(amount int) (XP, error) {
	if amount < int(MinXP) {
		return 0, NewDomainError("shared", "NewXP", ErrNegativeValue, "XP cannot be negative")
	}
	return XP(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a user's level tier, a pure function of XP.
type Level int

// MinLevel is the starting level for every user.
const MinLevel Level = 1

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// RequiredXP returns the cumulative XP required to reach this level.
func (l Level) RequiredXP() int {
	if l <= MinLevel {
		return 0
	}
	return (int(l) - 1) * XPPerLevel
}

// ═══════════════════════════════════════════════════════════════════════════
// Listing Options
// ═══════════════════════════════════════════════════════════════════════════

// ListOptions contains pagination parameters for repository listings.
type ListOptions struct {
	// Offset - number of records to skip.
	Offset int

	// Limit - maximum number of records to return.
	Limit int
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Offset: 0, Limit: 50}
}

// WithOffset sets the offset.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit sets the limit.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}
