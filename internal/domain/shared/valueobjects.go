// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a unique user identifier (UUID format).
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

// CategoryID represents one of the ten cognitive-skill categories.
type CategoryID string

// Category slug format: lowercase words joined by hyphens.
var categoryIDRegex = regexp.MustCompile(`^[a-z]+(-[a-z]+)*$`)

// IsValid checks if the category ID has a valid slug format.
func (c CategoryID) IsValid() bool {
	return categoryIDRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CategoryID) String() string {
	return string(c)
}

// NewCategoryID creates a new CategoryID with validation.
func NewCategoryID(id string) (CategoryID, error) {
	cid := CategoryID(strings.ToLower(strings.TrimSpace(id)))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewCategoryID", ErrInvalidID, "invalid category ID format")
	}
	return cid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a user.
type XP int

// MinXP is the lower bound for experience points.
const MinXP XP = 0

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

// Level calculates the global level from XP.
// Formula: every 1000 XP = 1 level, starting at level 1.
func (x XP) Level() Level {
	if x < 0 {
		return 1
	}
	return Level(int(x)/1000 + 1)
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

// Level represents a user's global level, derived from XP.
type Level int

// MinGlobalLevel is the starting level; there is no upper cap.
const MinGlobalLevel Level = 1

// IsValid checks if the level is valid.
func (l Level) IsValid() bool {
	return l >= MinGlobalLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// RequiredXP returns the total XP required to reach this level.
func (l Level) RequiredXP() XP {
	if l <= MinGlobalLevel {
		return 0
	}
	return XP((int(l) - 1) * 1000)
}

// ═══════════════════════════════════════════════════════════════════════════
// Score Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Score represents a session or attempt score on the 0-100 scale.
type Score int

const (
	MinScore Score = 0
	MaxScore Score = 100
)

// IsValid checks if the score is within 0-100.
func (s Score) IsValid() bool {
	return s >= MinScore && s <= MaxScore
}

// Int returns the underlying int value.
func (s Score) Int() int {
	return int(s)
}

// Clamp forces the score into the 0-100 range.
func (s Score) Clamp() Score {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}

// IsPassing reports whether the score meets the category level-up threshold.
func (s Score) IsPassing() bool {
	return s >= 90
}

// NewScore creates a new Score with validation.
func NewScore(value int) (Score, error) {
	s := Score(value)
	if !s.IsValid() {
		return 0, ErrInvalidScore
	}
	return s, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Difficulty Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Difficulty represents a puzzle's declared difficulty (1-10).
type Difficulty int

const (
	MinDifficulty Difficulty = 1
	MaxDifficulty Difficulty = 10
)

// IsValid checks if the difficulty is within 1-10.
func (d Difficulty) IsValid() bool {
	return d >= MinDifficulty && d <= MaxDifficulty
}

// Int returns the underlying int value.
func (d Difficulty) Int() int {
	return int(d)
}

// String returns a coarse human-readable label.
func (d Difficulty) String() string {
	switch {
	case d <= 3:
		return fmt.Sprintf("easy(%d)", int(d))
	case d <= 6:
		return fmt.Sprintf("medium(%d)", int(d))
	case d <= 8:
		return fmt.Sprintf("hard(%d)", int(d))
	default:
		return fmt.Sprintf("extreme(%d)", int(d))
	}
}

// NewDifficulty creates a new Difficulty with validation.
func NewDifficulty(value int) (Difficulty, error) {
	d := Difficulty(value)
	if !d.IsValid() {
		return 0, ErrInvalidDifficulty
	}
	return d, nil
}
