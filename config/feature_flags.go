package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and A/B testing.
// Supports gradual rollout, user targeting, and time-based experiments.
//
// The engine ships gameplay rules as flags so a bad tuning change can be
// rolled back without a deploy: anti-cheat thresholds, unlock waves, and
// reminder cadence all flip here first.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time

	// A/B test variant (for experiments)
	Variants []string
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string // User UUID
	IsAdmin bool   // Is admin user
}

// Predefined feature flag names.
const (
	// === Anti-cheat Features ===
	FeatureAnticheatRateLimiter = "anticheat.rate_limiter" // Per-user attempt rate limiting
	FeatureAnticheatPatternScan = "anticheat.pattern_scan" // Background pattern scans
	FeatureAnticheatAttenuation = "anticheat.attenuation"  // Score attenuation on violations

	// === Progression Features ===
	FeatureProgressionUnlocks      = "progression.unlocks"      // Category unlock waves
	FeatureProgressionStreaks      = "progression.streaks"      // Daily streaks
	FeatureProgressionAchievements = "progression.achievements" // Achievement counting

	// === Session Features ===
	FeatureSessionPause = "session.pause" // Allow pausing mid-session
	FeatureSessionSkip  = "session.skip"  // Allow skipping puzzles

	// === Notification Features ===
	FeatureNotifyStreakReminder = "notify.streak_reminder" // Evening streak reminders
	FeatureNotifyLevelUp        = "notify.level_up"        // Level-up celebrations
	FeatureNotifyViolations     = "notify.violations"      // Violation warnings to users

	// === Experimental Features ===
	FeatureExperimentalAdaptiveDifficulty = "experimental.adaptive_difficulty" // Difficulty tuning per user
	FeatureExperimentalPuzzleSigning      = "experimental.puzzle_signing"      // Integrity signatures on served puzzles
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Anti-cheat features - enabled by default, these guard progression
	ff.features[FeatureAnticheatRateLimiter] = &Feature{
		Name:           FeatureAnticheatRateLimiter,
		Description:    "Rate-limit answer submissions per user",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAnticheatPatternScan] = &Feature{
		Name:           FeatureAnticheatPatternScan,
		Description:    "Scan attempt histories for cheating patterns",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAnticheatAttenuation] = &Feature{
		Name:           FeatureAnticheatAttenuation,
		Description:    "Attenuate points on flagged attempts",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Progression features
	ff.features[FeatureProgressionUnlocks] = &Feature{
		Name:           FeatureProgressionUnlocks,
		Description:    "Unlock advanced categories by progression",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureProgressionStreaks] = &Feature{
		Name:           FeatureProgressionStreaks,
		Description:    "Track daily play streaks",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureProgressionAchievements] = &Feature{
		Name:           FeatureProgressionAchievements,
		Description:    "Count achievements from milestones",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Session features
	ff.features[FeatureSessionPause] = &Feature{
		Name:           FeatureSessionPause,
		Description:    "Allow pausing an active session",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSessionSkip] = &Feature{
		Name:           FeatureSessionSkip,
		Description:    "Allow skipping the current puzzle",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Notification features
	ff.features[FeatureNotifyStreakReminder] = &Feature{
		Name:           FeatureNotifyStreakReminder,
		Description:    "Evening reminder before a streak lapses",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyLevelUp] = &Feature{
		Name:           FeatureNotifyLevelUp,
		Description:    "Notify on level-ups and unlocks",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyViolations] = &Feature{
		Name:           FeatureNotifyViolations,
		Description:    "Warn users when attempts are flagged",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Experimental features - disabled by default
	ff.features[FeatureExperimentalAdaptiveDifficulty] = &Feature{
		Name:           FeatureExperimentalAdaptiveDifficulty,
		Description:    "Tune puzzle difficulty per user",
		Enabled:        false,
		RolloutPercent: 0,
		Variants:       []string{"control", "gentle", "aggressive"},
	}

	ff.features[FeatureExperimentalPuzzleSigning] = &Feature{
		Name:           FeatureExperimentalPuzzleSigning,
		Description:    "Sign served puzzles for integrity checks",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_ANTICHEAT_PATTERN_SCAN=true
// Example: FEATURE_EXPERIMENTAL_PUZZLE_SIGNING=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "anticheat.pattern_scan" -> "FEATURE_ANTICHEAT_PATTERN_SCAN"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check user overrides first
	if ctx != nil && ctx.UserID != "" {
		if userOverrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := userOverrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return ff.isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a user is in the rollout percentage.
// Uses consistent hashing so users stay in their bucket.
func (ff *FeatureFlags) isInRollout(userID string, featureName string, percent int) bool {
	// Create a consistent hash for this user+feature combination
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// GetVariant returns the A/B test variant for a user.
// Returns empty string if no variants defined or feature disabled.
func (ff *FeatureFlags) GetVariant(featureName string, ctx *FeatureContext) string {
	ff.mu.RLock()
	feature, ok := ff.features[featureName]
	hasVariants := ok && len(feature.Variants) > 0
	ff.mu.RUnlock()

	if !hasVariants || !ff.IsEnabled(featureName, ctx) {
		return ""
	}

	// Use consistent hashing to assign variant
	h := fnv.New32a()
	h.Write([]byte(featureName + "_variant"))
	h.Write([]byte(ctx.UserID))
	hash := h.Sum32()

	variantIndex := int(hash % uint32(len(feature.Variants)))
	return feature.Variants[variantIndex]
}

// SetUserOverride sets a feature override for a specific user.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetUserOverride(userID string, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// AnticheatEnabled checks if any anti-cheat feature is enabled.
func (ff *FeatureFlags) AnticheatEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureAnticheatRateLimiter, ctx) ||
		ff.IsEnabled(FeatureAnticheatPatternScan, ctx) ||
		ff.IsEnabled(FeatureAnticheatAttenuation, ctx)
}

// NotificationsEnabled checks if any notifications are enabled.
func (ff *FeatureFlags) NotificationsEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureNotifyStreakReminder, ctx) ||
		ff.IsEnabled(FeatureNotifyLevelUp, ctx) ||
		ff.IsEnabled(FeatureNotifyViolations, ctx)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
