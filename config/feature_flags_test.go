package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const flagUserID = "8a4b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d"

func TestLoadFeatureFlags_Defaults(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: flagUserID}

	assert.True(t, ff.IsEnabled(FeatureAnticheatRateLimiter, ctx))
	assert.True(t, ff.IsEnabled(FeatureProgressionUnlocks, ctx))
	assert.True(t, ff.IsEnabled(FeatureSessionPause, ctx))
	assert.True(t, ff.IsEnabled(FeatureNotifyStreakReminder, ctx))

	// Experimental features stay off until deliberately rolled out.
	assert.False(t, ff.IsEnabled(FeatureExperimentalAdaptiveDifficulty, ctx))
	assert.False(t, ff.IsEnabled(FeatureExperimentalPuzzleSigning, ctx))
}

func TestIsEnabled_UnknownFeature(t *testing.T) {
	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled("no.such.feature", nil))
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("FEATURE_ANTICHEAT_RATE_LIMITER", "false")
	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureAnticheatRateLimiter, &FeatureContext{UserID: flagUserID}))
}

func TestEnvironmentRolloutPercent(t *testing.T) {
	t.Setenv("FEATURE_EXPERIMENTAL_PUZZLE_SIGNING", "100")
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureExperimentalPuzzleSigning, &FeatureContext{UserID: flagUserID}))
}

func TestRolloutBucketing_IsDeterministic(t *testing.T) {
	ff := LoadFeatureFlags()
	assert.NoError(t, ff.SetRolloutPercent(FeatureExperimentalAdaptiveDifficulty, 50))

	ctx := &FeatureContext{UserID: flagUserID}
	first := ff.IsEnabled(FeatureExperimentalAdaptiveDifficulty, ctx)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureExperimentalAdaptiveDifficulty, ctx))
	}
}

func TestSetRolloutPercent_Validation(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.Error(t, ff.SetRolloutPercent(FeatureSessionSkip, 101))
	assert.Error(t, ff.SetRolloutPercent(FeatureSessionSkip, -1))
	assert.Error(t, ff.SetRolloutPercent("no.such.feature", 50))
	assert.NoError(t, ff.SetRolloutPercent(FeatureSessionSkip, 25))
}

func TestUserOverride(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: flagUserID}

	assert.False(t, ff.IsEnabled(FeatureExperimentalPuzzleSigning, ctx))

	ff.SetUserOverride(flagUserID, FeatureExperimentalPuzzleSigning, true)
	assert.True(t, ff.IsEnabled(FeatureExperimentalPuzzleSigning, ctx))

	// Overrides are per user.
	other := &FeatureContext{UserID: "1b2c3d4e-5f60-4a7b-8c9d-0e1f2a3b4c5d"}
	assert.False(t, ff.IsEnabled(FeatureExperimentalPuzzleSigning, other))

	ff.ClearUserOverrides(flagUserID)
	assert.False(t, ff.IsEnabled(FeatureExperimentalPuzzleSigning, ctx))
}

func TestGetVariant(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: flagUserID}

	// Disabled feature yields no variant.
	assert.Equal(t, "", ff.GetVariant(FeatureExperimentalAdaptiveDifficulty, ctx))

	assert.NoError(t, ff.EnableFeature(FeatureExperimentalAdaptiveDifficulty))
	assert.NoError(t, ff.SetRolloutPercent(FeatureExperimentalAdaptiveDifficulty, 100))

	variant := ff.GetVariant(FeatureExperimentalAdaptiveDifficulty, ctx)
	assert.NotEmpty(t, variant)

	// Variant assignment is sticky per user.
	assert.Equal(t, variant, ff.GetVariant(FeatureExperimentalAdaptiveDifficulty, ctx))

	// Features without variants yield none.
	assert.Equal(t, "", ff.GetVariant(FeatureSessionPause, ctx))
}

func TestGetAllFeatures_ReturnsCopies(t *testing.T) {
	ff := LoadFeatureFlags()

	all := ff.GetAllFeatures()
	assert.NotEmpty(t, all)

	all[FeatureSessionPause].Enabled = false
	assert.True(t, ff.IsEnabled(FeatureSessionPause, &FeatureContext{UserID: flagUserID}))
}
