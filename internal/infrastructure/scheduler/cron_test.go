package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCronExpression_DailySchedule(t *testing.T) {
	ce, err := ParseCronExpression("0 20 * * *")
	assert.NoError(t, err)
	assert.Equal(t, "0 20 * * *", ce.String())

	morning := time.Date(2024, 3, 10, 9, 15, 0, 0, time.UTC)
	next := ce.Next(morning)
	assert.Equal(t, time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC), next)

	// Past today's firing time it rolls over to tomorrow.
	evening := time.Date(2024, 3, 10, 21, 0, 0, 0, time.UTC)
	next = ce.Next(evening)
	assert.Equal(t, time.Date(2024, 3, 11, 20, 0, 0, 0, time.UTC), next)
}

func TestParseCronExpression_NextSkipsCurrentMinute(t *testing.T) {
	ce, err := ParseCronExpression("30 12 * * *")
	assert.NoError(t, err)

	exactly := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)
	next := ce.Next(exactly)
	assert.Equal(t, time.Date(2024, 3, 11, 12, 30, 0, 0, time.UTC), next)
}

func TestParseCronExpression_StepValues(t *testing.T) {
	ce, err := ParseCronExpression("*/15 * * * *")
	assert.NoError(t, err)

	start := time.Date(2024, 3, 10, 10, 7, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 10, 10, 15, 0, 0, time.UTC), ce.Next(start))
}

func TestParseCronExpression_Lists(t *testing.T) {
	ce, err := ParseCronExpression("0 9,18 * * *")
	assert.NoError(t, err)

	noon := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC), ce.Next(noon))
}

func TestParseCronExpression_Weekdays(t *testing.T) {
	// Mondays at 08:00. March 10th 2024 is a Sunday.
	ce, err := ParseCronExpression("0 8 * * 1")
	assert.NoError(t, err)

	sunday := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC), ce.Next(sunday))
}

func TestParseCronExpression_Invalid(t *testing.T) {
	_, err := ParseCronExpression("0 20 * *")
	assert.Error(t, err)

	_, err = ParseCronExpression("61 20 * * *")
	assert.Error(t, err)

	_, err = ParseCronExpression("x 20 * * *")
	assert.Error(t, err)

	_, err = ParseCronExpression("*/0 * * * *")
	assert.Error(t, err)
}

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(5 * time.Minute)

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(5*time.Minute), s.Next(now))
	assert.Equal(t, "@every 5m0s", s.String())
}
