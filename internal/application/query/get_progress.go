// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/cogniquest/cogniquest-engine/internal/domain/progress"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ProgressReader is the query-side view of durable progress state.
type ProgressReader interface {
	// Snapshot returns the user's progress; new users get defaults.
	Snapshot(ctx context.Context, userID shared.UserID) (progress.Snapshot, error)
}

// GetProgressQuery requests a user's full progress state.
type GetProgressQuery struct {
	UserID string
}

// CategoryView is one category's progress as presented to the UI.
type CategoryView struct {
	CategoryID       string `json:"category_id"`
	Level            int    `json:"level"`
	Progress         int    `json:"progress"`
	PuzzlesCompleted int    `json:"puzzles_completed"`
	IsLocked         bool   `json:"is_locked"`
	BestScore        int    `json:"best_score"`
	TotalTimeSec     int    `json:"total_time_sec"`
	LastPlayed       string `json:"last_played,omitempty"`
}

// GetProgressResult is the full progress view for one user.
type GetProgressResult struct {
	UserID         string         `json:"user_id"`
	TotalXP        int            `json:"total_xp"`
	Level          int            `json:"level"`
	Streak         int            `json:"streak"`
	PuzzlesSolved  int            `json:"puzzles_solved"`
	AverageScore   int            `json:"average_score"`
	TimeSpentSec   int            `json:"time_spent_sec"`
	Achievements   int            `json:"achievements"`
	WeeklyProgress int            `json:"weekly_progress"`
	LastPlayDate   string         `json:"last_play_date,omitempty"`
	Categories     []CategoryView `json:"categories"`
}

// GetProgressHandler handles the GetProgressQuery.
type GetProgressHandler struct {
	reader ProgressReader
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(reader ProgressReader) *GetProgressHandler {
	return &GetProgressHandler{reader: reader}
}

// Handle executes the query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*GetProgressResult, error) {
	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_progress: %w", err)
	}

	snap, err := h.reader.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_progress: %w", err)
	}

	result := &GetProgressResult{UserID: userID.String()}
	if snap.Stats != nil {
		result.TotalXP = snap.Stats.TotalXP.Int()
		result.Level = snap.Stats.Level.Int()
		result.Streak = snap.Stats.Streak
		result.PuzzlesSolved = snap.Stats.PuzzlesSolved
		result.AverageScore = snap.Stats.AverageScore
		result.TimeSpentSec = snap.Stats.TimeSpent
		result.Achievements = snap.Stats.Achievements
		result.WeeklyProgress = snap.Stats.WeeklyProgress
		result.LastPlayDate = snap.Stats.LastPlayDate
	}

	// Stable order: the canonical category list, not map iteration.
	for _, id := range progress.AllCategories() {
		cp, ok := snap.Categories[id]
		if !ok {
			cp = progress.NewCategoryProgress(id)
		}
		result.Categories = append(result.Categories, CategoryView{
			CategoryID:       id.String(),
			Level:            cp.Level,
			Progress:         cp.Progress,
			PuzzlesCompleted: cp.PuzzlesCompleted,
			IsLocked:         cp.IsLocked,
			BestScore:        cp.BestScore,
			TotalTimeSec:     cp.TotalTime,
			LastPlayed:       cp.LastPlayed,
		})
	}

	return result, nil
}
