package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cogniquest/cogniquest-engine/internal/domain/progress"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
// A snapshot spans two tables (user_stats and category_progress); Save
// writes both inside one transaction so readers never see a torn state.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// Load loads the user's progress snapshot.
// Returns shared.ErrStateNotFound when the user has no stored state.
func (r *ProgressRepository) Load(ctx context.Context, userID shared.UserID) (progress.Snapshot, error) {
	snap := progress.Snapshot{
		Stats:      progress.NewUserStats(),
		Categories: make(map[shared.CategoryID]*progress.CategoryProgress),
	}

	statsQuery := `
		SELECT total_xp, level, streak, puzzles_solved, average_score,
		       time_spent_sec, achievements, weekly_progress, last_play_date
		FROM user_stats
		WHERE user_id = $1
	`

	var totalXP, level int
	row := r.conn.QueryRow(ctx, statsQuery, userID.String())
	err := row.Scan(
		&totalXP,
		&level,
		&snap.Stats.Streak,
		&snap.Stats.PuzzlesSolved,
		&snap.Stats.AverageScore,
		&snap.Stats.TimeSpent,
		&snap.Stats.Achievements,
		&snap.Stats.WeeklyProgress,
		&snap.Stats.LastPlayDate,
	)
	if err != nil {
		if IsNoRows(err) {
			return progress.Snapshot{}, shared.ErrStateNotFound
		}
		return progress.Snapshot{}, fmt.Errorf("failed to load user stats: %w", err)
	}
	snap.Stats.TotalXP = shared.XP(totalXP)
	snap.Stats.Level = shared.Level(level)

	catQuery := `
		SELECT category_id, level, progress, puzzles_completed, is_locked,
		       best_score, total_time_sec, last_played
		FROM category_progress
		WHERE user_id = $1
	`

	rows, err := r.conn.Query(ctx, catQuery, userID.String())
	if err != nil {
		return progress.Snapshot{}, fmt.Errorf("failed to load category progress: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var categoryID string
		cp := &progress.CategoryProgress{}
		err := rows.Scan(
			&categoryID,
			&cp.Level,
			&cp.Progress,
			&cp.PuzzlesCompleted,
			&cp.IsLocked,
			&cp.BestScore,
			&cp.TotalTime,
			&cp.LastPlayed,
		)
		if err != nil {
			return progress.Snapshot{}, fmt.Errorf("failed to scan category progress: %w", err)
		}
		snap.Categories[shared.CategoryID(categoryID)] = cp
	}
	if err := rows.Err(); err != nil {
		return progress.Snapshot{}, fmt.Errorf("failed to read category progress: %w", err)
	}

	return snap, nil
}

// Save upserts the user's progress snapshot.
func (r *ProgressRepository) Save(ctx context.Context, userID shared.UserID, snap progress.Snapshot) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if snap.Stats != nil {
			if err := r.saveStats(ctx, tx, userID, snap.Stats); err != nil {
				return err
			}
		}
		for categoryID, cp := range snap.Categories {
			if err := r.saveCategory(ctx, tx, userID, categoryID, cp); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ProgressRepository) saveStats(ctx context.Context, tx pgx.Tx, userID shared.UserID, stats *progress.UserStats) error {
	query := `
		INSERT INTO user_stats (
			user_id, total_xp, level, streak, puzzles_solved, average_score,
			time_spent_sec, achievements, weekly_progress, last_play_date, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			total_xp        = EXCLUDED.total_xp,
			level           = EXCLUDED.level,
			streak          = EXCLUDED.streak,
			puzzles_solved  = EXCLUDED.puzzles_solved,
			average_score   = EXCLUDED.average_score,
			time_spent_sec  = EXCLUDED.time_spent_sec,
			achievements    = EXCLUDED.achievements,
			weekly_progress = EXCLUDED.weekly_progress,
			last_play_date  = EXCLUDED.last_play_date,
			updated_at      = NOW()
	`

	_, err := tx.Exec(ctx, query,
		userID.String(),
		stats.TotalXP.Int(),
		stats.Level.Int(),
		stats.Streak,
		stats.PuzzlesSolved,
		stats.AverageScore,
		stats.TimeSpent,
		stats.Achievements,
		stats.WeeklyProgress,
		stats.LastPlayDate,
	)
	if err != nil {
		return fmt.Errorf("failed to save user stats: %w", err)
	}
	return nil
}

func (r *ProgressRepository) saveCategory(ctx context.Context, tx pgx.Tx, userID shared.UserID, categoryID shared.CategoryID, cp *progress.CategoryProgress) error {
	query := `
		INSERT INTO category_progress (
			user_id, category_id, level, progress, puzzles_completed,
			is_locked, best_score, total_time_sec, last_played, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (user_id, category_id) DO UPDATE SET
			level             = EXCLUDED.level,
			progress          = EXCLUDED.progress,
			puzzles_completed = EXCLUDED.puzzles_completed,
			is_locked         = EXCLUDED.is_locked,
			best_score        = EXCLUDED.best_score,
			total_time_sec    = EXCLUDED.total_time_sec,
			last_played       = EXCLUDED.last_played,
			updated_at        = NOW()
	`

	_, err := tx.Exec(ctx, query,
		userID.String(),
		categoryID.String(),
		cp.Level,
		cp.Progress,
		cp.PuzzlesCompleted,
		cp.IsLocked,
		cp.BestScore,
		cp.TotalTime,
		cp.LastPlayed,
	)
	if err != nil {
		return fmt.Errorf("failed to save category progress for %s: %w", categoryID, err)
	}
	return nil
}

// StreakRow is one user's streak standing.
type StreakRow struct {
	UserID       shared.UserID
	Streak       int
	LastPlayDate string
}

// ActiveStreaks lists users with a non-zero streak, for the evening
// reminder job.
func (r *ProgressRepository) ActiveStreaks(ctx context.Context) ([]StreakRow, error) {
	query := `
		SELECT user_id, streak, last_play_date
		FROM user_stats
		WHERE streak > 0
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active streaks: %w", err)
	}
	defer rows.Close()

	var result []StreakRow
	for rows.Next() {
		var (
			rawID string
			row   StreakRow
		)
		if err := rows.Scan(&rawID, &row.Streak, &row.LastPlayDate); err != nil {
			return nil, fmt.Errorf("failed to scan streak row: %w", err)
		}
		userID, err := shared.NewUserID(rawID)
		if err != nil {
			// Skip malformed rows rather than failing the whole scan.
			continue
		}
		row.UserID = userID
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read streak rows: %w", err)
	}

	return result, nil
}

// Delete removes all stored progress for a user. Used by progress reset.
func (r *ProgressRepository) Delete(ctx context.Context, userID shared.UserID) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM category_progress WHERE user_id = $1`, userID.String()); err != nil {
			return fmt.Errorf("failed to delete category progress: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_stats WHERE user_id = $1`, userID.String()); err != nil {
			return fmt.Errorf("failed to delete user stats: %w", err)
		}
		return nil
	})
}
