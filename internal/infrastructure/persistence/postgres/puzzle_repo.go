package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cogniquest/cogniquest-engine/internal/domain/puzzle"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUZZLE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PuzzleRepository implements puzzle.Repository for PostgreSQL.
// Content and Solution live in JSONB columns; the solution column holds
// the tagged envelope produced by puzzle.MarshalSolution.
type PuzzleRepository struct {
	conn *Connection
}

// NewPuzzleRepository creates a new PuzzleRepository.
func NewPuzzleRepository(conn *Connection) *PuzzleRepository {
	return &PuzzleRepository{conn: conn}
}

const puzzleColumns = `id, category_id, kind, title, level, difficulty,
	time_limit_sec, content, solution, explanation`

// GetByCategory returns the puzzle pool for a category at the given level.
func (r *PuzzleRepository) GetByCategory(ctx context.Context, categoryID shared.CategoryID, level int) ([]*puzzle.Puzzle, error) {
	query := `
		SELECT ` + puzzleColumns + `
		FROM puzzles
		WHERE category_id = $1 AND level = $2
		ORDER BY id
	`

	rows, err := r.conn.Query(ctx, query, categoryID.String(), level)
	if err != nil {
		return nil, fmt.Errorf("failed to query puzzles: %w", err)
	}
	defer rows.Close()

	var puzzles []*puzzle.Puzzle
	for rows.Next() {
		p, err := scanPuzzle(rows)
		if err != nil {
			return nil, err
		}
		puzzles = append(puzzles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read puzzles: %w", err)
	}

	return puzzles, nil
}

// GetByID returns a single puzzle by its identifier.
// Returns shared.ErrPuzzleNotFound when no such puzzle exists.
func (r *PuzzleRepository) GetByID(ctx context.Context, id string) (*puzzle.Puzzle, error) {
	query := `
		SELECT ` + puzzleColumns + `
		FROM puzzles
		WHERE id = $1
	`

	p, err := scanPuzzle(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPuzzleNotFound
		}
		return nil, err
	}
	return p, nil
}

// Upsert stores a puzzle, replacing any existing row with the same id.
// Used by pool seeding at startup.
func (r *PuzzleRepository) Upsert(ctx context.Context, p *puzzle.Puzzle) error {
	if err := p.Validate(); err != nil {
		return err
	}

	contentJSON, err := json.Marshal(p.Content)
	if err != nil {
		return fmt.Errorf("failed to encode puzzle content: %w", err)
	}
	solutionJSON, err := puzzle.MarshalSolution(p.Solution)
	if err != nil {
		return fmt.Errorf("failed to encode puzzle solution: %w", err)
	}

	query := `
		INSERT INTO puzzles (
			id, category_id, kind, title, level, difficulty,
			time_limit_sec, content, solution, explanation
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			category_id    = EXCLUDED.category_id,
			kind           = EXCLUDED.kind,
			title          = EXCLUDED.title,
			level          = EXCLUDED.level,
			difficulty     = EXCLUDED.difficulty,
			time_limit_sec = EXCLUDED.time_limit_sec,
			content        = EXCLUDED.content,
			solution       = EXCLUDED.solution,
			explanation    = EXCLUDED.explanation
	`

	_, err = r.conn.Exec(ctx, query,
		p.ID,
		p.CategoryID.String(),
		string(p.Kind),
		p.Title,
		p.Level,
		p.Difficulty.Int(),
		p.TimeLimit,
		contentJSON,
		solutionJSON,
		p.Explanation,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert puzzle %s: %w", p.ID, err)
	}
	return nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for scanPuzzle.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPuzzle(row rowScanner) (*puzzle.Puzzle, error) {
	var (
		p            puzzle.Puzzle
		categoryID   string
		kind         string
		difficulty   int
		contentJSON  []byte
		solutionJSON []byte
	)

	err := row.Scan(
		&p.ID,
		&categoryID,
		&kind,
		&p.Title,
		&p.Level,
		&difficulty,
		&p.TimeLimit,
		&contentJSON,
		&solutionJSON,
		&p.Explanation,
	)
	if err != nil {
		return nil, err
	}

	p.CategoryID = shared.CategoryID(categoryID)
	p.Kind = puzzle.Kind(kind)
	p.Difficulty = shared.Difficulty(difficulty)

	if len(contentJSON) > 0 {
		if err := json.Unmarshal(contentJSON, &p.Content); err != nil {
			return nil, fmt.Errorf("failed to decode content for puzzle %s: %w", p.ID, err)
		}
	}

	solution, err := puzzle.UnmarshalSolution(solutionJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode solution for puzzle %s: %w", p.ID, err)
	}
	p.Solution = solution

	return &p, nil
}
