package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sort"
	"time"

	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/models"
	"github.com/dpshade/prompt-vault/internal/validation"
)

// FavoritePolicy decides what happens to the favorite flag when a save
// replaces an existing title
type FavoritePolicy int

const (
	// ResetFavorite replaces the whole row, so favorite returns to 0
	ResetFavorite FavoritePolicy = iota
	// KeepFavorite updates the row in place and keeps favorite
	KeepFavorite
)

const promptColumns = "title, category, tags, positive, negative, last_used, favorite"

// SavePrompt inserts p or replaces the row with the same title, stamping
// last_used with now. p must already be formatted.
func (s *Storage) SavePrompt(ctx context.Context, p models.Prompt, now time.Time, policy FavoritePolicy) error {
	if err := validation.ValidatePrompt(&p); err != nil {
		return err
	}

	query := `INSERT OR REPLACE INTO prompts (title, category, tags, positive, negative, last_used)
		VALUES (?, ?, ?, ?, ?, ?)`
	if policy == KeepFavorite {
		query = `INSERT INTO prompts (title, category, tags, positive, negative, last_used)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(title) DO UPDATE SET
			category = excluded.category,
			tags = excluded.tags,
			positive = excluded.positive,
			negative = excluded.negative,
			last_used = excluded.last_used`
	}

	return s.withDB(ctx, "save prompt", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, query,
			p.Name, p.Category, p.Tags, p.Positive, p.Negative, formatTime(now))
		return err
	})
}

// PutPrompt writes p exactly as given, including last_used and favorite.
// Import and merge use it to carry records between vaults.
func (s *Storage) PutPrompt(ctx context.Context, p models.Prompt) error {
	if err := validation.ValidatePrompt(&p); err != nil {
		return err
	}
	return s.withDB(ctx, "put prompt", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			"INSERT OR REPLACE INTO prompts ("+promptColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
			p.Name, p.Category, p.Tags, p.Positive, p.Negative, formatTime(p.LastUsed), boolToInt(p.Favorite))
		return err
	})
}

// GetPrompt returns the prompt with title, or a NotFound error
func (s *Storage) GetPrompt(ctx context.Context, title string) (*models.Prompt, error) {
	var prompt *models.Prompt
	err := s.withDB(ctx, "get prompt", func(db *sql.DB) error {
		row := db.QueryRowContext(ctx,
			"SELECT "+promptColumns+" FROM prompts WHERE title = ?", title)
		p, err := scanPrompt(row)
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NotFoundError("Prompt").WithContext("title", title)
		}
		if err != nil {
			return err
		}
		prompt = p
		return nil
	})
	return prompt, err
}

// DeletePrompt removes the prompt with title. It reports whether a row was
// removed; a missing title is not an error.
func (s *Storage) DeletePrompt(ctx context.Context, title string) (bool, error) {
	var deleted bool
	err := s.withDB(ctx, "delete prompt", func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, "DELETE FROM prompts WHERE title = ?", title)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// ToggleFavorite flips the favorite flag and returns the new state
func (s *Storage) ToggleFavorite(ctx context.Context, title string) (bool, error) {
	var state bool
	err := s.withTx(ctx, "toggle favorite", func(tx *sql.Tx) error {
		var fav sql.NullInt64
		err := tx.QueryRowContext(ctx, "SELECT favorite FROM prompts WHERE title = ?", title).Scan(&fav)
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NotFoundError("Prompt").WithContext("title", title)
		}
		if err != nil {
			return err
		}

		state = fav.Int64 == 0
		_, err = tx.ExecContext(ctx, "UPDATE prompts SET favorite = ? WHERE title = ?", boolToInt(state), title)
		return err
	})
	return state, err
}

// TouchLastUsed stamps last_used on title. It reports whether the title exists.
func (s *Storage) TouchLastUsed(ctx context.Context, title string, now time.Time) (bool, error) {
	var touched bool
	err := s.withDB(ctx, "update last used", func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, "UPDATE prompts SET last_used = ? WHERE title = ?", formatTime(now), title)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		touched = n > 0
		return err
	})
	return touched, err
}

// ListCategories returns the stored categories merged with the defaults,
// sorted ascending
func (s *Storage) ListCategories(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, c := range models.DefaultCategories {
		seen[c] = true
	}

	err := s.withDB(ctx, "list categories", func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT DISTINCT category FROM prompts")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c sql.NullString
			if err := rows.Scan(&c); err != nil {
				return err
			}
			if c.String != "" {
				seen[c.String] = true
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories, nil
}

// Counts returns the total number of prompts and how many are favorites
func (s *Storage) Counts(ctx context.Context) (total, favorites int, err error) {
	err = s.withDB(ctx, "count prompts", func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			"SELECT COUNT(*), COALESCE(SUM(CASE WHEN favorite = 1 THEN 1 ELSE 0 END), 0) FROM prompts").
			Scan(&total, &favorites)
	})
	return total, favorites, err
}

// ListPrompts returns every full record, most recently used first
func (s *Storage) ListPrompts(ctx context.Context) ([]*models.Prompt, error) {
	var prompts []*models.Prompt
	err := s.withDB(ctx, "list prompts", func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			"SELECT "+promptColumns+" FROM prompts ORDER BY last_used DESC, id DESC")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPrompt(rows)
			if err != nil {
				return err
			}
			prompts = append(prompts, p)
		}
		return rows.Err()
	})
	return prompts, err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanPrompt reads one row of promptColumns. Older vaults may hold NULLs.
func scanPrompt(row scanner) (*models.Prompt, error) {
	var title, category, tags, positive, negative, lastUsed sql.NullString
	var favorite sql.NullInt64
	if err := row.Scan(&title, &category, &tags, &positive, &negative, &lastUsed, &favorite); err != nil {
		return nil, err
	}
	return &models.Prompt{
		Name:     title.String,
		Category: category.String,
		Tags:     tags.String,
		Positive: positive.String,
		Negative: negative.String,
		LastUsed: parseTime(lastUsed.String),
		Favorite: favorite.Int64 != 0,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
