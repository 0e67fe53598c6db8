package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"

	"github.com/dpshade/prompt-vault/internal/models"
)

// foldFunction lower-cases text with Unicode rules. SQLite's own lower()
// only folds ASCII.
const foldFunction = "vault_fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunction, 1, fold)
}

func fold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return "", nil
	}
}

// clause is one condition of a WHERE expression
type clause interface {
	SQL() string
	Args() []any
}

// favoriteClause restricts to favorites
type favoriteClause struct{}

func (favoriteClause) SQL() string  { return "favorite = 1" }
func (favoriteClause) Args() []any { return nil }

// categoryClause restricts to one category, compared exactly
type categoryClause struct {
	category string
}

func (c categoryClause) SQL() string  { return "category = ?" }
func (c categoryClause) Args() []any { return []any{c.category} }

// searchFields are matched by a free-text search
var searchFields = []string{"title", "tags", "positive", "negative", "category"}

// searchClause matches a lower-cased literal substring in any search field.
// instr has no wildcards, so the needle needs no escaping.
type searchClause struct {
	needle string
}

func (c searchClause) SQL() string {
	parts := make([]string, len(searchFields))
	for i, field := range searchFields {
		parts[i] = "instr(" + foldFunction + "(" + field + "), ?) > 0"
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (c searchClause) Args() []any {
	args := make([]any, len(searchFields))
	for i := range args {
		args[i] = c.needle
	}
	return args
}

// buildWhere returns the WHERE expression and arguments for filter and search
func buildWhere(filter models.Filter, search string) (string, []any) {
	var clauses []clause
	switch filter.Kind {
	case models.FilterFavorites:
		clauses = append(clauses, favoriteClause{})
	case models.FilterCategory:
		clauses = append(clauses, categoryClause{category: filter.Category})
	}
	if needle := models.NormalizeSearch(search); needle != "" {
		clauses = append(clauses, searchClause{needle: needle})
	}

	if len(clauses) == 0 {
		return "1=1", nil
	}

	var parts []string
	var args []any
	for _, c := range clauses {
		parts = append(parts, c.SQL())
		args = append(args, c.Args()...)
	}
	return strings.Join(parts, " AND "), args
}

// QueryPrompts returns the summaries matching filter and search, most
// recently used first. No match yields an empty slice.
func (s *Storage) QueryPrompts(ctx context.Context, filter models.Filter, search string) ([]models.Summary, error) {
	where, args := buildWhere(filter, search)
	query := "SELECT title, category, favorite FROM prompts WHERE " + where +
		" ORDER BY last_used DESC, id DESC"

	summaries := []models.Summary{}
	err := s.withDB(ctx, "query prompts", func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var title, category sql.NullString
			var favorite sql.NullInt64
			if err := rows.Scan(&title, &category, &favorite); err != nil {
				return err
			}
			summaries = append(summaries, models.Summary{
				Name:     title.String,
				Category: category.String,
				Favorite: favorite.Int64 != 0,
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// RandomPick chooses uniformly among the titles matching filter and search.
// found is false when nothing matches.
func (s *Storage) RandomPick(ctx context.Context, filter models.Filter, search string) (title string, found bool, err error) {
	where, args := buildWhere(filter, search)

	var titles []string
	err = s.withDB(ctx, "random pick", func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT title FROM prompts WHERE "+where, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t sql.NullString
			if err := rows.Scan(&t); err != nil {
				return err
			}
			titles = append(titles, t.String)
		}
		return rows.Err()
	})
	if err != nil || len(titles) == 0 {
		return "", false, err
	}

	s.rngMu.Lock()
	i := s.rng.IntN(len(titles))
	s.rngMu.Unlock()
	return titles[i], true, nil
}
