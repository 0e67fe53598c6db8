package models

import "strings"

// FilterKind selects which restriction a Filter applies
type FilterKind int

const (
	FilterAll FilterKind = iota
	FilterFavorites
	FilterCategory
)

// Filter names used by the presentation layer
const (
	FilterNameAll       = "All"
	FilterNameFavorites = "Favorites"
)

// Filter restricts a query to all prompts, favorites, or one category.
// Category matching is exact and case-sensitive.
type Filter struct {
	Kind     FilterKind
	Category string
}

// AllFilter matches every prompt
func AllFilter() Filter { return Filter{Kind: FilterAll} }

// FavoritesFilter matches prompts marked as favorite
func FavoritesFilter() Filter { return Filter{Kind: FilterFavorites} }

// CategoryFilter matches prompts whose category equals category exactly
func CategoryFilter(category string) Filter {
	return Filter{Kind: FilterCategory, Category: category}
}

// ParseFilter maps a filter menu value to a Filter. "All" and "Favorites" are
// reserved; an empty value means All; anything else is a category.
func ParseFilter(value string) Filter {
	switch value {
	case "", FilterNameAll:
		return AllFilter()
	case FilterNameFavorites:
		return FavoritesFilter()
	default:
		return CategoryFilter(value)
	}
}

// String returns the filter menu value
func (f Filter) String() string {
	switch f.Kind {
	case FilterFavorites:
		return FilterNameFavorites
	case FilterCategory:
		return f.Category
	default:
		return FilterNameAll
	}
}

// FilterOptions returns the filter menu: All, Favorites, then the categories
func FilterOptions(categories []string) []string {
	options := make([]string, 0, len(categories)+2)
	options = append(options, FilterNameAll, FilterNameFavorites)
	return append(options, categories...)
}

// NormalizeSearch trims and lower-cases a free-text search
func NormalizeSearch(search string) string {
	return strings.ToLower(strings.TrimSpace(search))
}

// Listing is a rendered result set. Rows are addressed by position and
// resolved to titles through TitleAt, never by parsing display text.
type Listing struct {
	Filter Filter
	Search string
	Items  []Summary
}

// Len returns the number of rows
func (l *Listing) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// TitleAt returns the title shown at row i
func (l *Listing) TitleAt(i int) (string, bool) {
	if l == nil || i < 0 || i >= len(l.Items) {
		return "", false
	}
	return l.Items[i].Name, true
}

// IndexOf returns the row of title, or -1
func (l *Listing) IndexOf(title string) int {
	if l == nil {
		return -1
	}
	for i, item := range l.Items {
		if item.Name == title {
			return i
		}
	}
	return -1
}
