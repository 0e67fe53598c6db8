package models

import (
	"strings"
	"time"
)

// TimeLayout is the text layout used for last_used in the prompts table.
// Existing vault files store local time in this form.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultCategories are always offered, whether or not a stored prompt uses them
var DefaultCategories = []string{"Juggernaut", "Pony", "IPA Subgraph", "Upscale", "Video Gen"}

// Prompt represents a stored prompt record
type Prompt struct {
	Name     string    `yaml:"title" json:"title"`
	Category string    `yaml:"category" json:"category"`
	Tags     string    `yaml:"tags,omitempty" json:"tags,omitempty"`
	Positive string    `yaml:"positive" json:"positive"`
	Negative string    `yaml:"negative,omitempty" json:"negative,omitempty"`
	LastUsed time.Time `yaml:"last_used" json:"last_used"`
	Favorite bool      `yaml:"favorite,omitempty" json:"favorite,omitempty"`
}

// Summary is the list-row projection of a prompt
type Summary struct {
	Name     string `json:"title"`
	Category string `json:"category"`
	Favorite bool   `json:"favorite"`
}

// Summary returns the list-row projection of p
func (p *Prompt) Summary() Summary {
	return Summary{Name: p.Name, Category: p.Category, Favorite: p.Favorite}
}

// Implement list.Item interface for bubbles list component

// FilterValue returns the value used for filtering in lists
func (s Summary) FilterValue() string {
	return cleanString(s.Name)
}

// Title satisfies the list.Item interface
func (s Summary) Title() string {
	if s.Favorite {
		return "★ " + cleanString(s.Name)
	}
	return cleanString(s.Name)
}

// Description satisfies the list.Item interface
func (s Summary) Description() string {
	return cleanString(s.Category)
}

// Draft holds form contents before they are formatted and persisted.
// It is transient; the repository owns the authoritative record.
type Draft struct {
	Title    string
	Category string
	Tags     string
	Positive string
	Negative string
}

// Normalize trims every field and lower-cases the tags
func (d Draft) Normalize() Draft {
	return Draft{
		Title:    strings.TrimSpace(d.Title),
		Category: strings.TrimSpace(d.Category),
		Tags:     strings.ToLower(strings.TrimSpace(d.Tags)),
		Positive: strings.TrimSpace(d.Positive),
		Negative: strings.TrimSpace(d.Negative),
	}
}

// DraftFrom copies a stored prompt into an editable draft
func DraftFrom(p *Prompt) Draft {
	return Draft{
		Title:    p.Name,
		Category: p.Category,
		Tags:     p.Tags,
		Positive: p.Positive,
		Negative: p.Negative,
	}
}

// cleanString removes problematic characters that might cause rendering issues
func cleanString(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
		} else if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
