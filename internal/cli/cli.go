package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/dpshade/prompt-vault/internal/models"
	"github.com/dpshade/prompt-vault/internal/renderer"
)

// Output formats accepted by --format
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatTitles   = "titles"
	FormatTable    = "table"
	FormatMarkdown = "markdown"
)

// CLI formats prompts and listings for headless output
type CLI struct {
	out io.Writer
}

// NewCLI creates a new CLI instance writing to out
func NewCLI(out io.Writer) *CLI {
	return &CLI{out: out}
}

// formatListing writes listing rows in format
func (c *CLI) formatListing(listing *models.Listing, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(listing.Items)
	case FormatTitles:
		for _, item := range listing.Items {
			fmt.Fprintln(c.out, item.Name)
		}
	case FormatTable:
		fmt.Fprintf(c.out, "%-3s %-40s %s\n", "", "Title", "Category")
		fmt.Fprintln(c.out, strings.Repeat("-", 70))
		for _, item := range listing.Items {
			star := ""
			if item.Favorite {
				star = "★"
			}
			title := item.Name
			if len([]rune(title)) > 40 {
				title = string([]rune(title)[:37]) + "..."
			}
			fmt.Fprintf(c.out, "%-3s %-40s %s\n", star, title, item.Category)
		}
	default:
		for _, item := range listing.Items {
			star := ""
			if item.Favorite {
				star = "★ "
			}
			fmt.Fprintf(c.out, "[%s] %s%s\n", item.Category, star, item.Name)
		}
	}
	return nil
}

// formatSinglePrompt writes one prompt, formatted with modes, in format
func (c *CLI) formatSinglePrompt(p *models.Prompt, modes renderer.Modes, format string) error {
	switch format {
	case FormatJSON:
		out, err := renderer.RenderJSON(p, modes)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, out)
	case FormatMarkdown:
		md := renderer.RenderMarkdown(p, modes)
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			fmt.Fprint(c.out, md)
			return nil
		}
		rendered, err := r.Render(md)
		if err != nil {
			fmt.Fprint(c.out, md)
			return nil
		}
		fmt.Fprint(c.out, rendered)
	default:
		pos, neg := renderer.Apply(p.Positive, p.Negative, modes)
		fmt.Fprintf(c.out, "Title: %s\n", p.Name)
		fmt.Fprintf(c.out, "Category: %s\n", p.Category)
		if p.Tags != "" {
			fmt.Fprintf(c.out, "Tags: %s\n", p.Tags)
		}
		if p.Favorite {
			fmt.Fprintln(c.out, "Favorite: yes")
		}
		if !p.LastUsed.IsZero() {
			fmt.Fprintf(c.out, "Last used: %s\n", p.LastUsed.Format(models.TimeLayout))
		}
		fmt.Fprintf(c.out, "\nPositive:\n%s\n", pos)
		if neg != "" {
			fmt.Fprintf(c.out, "\nNegative:\n%s\n", neg)
		}
	}
	return nil
}
