package renderer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dpshade/prompt-vault/internal/models"
)

// Scoring vocabulary injected in pony mode
const (
	PonyPositivePrefix = "score_9, score_8_up, score_7_up, score_6_up, score_5_up, score_4_up, "
	PonyNegativePrefix = "score_6, score_5, score_4, low quality, worst quality, bad anatomy, bad hands, missing fingers, "

	ponyPositiveMarker = "score_9"
	ponyNegativeMarker = "score_6"
)

// Style tags appended in realism mode
const (
	RealismPositiveSuffix = ", source_real, realistic, photo, photorealistic"
	RealismNegativeSuffix = ", source_pony, source_anime, source_cartoon, drawing, illustration"
)

// Modes holds the two independent formatting toggles
type Modes struct {
	Pony    bool `json:"pony"`
	Realism bool `json:"realism"`
}

// Part selects which text a copy produces
type Part int

const (
	PartBoth Part = iota
	PartPositive
	PartNegative
)

// ParsePart maps "positive", "negative" or "both" to a Part
func ParsePart(s string) (Part, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return PartBoth, nil
	case "positive", "pos":
		return PartPositive, nil
	case "negative", "neg":
		return PartNegative, nil
	default:
		return PartBoth, fmt.Errorf("unknown part %q: use positive, negative or both", s)
	}
}

// Apply formats positive and negative text for the given modes. Pony
// prefixes are added unless the text already starts with the scoring
// token, realism suffixes are then appended, and finally leading and
// trailing commas and spaces are stripped.
func Apply(positive, negative string, modes Modes) (string, string) {
	if modes.Pony {
		if !hasPrefixFold(positive, ponyPositiveMarker) {
			positive = PonyPositivePrefix + positive
		}
		if !hasPrefixFold(negative, ponyNegativeMarker) {
			negative = PonyNegativePrefix + negative
		}
	}
	if modes.Realism {
		positive += RealismPositiveSuffix
		negative += RealismNegativeSuffix
	}
	return strings.Trim(positive, ", "), strings.Trim(negative, ", ")
}

// ApplyPrompt formats a copy of p
func ApplyPrompt(p *models.Prompt, modes Modes) *models.Prompt {
	out := *p
	out.Positive, out.Negative = Apply(p.Positive, p.Negative, modes)
	return &out
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// RenderBoth joins both texts into the clipboard layout
func RenderBoth(positive, negative string) string {
	return fmt.Sprintf("%s\n\nNegative Prompt:\n%s", positive, negative)
}

// RenderText formats p for the selected part. Positive and negative are
// formatted independently, as the single-part copy actions do.
func RenderText(p *models.Prompt, part Part, modes Modes) string {
	switch part {
	case PartPositive:
		pos, _ := Apply(p.Positive, "", modes)
		return pos
	case PartNegative:
		_, neg := Apply("", p.Negative, modes)
		return neg
	default:
		pos, neg := Apply(p.Positive, p.Negative, modes)
		return RenderBoth(pos, neg)
	}
}

// Message is the JSON rendering of a formatted prompt
type Message struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Positive string `json:"positive"`
	Negative string `json:"negative"`
	Modes    Modes  `json:"modes"`
}

// RenderJSON renders the formatted prompt as indented JSON
func RenderJSON(p *models.Prompt, modes Modes) (string, error) {
	f := ApplyPrompt(p, modes)
	jsonBytes, err := json.MarshalIndent(Message{
		Title:    f.Name,
		Category: f.Category,
		Positive: f.Positive,
		Negative: f.Negative,
		Modes:    modes,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// RenderMarkdown renders the formatted prompt as a markdown document for the
// detail views
func RenderMarkdown(p *models.Prompt, modes Modes) string {
	p = ApplyPrompt(p, modes)

	var b strings.Builder
	title := p.Name
	if p.Favorite {
		title = "★ " + title
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**Category:** %s\n\n", p.Category)
	if p.Tags != "" {
		fmt.Fprintf(&b, "**Tags:** %s\n\n", p.Tags)
	}
	if !p.LastUsed.IsZero() {
		fmt.Fprintf(&b, "**Last used:** %s\n\n", p.LastUsed.Format(models.TimeLayout))
	}
	fmt.Fprintf(&b, "## Positive\n\n```\n%s\n```\n\n", p.Positive)
	if p.Negative != "" {
		fmt.Fprintf(&b, "## Negative\n\n```\n%s\n```\n", p.Negative)
	}
	return b.String()
}

// LoraTag returns the LoRA reference syntax for name at weight
func LoraTag(name string, weight float64) string {
	return fmt.Sprintf("<lora:%s:%.1f>", strings.TrimSpace(name), weight)
}
