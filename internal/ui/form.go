package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/prompt-vault/internal/models"
	"github.com/dpshade/prompt-vault/internal/renderer"
)

// Form field indices, in tab order
const (
	titleField = iota
	categoryField
	tagsField
	positiveField
	negativeField
	fieldCount
)

// EditorForm edits one prompt: three single-line inputs and two text areas
type EditorForm struct {
	inputs    []textinput.Model // title, category, tags
	positive  textarea.Model
	negative  textarea.Model
	focused   int
	submitted bool
	editing   string // title the form was loaded from, "" for a new prompt

	loraInput  textinput.Model
	loraActive bool
}

// NewEditorForm creates an empty form with category completion
func NewEditorForm(categories []string) *EditorForm {
	// Fields loaded from storage take any length so an edit never truncates
	inputs := make([]textinput.Model, 3)

	inputs[titleField] = textinput.New()
	inputs[titleField].Placeholder = "Prompt title"
	inputs[titleField].CharLimit = 0
	inputs[titleField].Width = 60

	inputs[categoryField] = textinput.New()
	inputs[categoryField].Placeholder = "Pony"
	inputs[categoryField].CharLimit = 0
	inputs[categoryField].Width = 40
	inputs[categoryField].SetSuggestions(categories)
	inputs[categoryField].ShowSuggestions = len(categories) > 0
	// Tab moves between fields, so accept completions with right arrow
	categoryKeys := textinput.DefaultKeyMap
	categoryKeys.AcceptSuggestion = key.NewBinding(key.WithKeys("ctrl+space", "right"))
	inputs[categoryField].KeyMap = categoryKeys

	inputs[tagsField] = textinput.New()
	inputs[tagsField].Placeholder = "city, night, rain"
	inputs[tagsField].CharLimit = 0
	inputs[tagsField].Width = 60

	newArea := func(placeholder string, height int) textarea.Model {
		ta := textarea.New()
		ta.Placeholder = placeholder
		ta.CharLimit = 0
		ta.MaxHeight = 0
		ta.ShowLineNumbers = false
		ta.SetWidth(80)
		ta.SetHeight(height)
		return ta
	}

	lora := textinput.New()
	lora.Placeholder = "lora name"
	lora.CharLimit = 100
	lora.Width = 40

	f := &EditorForm{
		inputs:    inputs,
		positive:  newArea("Positive prompt", 6),
		negative:  newArea("Negative prompt", 4),
		loraInput: lora,
	}
	f.focus(titleField)
	return f
}

// LoadPrompt fills the form from a stored prompt for editing
func (f *EditorForm) LoadPrompt(p *models.Prompt) {
	f.inputs[titleField].SetValue(p.Name)
	f.inputs[categoryField].SetValue(p.Category)
	f.inputs[tagsField].SetValue(p.Tags)
	f.positive.SetValue(p.Positive)
	f.negative.SetValue(p.Negative)
	f.editing = p.Name
}

// SetCategory preselects a category for a new prompt
func (f *EditorForm) SetCategory(category string) {
	f.inputs[categoryField].SetValue(category)
}

// Editing returns the title the form was loaded from
func (f *EditorForm) Editing() string {
	return f.editing
}

// ToDraft returns the form contents
func (f *EditorForm) ToDraft() models.Draft {
	return models.Draft{
		Title:    f.inputs[titleField].Value(),
		Category: f.inputs[categoryField].Value(),
		Tags:     f.inputs[tagsField].Value(),
		Positive: f.positive.Value(),
		Negative: f.negative.Value(),
	}
}

// IsSubmitted returns whether ctrl+s was pressed since the last reset
func (f *EditorForm) IsSubmitted() bool {
	return f.submitted
}

// ClearSubmitted lets the form be submitted again after a failed save
func (f *EditorForm) ClearSubmitted() {
	f.submitted = false
}

// LoraActive reports whether the LoRA name prompt is open
func (f *EditorForm) LoraActive() bool {
	return f.loraActive
}

// Update handles form navigation and editing
func (f *EditorForm) Update(msg tea.Msg) tea.Cmd {
	if f.loraActive {
		return f.updateLora(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab":
			f.focus((f.focused + 1) % fieldCount)
			return nil
		case "shift+tab":
			f.focus((f.focused + fieldCount - 1) % fieldCount)
			return nil
		case "ctrl+s":
			f.submitted = true
			return nil
		case "ctrl+l":
			f.loraActive = true
			f.loraInput.SetValue("")
			return f.loraInput.Focus()
		case "enter", "down":
			// Text areas take newlines and cursor movement themselves
			if !f.inTextArea() {
				f.focus((f.focused + 1) % fieldCount)
				return nil
			}
		case "up":
			if !f.inTextArea() {
				f.focus((f.focused + fieldCount - 1) % fieldCount)
				return nil
			}
		}
	}

	var cmd tea.Cmd
	switch f.focused {
	case positiveField:
		f.positive, cmd = f.positive.Update(msg)
	case negativeField:
		f.negative, cmd = f.negative.Update(msg)
	default:
		f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	}
	return cmd
}

// updateLora handles keys while the LoRA name prompt is open. Enter inserts
// the reference at the cursor of the positive prompt.
func (f *EditorForm) updateLora(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			f.closeLora()
			return nil
		case "enter":
			name := strings.TrimSpace(f.loraInput.Value())
			if name == "" {
				return statusCmd("Enter a LoRA name first.", statusWarning)
			}
			f.closeLora()
			f.focus(positiveField)
			f.positive.InsertString(renderer.LoraTag(name, 1.0))
			return statusCmd("LoRA inserted", statusSuccess)
		}
	}

	var cmd tea.Cmd
	f.loraInput, cmd = f.loraInput.Update(msg)
	return cmd
}

func (f *EditorForm) closeLora() {
	f.loraActive = false
	f.loraInput.Blur()
}

func (f *EditorForm) inTextArea() bool {
	return f.focused == positiveField || f.focused == negativeField
}

func (f *EditorForm) focus(field int) {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	f.positive.Blur()
	f.negative.Blur()

	f.focused = field
	switch field {
	case positiveField:
		f.positive.Focus()
	case negativeField:
		f.negative.Focus()
	default:
		f.inputs[field].Focus()
	}
}

// Resize fits the text areas to the window
func (f *EditorForm) Resize(width, height int) {
	// title, category, tags, labels and help take about 16 lines
	available := height - 16
	if available < 6 {
		available = 6
	}
	areaWidth := width - 10
	if areaWidth < 30 {
		areaWidth = 30
	}
	f.positive.SetWidth(areaWidth)
	f.positive.SetHeight(available * 3 / 5)
	f.negative.SetWidth(areaWidth)
	f.negative.SetHeight(available - available*3/5)
}

// View renders the form fields with labels
func (f *EditorForm) View() string {
	label := func(text string, field int) string {
		if f.focused == field {
			return StyleFormLabel.Foreground(ColorPrimary).Render(text)
		}
		return StyleFormLabel.Render(text)
	}

	parts := []string{
		label("Title", titleField),
		f.inputs[titleField].View(),
		label("Category", categoryField),
		f.inputs[categoryField].View(),
		label("Tags", tagsField),
		f.inputs[tagsField].View(),
		label("Positive Prompt", positiveField),
		f.positive.View(),
		label("Negative Prompt", negativeField),
		f.negative.View(),
	}

	if f.loraActive {
		parts = append(parts, "", StyleModal.Render(lipgloss.JoinVertical(lipgloss.Left,
			StyleFormLabel.Render("Add LoRA"),
			f.loraInput.View(),
			StyleTextDim.Render("enter insert • esc cancel"),
		)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
