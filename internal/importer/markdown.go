package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dpshade/prompt-vault/internal/models"
)

// frontmatter is the YAML header of a markdown prompt file. The body of the
// file is the positive text.
type frontmatter struct {
	Title    string    `yaml:"title"`
	Category string    `yaml:"category"`
	Tags     any       `yaml:"tags"`
	Negative string    `yaml:"negative"`
	Favorite bool      `yaml:"favorite"`
	LastUsed time.Time `yaml:"last_used"`
}

// ReadMarkdownDir reads every .md file under dir as a prompt. Files that
// cannot be read or parsed are reported in the returned errors and skipped.
func ReadMarkdownDir(dir string) ([]*models.Prompt, []error) {
	var prompts []*models.Prompt
	var errs []error

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		p, err := readMarkdownFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to import %s: %w", path, err))
			return nil
		}
		prompts = append(prompts, p)
		return nil
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to walk %s: %w", dir, err))
	}

	sort.Slice(prompts, func(i, j int) bool { return prompts[i].Name < prompts[j].Name })
	return prompts, errs
}

// readMarkdownFile parses one front-matter markdown file
func readMarkdownFile(path string) (*models.Prompt, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	header, body, err := parseFrontmatter(content)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(header.Title)
	if title == "" {
		title = titleFromPath(path)
	}

	return &models.Prompt{
		Name:     title,
		Category: strings.TrimSpace(header.Category),
		Tags:     tagsString(header.Tags),
		Positive: body,
		Negative: strings.TrimSpace(header.Negative),
		LastUsed: header.LastUsed,
		Favorite: header.Favorite,
	}, nil
}

// parseFrontmatter extracts YAML frontmatter from markdown content
func parseFrontmatter(content []byte) (frontmatter, string, error) {
	var header frontmatter
	scanner := bufio.NewScanner(bytes.NewReader(content))
	// A prompt can be one very long line
	scanner.Buffer(make([]byte, 0, 64*1024), len(content)+1)

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return header, strings.TrimSpace(string(content)), nil
	}

	var headerLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		headerLines = append(headerLines, line)
	}
	if !closed {
		return header, "", fmt.Errorf("unterminated frontmatter")
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return header, "", err
	}

	if len(headerLines) > 0 {
		if err := yaml.Unmarshal([]byte(strings.Join(headerLines, "\n")), &header); err != nil {
			return header, "", fmt.Errorf("invalid frontmatter: %w", err)
		}
	}

	return header, strings.TrimSpace(strings.Join(bodyLines, "\n")), nil
}

// tagsString accepts tags either as a YAML list or as a comma-separated string
func tagsString(v any) string {
	switch tags := v.(type) {
	case string:
		return addTags(tags, nil)
	case []any:
		parts := make([]string, 0, len(tags))
		for _, tag := range tags {
			parts = append(parts, fmt.Sprint(tag))
		}
		return addTags("", parts)
	default:
		return ""
	}
}

// titleFromPath derives a title from a file name
func titleFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ").Replace(name))
}

// WriteMarkdownDir writes each prompt to dir as a front-matter markdown file
// and returns the paths written
func WriteMarkdownDir(dir string, prompts []*models.Prompt) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var written []string
	used := make(map[string]int)
	for _, p := range prompts {
		header := frontmatter{
			Title:    p.Name,
			Category: p.Category,
			Negative: p.Negative,
			Favorite: p.Favorite,
			LastUsed: p.LastUsed,
		}
		if p.Tags != "" {
			header.Tags = p.Tags
		}

		data, err := yaml.Marshal(header)
		if err != nil {
			return written, fmt.Errorf("failed to encode %q: %w", p.Name, err)
		}

		var buf bytes.Buffer
		buf.WriteString("---\n")
		buf.Write(data)
		buf.WriteString("---\n")
		buf.WriteString(p.Positive)
		buf.WriteString("\n")

		base := sanitizeFilename(p.Name)
		used[base]++
		if n := used[base]; n > 1 {
			base = fmt.Sprintf("%s-%d", base, n)
		}
		path := filepath.Join(dir, base+".md")
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// sanitizeFilename creates a safe filename from a title
func sanitizeFilename(title string) string {
	safe := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
		"\"", "-", "<", "-", ">", "-", "|", "-",
	).Replace(strings.TrimSpace(title))
	if safe == "" {
		return "untitled"
	}
	return safe
}
