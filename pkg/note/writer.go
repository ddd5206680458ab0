// Package note renders finished conversations as markdown documents in
// the notes directory.
package note

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/inklingco/inkling/pkg/chat"
	"github.com/inklingco/inkling/pkg/git"
	"github.com/inklingco/inkling/pkg/utils"
)

var (
	// citationRE matches the service's inline citation form ##N$$ plus
	// the fragments a cut stream leaves behind.
	citationRE = regexp.MustCompile(`##\d+\$\$|##\d+|\$\$|##\z`)

	blanksRE = regexp.MustCompile(`\n{3,}`)
)

// Summary describes one note on disk.
type Summary struct {
	Path      string
	Title     string
	Assistant string
	Project   string
	Date      time.Time
}

// Writer persists conversations under Dir.
type Writer struct {
	// Dir is the notes directory. Created on first write.
	Dir string
}

// Write renders conv and persists it as <dir>/<slug>-<timestamp>.md,
// returning the path.
func (w *Writer) Write(conv *chat.Conversation) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create notes directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.md",
		utils.Slugify(conv.Title()),
		conv.CreatedAt().Format("20060102-150405"),
	)
	path := filepath.Join(w.Dir, name)

	if err := os.WriteFile(path, []byte(Render(conv)), 0o600); err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}

	return path, nil
}

// Render produces the note document: frontmatter, a "## You" or
// "## Assistant" section per message, and a references appendix.
// Temporary placeholders and local notices stay out; interrupted
// answers are annotated rather than dropped.
func Render(conv *chat.Conversation) string {
	var b strings.Builder

	assistant := conv.AssistantName()
	if assistant == "" {
		assistant = conv.State().AssistantID
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", conv.Title())
	fmt.Fprintf(&b, "assistant: %s\n", assistant)
	fmt.Fprintf(&b, "model: %s\n", conv.Model())
	fmt.Fprintf(&b, "project: %s\n", git.Project())
	fmt.Fprintf(&b, "date: %s\n", conv.CreatedAt().Format(time.RFC3339))
	b.WriteString("---\n")

	var refs []string
	seen := map[string]bool{}

	for _, m := range conv.Messages() {
		if m.Temporary {
			continue
		}

		switch m.Role {
		case chat.RoleUser:
			b.WriteString("\n## You\n\n")
		case chat.RoleAssistant:
			b.WriteString("\n## Assistant\n\n")
		default:
			continue
		}

		b.WriteString(Clean(m.Content))
		b.WriteString("\n")
		if m.Incomplete {
			b.WriteString("\n*response interrupted*\n")
		}

		for _, r := range m.References {
			if r.DocumentName == "" || seen[r.DocumentName] {
				continue
			}
			seen[r.DocumentName] = true
			refs = append(refs, r.DocumentName)
		}
	}

	if len(refs) > 0 {
		b.WriteString("\n## References\n\n")
		for _, r := range refs {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	return b.String()
}

// Clean strips the service's citation markers and stray formatting
// tokens from answer text, collapses runs of blank lines, and trims.
// Markdown headings survive: a legitimate "## Heading" has a space
// after the hashes, which the marker patterns never match.
func Clean(s string) string {
	s = citationRE.ReplaceAllString(s, "")
	s = blanksRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// List scans dir for notes and returns their summaries. Files that do
// not parse as notes are skipped.
func List(dir string) ([]*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read notes directory: %w", err)
	}

	var notes []*Summary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		sum, err := parseNote(string(data))
		if err != nil {
			continue
		}
		sum.Path = path
		notes = append(notes, sum)
	}

	return notes, nil
}

func parseNote(content string) (*Summary, error) {
	if !strings.HasPrefix(content, "---\n") {
		return nil, errors.New("missing frontmatter delimiter")
	}

	front, _, ok := strings.Cut(content[4:], "\n---\n")
	if !ok {
		return nil, errors.New("missing closing frontmatter delimiter")
	}

	sum := &Summary{}
	for line := range strings.SplitSeq(front, "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "title":
			sum.Title = value
		case "assistant":
			sum.Assistant = value
		case "project":
			sum.Project = value
		case "date":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				sum.Date = t
			}
		}
	}

	return sum, nil
}
