package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ppiankov/dossier/internal/validate"
)

// Output formats
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ErrUnknownFormat is returned for unsupported output formats
var ErrUnknownFormat = errors.New("unknown output format")

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("255")) // White

	labelStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("245")) // Light gray

	valueStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Width(72)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // Red

	deadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")) // Yellow

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Renderer turns lookup results into terminal, markdown or JSON output
type Renderer struct{}

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// ParseFormat maps a user-supplied format name to one of the Format constants
func ParseFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}

// Render renders res in the given format
func (r *Renderer) Render(res *Result, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatTable:
		return r.Table(res), nil
	case FormatMarkdown, "md":
		return r.Markdown(res), nil
	case FormatJSON:
		data, err := r.JSON(res)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}

// Table renders res for a terminal
func (r *Renderer) Table(res *Result) string {
	var b strings.Builder

	title := res.Company
	if res.Country != "" {
		title += " (" + res.Country + ")"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if res.Score.Confidence != "" {
		b.WriteString(labelStyle.Render(completeness(res)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, n := range res.Notices {
		b.WriteString(noticeStyle.Render("! " + n.Message))
		b.WriteString("\n")
	}
	if len(res.Notices) > 0 {
		b.WriteString("\n")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Field", "Details").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return labelStyle
			default:
				return valueStyle
			}
		})
	for _, row := range res.Table.Rows() {
		t.Row(row[0], row[1])
	}
	b.WriteString(t.String())
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("References"))
	b.WriteString("\n")
	if res.References == "" {
		b.WriteString("(none)\n")
	} else {
		b.WriteString(res.References)
		b.WriteString("\n")
	}

	if len(res.LinkChecks) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Link checks"))
		b.WriteString("\n")
		for _, lc := range res.LinkChecks {
			line := fmt.Sprintf("%s %s [%s]", linkStatus(lc), lc.URL, lc.Tier)
			if !lc.Accessible {
				line = deadStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// Markdown renders res as a markdown document
func (r *Renderer) Markdown(res *Result) string {
	var b strings.Builder

	title := res.Company
	if res.Country != "" {
		title += " (" + res.Country + ")"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if res.Score.Confidence != "" {
		fmt.Fprintf(&b, "**%s**\n\n", completeness(res))
	}

	for _, n := range res.Notices {
		fmt.Fprintf(&b, "> **Warning:** %s\n", n.Message)
	}
	if len(res.Notices) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("| Field | Details |\n")
	b.WriteString("|-------|---------|\n")
	for _, row := range res.Table.Rows() {
		fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(row[0]), escapeCell(row[1]))
	}

	b.WriteString("\n## References\n\n")
	if res.References == "" {
		b.WriteString("_None_\n")
	} else {
		b.WriteString(res.References)
		b.WriteString("\n")
	}

	if len(res.Score.Signals) > 0 {
		b.WriteString("\n## Completeness\n\n")
		for _, sig := range res.Score.Signals {
			fmt.Fprintf(&b, "- %s (%s)\n", sig.Description, sig.Severity)
		}
	}

	if len(res.LinkChecks) > 0 {
		b.WriteString("\n## Link Checks\n\n")
		b.WriteString("| Status | URL | Source |\n")
		b.WriteString("|--------|-----|--------|\n")
		for _, lc := range res.LinkChecks {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", linkStatus(lc), escapeCell(lc.URL), lc.Tier)
		}
	}

	return b.String()
}

// JSON renders res as indented JSON
func (r *Renderer) JSON(res *Result) ([]byte, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return data, nil
}

// WriteFile renders res to path, creating parent directories
func (r *Renderer) WriteFile(res *Result, path, format string) error {
	out, err := r.Render(res, format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FileExtension returns the usual file extension for a format
func FileExtension(format string) string {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

func completeness(res *Result) string {
	return fmt.Sprintf("Completeness: %d/100 (%s confidence)", res.Score.Index, res.Score.Confidence)
}

func linkStatus(lc validate.LinkCheck) string {
	switch {
	case lc.Accessible && lc.RedirectURL != "":
		return "redirect"
	case lc.Accessible:
		return "ok"
	case lc.Dead:
		return "dead"
	default:
		return "unreachable"
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}
