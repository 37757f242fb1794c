// Package render turns transcript entries into display output. Message text is
// always treated as inert content, never as markup.
package render

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"CampusChat/internal/session"
)

var entryTemplate = template.Must(template.New("entry").Parse(
	`<div class="{{.Role}}">{{.Text}}</div>`,
))

// HTML renders one transcript entry with its text escaped
func HTML(msg session.Message) (template.HTML, error) {
	var buf bytes.Buffer
	if err := entryTemplate.Execute(&buf, struct {
		Role string
		Text string
	}{Role: roleClass(msg.Role), Text: msg.Text}); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// roleClass keeps the class attribute to the known roles
func roleClass(r session.Role) string {
	switch r {
	case session.RoleUser, session.RoleBot:
		return string(r)
	default:
		return "unknown"
	}
}

var (
	colorUser = lipgloss.Color("#7AA2F7")
	colorBot  = lipgloss.Color("#9ECE6A")
	colorDim  = lipgloss.Color("#6B7280")
	colorErr  = lipgloss.Color("#F7768E")

	userLabelStyle = lipgloss.NewStyle().Foreground(colorUser).Bold(true)
	botLabelStyle  = lipgloss.NewStyle().Foreground(colorBot).Bold(true)
	bodyStyle      = lipgloss.NewStyle().PaddingLeft(2)
	hintStyle      = lipgloss.NewStyle().Foreground(colorDim).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(colorErr)
)

// Terminal renders one transcript entry for a terminal
func Terminal(msg session.Message) string {
	label := userLabelStyle.Render("You")
	if msg.Role == session.RoleBot {
		label = botLabelStyle.Render("Bot")
	}
	return label + "\n" + bodyStyle.Render(sanitizeTerminal(msg.Text))
}

// Hint renders secondary text such as command help
func Hint(s string) string {
	return hintStyle.Render(s)
}

// Error renders a failure notice
func Error(s string) string {
	return errorStyle.Render(s)
}

// sanitizeTerminal drops control characters so text cannot drive the terminal
func sanitizeTerminal(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
			return -1
		}
		return r
	}, s)
}
