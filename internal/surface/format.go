package surface

import (
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Placeholders recognized by the header template. Substitution is literal
// string replacement, not regex: a role name that itself contains one of
// these markers would misrender. That matches the configured-template
// contract and is a documented limitation, not a bug to fix here.
const (
	placeholderTimestamp  = "<TIMESTAMP>"
	placeholderMarker     = "<MARKER>"
	placeholderRoleName   = "<ROLENAME>"
	placeholderRolePrompt = "<ROLEPROMPT>"
)

const timestampLayout = "2006-01-02 15:04:05"

// Format renders role header lines and their visual emphasis.
type Format struct {
	Template     string
	Marker       string
	UserName     string
	ModelName    string
	PromptSuffix string
	Timestamps   bool
}

// DefaultFormat mirrors the shipped configuration defaults.
func DefaultFormat() Format {
	return Format{
		Template:     placeholderTimestamp + placeholderMarker + placeholderRoleName + placeholderRolePrompt,
		Marker:       "## ",
		UserName:     "You",
		ModelName:    "Gemini",
		PromptSuffix: ":",
	}
}

// RoleName maps a role to its configured display name.
func (f Format) RoleName(role Role) string {
	if role == RoleModel {
		return f.ModelName
	}
	return f.UserName
}

// Header builds the role header line for one turn.
func (f Format) Header(role Role, now time.Time) string {
	timestamp := ""
	if f.Timestamps {
		timestamp = "[" + now.Format(timestampLayout) + "] "
	}
	header := f.Template
	header = strings.ReplaceAll(header, placeholderTimestamp, timestamp)
	header = strings.ReplaceAll(header, placeholderMarker, f.Marker)
	header = strings.ReplaceAll(header, placeholderRoleName, f.RoleName(role))
	header = strings.ReplaceAll(header, placeholderRolePrompt, f.PromptSuffix)
	return header
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	timestampMatch = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] `)
	ansiEscapes    = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
)

// Highlight re-applies emphasis to every role header line. Any previously
// applied styling is stripped first, so repeated calls settle on the same
// output instead of accumulating escape sequences.
func (f Format) Highlight(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		plain := StripANSI(line)
		if f.IsHeaderLine(plain) {
			out[i] = headerStyle.Render(plain)
		} else {
			out[i] = plain
		}
	}
	return out
}

// IsHeaderLine reports whether a plain (unstyled) line is a role header:
// an optional timestamp part followed by the configured marker and one of
// the role display names.
func (f Format) IsHeaderLine(line string) bool {
	rest := timestampMatch.ReplaceAllString(line, "")
	if f.Marker != "" {
		if !strings.HasPrefix(rest, f.Marker) {
			return false
		}
		rest = rest[len(f.Marker):]
	}
	return strings.HasPrefix(rest, f.UserName) || strings.HasPrefix(rest, f.ModelName)
}

// StripANSI removes terminal escape sequences from a line.
func StripANSI(text string) string {
	return ansiEscapes.ReplaceAllString(text, "")
}
