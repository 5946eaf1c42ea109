// Package styles provides colour themes and styling for the editor.
package styles

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour palette of the editor.
type Theme struct {
	Name string

	Background lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Accent     lipgloss.Color
	Error      lipgloss.Color

	// Match marks every search hit, CurrentMatch the selected one.
	Match        lipgloss.Color
	CurrentMatch lipgloss.Color

	StatusBackground lipgloss.Color
}

func DarkTheme() *Theme {
	return &Theme{
		Name:             "dark",
		Background:       lipgloss.Color("#1E1E2E"),
		Foreground:       lipgloss.Color("#CDD6F4"),
		Muted:            lipgloss.Color("#6C7086"),
		Accent:           lipgloss.Color("#89B4FA"),
		Error:            lipgloss.Color("#F38BA8"),
		Match:            lipgloss.Color("#585B70"),
		CurrentMatch:     lipgloss.Color("#F9E2AF"),
		StatusBackground: lipgloss.Color("#181825"),
	}
}

func LightTheme() *Theme {
	return &Theme{
		Name:             "light",
		Background:       lipgloss.Color("#FFFFFF"),
		Foreground:       lipgloss.Color("#000000"),
		Muted:            lipgloss.Color("#8C8FA1"),
		Accent:           lipgloss.Color("#1E66F5"),
		Error:            lipgloss.Color("#D20F39"),
		Match:            lipgloss.Color("#DCE0E8"),
		CurrentMatch:     lipgloss.Color("#DF8E1D"),
		StatusBackground: lipgloss.Color("#E6E9EF"),
	}
}

// ThemeFor returns the named theme, dark for anything but "light".
func ThemeFor(mode string) *Theme {
	if strings.EqualFold(mode, "light") {
		return LightTheme()
	}
	return DarkTheme()
}

// WithBackground returns a copy of t painted on hex, with black or white
// text depending on how bright hex is.
func (t *Theme) WithBackground(hex string) (*Theme, error) {
	fg, err := ForegroundFor(hex)
	if err != nil {
		return nil, err
	}
	c := *t
	c.Name = t.Name + "+custom"
	c.Background = lipgloss.Color(strings.ToUpper(hex))
	c.Foreground = fg
	return &c, nil
}

// ForegroundFor picks white text for dark backgrounds and black otherwise,
// using the perceived brightness (299r + 587g + 114b) / 1000.
func ForegroundFor(hex string) (lipgloss.Color, error) {
	r, g, b, err := parseHex(hex)
	if err != nil {
		return "", err
	}
	if (299*r+587*g+114*b)/1000 < 128 {
		return lipgloss.Color("#FFFFFF"), nil
	}
	return lipgloss.Color("#000000"), nil
}

func parseHex(hex string) (r, g, b int, err error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("colour %q is not #rrggbb", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("colour %q is not #rrggbb", hex)
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), nil
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Text         lipgloss.Style
	Gutter       lipgloss.Style
	Cursor       lipgloss.Style
	Selection    lipgloss.Style
	Match        lipgloss.Style
	CurrentMatch lipgloss.Style
	StatusBar    lipgloss.Style
	StatusMode   lipgloss.Style
	Notice       lipgloss.Style
	Error        lipgloss.Style
	Prompt       lipgloss.Style
	Help         lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DarkTheme()
	}
	base := lipgloss.NewStyle().Background(theme.Background)

	return &Styles{
		theme: theme,

		Text: base.
			Foreground(theme.Foreground),

		Gutter: base.
			Foreground(theme.Muted),

		Cursor: lipgloss.NewStyle().
			Foreground(theme.Background).
			Background(theme.Foreground),

		Selection: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Background(theme.Muted),

		Match: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Background(theme.Match),

		CurrentMatch: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(theme.CurrentMatch),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(theme.StatusBackground).
			Padding(0, 1),

		StatusMode: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Accent).
			Background(theme.StatusBackground),

		Notice: base.
			Foreground(theme.Accent),

		Error: base.
			Foreground(theme.Error),

		Prompt: base.
			Bold(true).
			Foreground(theme.Accent),

		Help: base.
			Foreground(theme.Muted),
	}
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}
