package theme

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/stats"
)

// Theme names accepted by ForName.
const (
	NameLight = "light"
	NameDark  = "dark"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// categoryColors maps each category to its accent color.
var categoryColors = map[model.Category]lipgloss.AdaptiveColor{
	model.CategoryBook:      ColorBlue,
	model.CategorySeries:    ColorMagenta,
	model.CategoryMovie:     ColorRed,
	model.CategoryGame:      ColorOrange,
	model.CategoryEducation: ColorYellow,
	model.CategorySport:     ColorGreen,
}

// Theme resolves the adaptive palette for an explicit light or dark
// preference instead of relying on terminal detection.
type Theme struct {
	Name string
	dark bool
}

// ForName returns the theme for a stored preference. Unknown names fall
// back to light.
func ForName(name string) Theme {
	if strings.EqualFold(strings.TrimSpace(name), NameDark) {
		return Theme{Name: NameDark, dark: true}
	}
	return Theme{Name: NameLight}
}

// Dark reports whether the theme uses the dark palette.
func (t Theme) Dark() bool {
	return t.dark
}

// Color picks the variant of c that matches the theme.
func (t Theme) Color(c lipgloss.AdaptiveColor) lipgloss.Color {
	if t.dark {
		return lipgloss.Color(c.Dark)
	}
	return lipgloss.Color(c.Light)
}

// Header is used for section titles.
func (t Theme) Header() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Color(ColorWhite)).
		Background(t.Color(ColorBlue)).
		Padding(0, 1)
}

// Help is used for hints and secondary text.
func (t Theme) Help() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Color(ColorGray)).
		Italic(true)
}

// Panel wraps a block of output in a rounded border.
func (t Theme) Panel() lipgloss.Style {
	return lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Color(ColorBorder))
}

// Category returns a color-coded label style for c.
func (t Theme) Category(c model.Category) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	color, ok := categoryColors[c]
	if !ok {
		color = ColorGray
	}
	return base.Foreground(t.Color(color))
}

// Status styles a completion marker.
func (t Theme) Status(completed bool) lipgloss.Style {
	if completed {
		return lipgloss.NewStyle().Foreground(t.Color(ColorGreen))
	}
	return lipgloss.NewStyle().Foreground(t.Color(ColorGray))
}

// Error styles failure messages.
func (t Theme) Error() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Color(ColorRed))
}

// ProgressBar renders p as a bar of the given width followed by the
// current and goal amounts.
func (t Theme) ProgressBar(c model.Category, p stats.Progress, width int) string {
	color, ok := categoryColors[c]
	if !ok {
		color = ColorGray
	}
	bar := progress.New(
		progress.WithSolidFill(string(t.Color(color))),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.Color(ColorSubtle))

	label := fmt.Sprintf(" %s/%s %3.0f%%", formatAmount(p.Current), formatAmount(p.Goal), p.ProgressPercent)
	if p.Completed {
		label += " " + t.Status(true).Render("done")
	}
	return bar.ViewAs(p.ProgressPercent/100) + label
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
