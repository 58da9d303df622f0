package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"pkt.systems/mavdeck/schema"
)

type rgb struct {
	r int
	g int
	b int
}

func (c rgb) color() lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c.r, c.g, c.b))
}

type palette struct {
	BarBG      rgb
	ActiveBG   rgb
	ActiveFG   rgb
	InactiveFG rgb
	Text       rgb
	Muted      rgb
	Border     rgb
	Focus      rgb
	OK         rgb
	Warn       rgb
	Error      rgb
	Match      rgb
	Spinner    rgb
}

var palettes = map[schema.ThemeName]palette{
	"outrun": {
		BarBG:      rgb{r: 32, g: 8, b: 56},
		ActiveBG:   rgb{r: 0, g: 229, b: 255},
		ActiveFG:   rgb{r: 10, g: 13, b: 23},
		InactiveFG: rgb{r: 240, g: 241, b: 255},
		Text:       rgb{r: 240, g: 241, b: 255},
		Muted:      rgb{r: 154, g: 163, b: 178},
		Border:     rgb{r: 60, g: 79, b: 184},
		Focus:      rgb{r: 255, g: 91, b: 189},
		OK:         rgb{r: 112, g: 214, b: 255},
		Warn:       rgb{r: 255, g: 200, b: 87},
		Error:      rgb{r: 255, g: 107, b: 107},
		Match:      rgb{r: 154, g: 182, b: 255},
		Spinner:    rgb{r: 110, g: 136, b: 255},
	},
	"gruvbox": {
		BarBG:      rgb{r: 60, g: 56, b: 54},
		ActiveBG:   rgb{r: 250, g: 189, b: 47},
		ActiveFG:   rgb{r: 40, g: 40, b: 40},
		InactiveFG: rgb{r: 235, g: 219, b: 178},
		Text:       rgb{r: 235, g: 219, b: 178},
		Muted:      rgb{r: 146, g: 131, b: 116},
		Border:     rgb{r: 102, g: 92, b: 84},
		Focus:      rgb{r: 214, g: 93, b: 14},
		OK:         rgb{r: 184, g: 187, b: 38},
		Warn:       rgb{r: 250, g: 189, b: 47},
		Error:      rgb{r: 251, g: 73, b: 52},
		Match:      rgb{r: 131, g: 165, b: 152},
		Spinner:    rgb{r: 131, g: 165, b: 152},
	},
	"tokyo-midnight": {
		BarBG:      rgb{r: 26, g: 27, b: 38},
		ActiveBG:   rgb{r: 122, g: 162, b: 247},
		ActiveFG:   rgb{r: 26, g: 27, b: 38},
		InactiveFG: rgb{r: 192, g: 202, b: 245},
		Text:       rgb{r: 192, g: 202, b: 245},
		Muted:      rgb{r: 127, g: 133, b: 163},
		Border:     rgb{r: 59, g: 79, b: 159},
		Focus:      rgb{r: 187, g: 154, b: 247},
		OK:         rgb{r: 158, g: 206, b: 106},
		Warn:       rgb{r: 224, g: 175, b: 104},
		Error:      rgb{r: 247, g: 118, b: 142},
		Match:      rgb{r: 125, g: 207, b: 255},
		Spinner:    rgb{r: 122, g: 162, b: 247},
	},
}

// theme holds the rendered styles for one palette.
type theme struct {
	name        schema.ThemeName
	tabBar      lipgloss.Style
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	pane        lipgloss.Style
	paneFocused lipgloss.Style
	title       lipgloss.Style
	titleFocus  lipgloss.Style
	text        lipgloss.Style
	muted       lipgloss.Style
	cursor      lipgloss.Style
	ok          lipgloss.Style
	warn        lipgloss.Style
	danger      lipgloss.Style
	match       lipgloss.Style
	matchActive lipgloss.Style
	spinner     lipgloss.Style
	popup       lipgloss.Style
}

func newTheme(name schema.ThemeName, r *lipgloss.Renderer) theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	if name == "" {
		name = schema.DefaultTheme
	}
	p, ok := palettes[name]
	if !ok {
		name = schema.DefaultTheme
		p = palettes[name]
	}
	return theme{
		name:   name,
		tabBar: r.NewStyle().Background(p.BarBG.color()).Foreground(p.InactiveFG.color()),
		tabActive: r.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(p.ActiveFG.color()).
			Background(p.ActiveBG.color()),
		tabInactive: r.NewStyle().
			Padding(0, 1).
			Foreground(p.InactiveFG.color()).
			Background(p.BarBG.color()),
		pane: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border.color()),
		paneFocused: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Focus.color()),
		title:       r.NewStyle().Bold(true).Foreground(p.Muted.color()),
		titleFocus:  r.NewStyle().Bold(true).Foreground(p.Focus.color()),
		text:        r.NewStyle().Foreground(p.Text.color()),
		muted:       r.NewStyle().Foreground(p.Muted.color()),
		cursor:      r.NewStyle().Bold(true).Foreground(p.ActiveFG.color()).Background(p.ActiveBG.color()),
		ok:          r.NewStyle().Foreground(p.OK.color()),
		warn:        r.NewStyle().Foreground(p.Warn.color()),
		danger:      r.NewStyle().Bold(true).Foreground(p.Error.color()),
		match:       r.NewStyle().Underline(true).Foreground(p.Match.color()),
		matchActive: r.NewStyle().Bold(true).Foreground(p.ActiveFG.color()).Background(p.Match.color()),
		spinner:     r.NewStyle().Foreground(p.Spinner.color()),
		popup: r.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(p.Focus.color()).
			Padding(0, 1),
	}
}
