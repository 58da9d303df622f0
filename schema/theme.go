package schema

import "strings"

// DefaultTheme is the palette used when neither config nor prefs name one.
const DefaultTheme ThemeName = "outrun"

// themeCycle is the order the dashboard steps through when the theme key is
// pressed.
var themeCycle = []ThemeName{"outrun", "gruvbox", "tokyo-midnight"}

// AvailableThemes returns the supported theme names in cycle order.
func AvailableThemes() []ThemeName {
	return append([]ThemeName(nil), themeCycle...)
}

// NormalizeThemeName matches name case-insensitively, treating underscores
// and spaces as dashes.
func NormalizeThemeName(name string) (ThemeName, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	for _, theme := range themeCycle {
		if string(theme) == key {
			return theme, true
		}
	}
	return "", false
}

// NextTheme returns the theme after name, wrapping around. Unknown names
// restart the cycle.
func NextTheme(name ThemeName) ThemeName {
	for i, theme := range themeCycle {
		if theme == name {
			return themeCycle[(i+1)%len(themeCycle)]
		}
	}
	return themeCycle[0]
}
