package models

import "fmt"

// Setting keys persisted in the settings table
const (
	SettingTheme          = "selected_theme"
	SettingLastCategory   = "last_category"
	SettingWindowGeometry = "window_geometry"
)

// Theme names accepted for SettingTheme
const (
	ThemeDark   = "Dark"
	ThemeLight  = "Light"
	ThemeSystem = "System"
)

// Setting represents a key-value preference
type Setting struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// DefaultSettings are written the first time the settings table is created
var DefaultSettings = []Setting{
	{Key: SettingTheme, Value: ThemeSystem},
	{Key: SettingLastCategory, Value: "Pony"},
	{Key: SettingWindowGeometry, Value: "900x1100+300+100"},
}

// DefaultSetting returns the first-run value for key, or "" if key has none
func DefaultSetting(key string) string {
	for _, s := range DefaultSettings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// ValidateSetting checks values for keys with a closed set of options
func ValidateSetting(key, value string) error {
	if key == SettingTheme {
		switch value {
		case ThemeDark, ThemeLight, ThemeSystem:
			return nil
		default:
			return fmt.Errorf("theme must be one of %s, %s, %s", ThemeDark, ThemeLight, ThemeSystem)
		}
	}
	return nil
}
