// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// LANGUAGE
// =============================================================================

// Language is a supported interface language.
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguageSpanish    Language = "es"
	LanguageFrench     Language = "fr"
	LanguageGerman     Language = "de"
	LanguagePortuguese Language = "pt"
)

// Languages lists every supported language in display order.
var Languages = []Language{
	LanguageEnglish,
	LanguageSpanish,
	LanguageFrench,
	LanguageGerman,
	LanguagePortuguese,
}

// ParseLanguage validates a language code.
func ParseLanguage(s string) (Language, bool) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Languages {
		if l == known {
			return l, true
		}
	}
	return "", false
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings holds user preferences.
type Settings struct {
	Notifications bool     `json:"notifications"`
	SoundEnabled  bool     `json:"soundEnabled"`
	AutoSave      bool     `json:"autoSave"`
	Language      Language `json:"language"`
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		Notifications: true,
		SoundEnabled:  true,
		AutoSave:      true,
		Language:      LanguageEnglish,
	}
}

// MergeSettings decodes a stored settings object over the defaults.
// Each field is decoded on its own: a missing or malformed field keeps its
// default without discarding the others. The returned error is non-nil only
// when raw is not a JSON object at all.
func MergeSettings(raw []byte) (Settings, error) {
	s := DefaultSettings()
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return s, err
	}
	decodeBool(fields, "notifications", &s.Notifications)
	decodeBool(fields, "soundEnabled", &s.SoundEnabled)
	decodeBool(fields, "autoSave", &s.AutoSave)
	if v, ok := fields["language"]; ok {
		var code string
		if json.Unmarshal(v, &code) == nil {
			if l, ok := ParseLanguage(code); ok {
				s.Language = l
			}
		}
	}
	return s, nil
}

func decodeBool(fields map[string]json.RawMessage, key string, dst *bool) {
	v, ok := fields[key]
	if !ok {
		return
	}
	var b bool
	if json.Unmarshal(v, &b) == nil {
		*dst = b
	}
}

// Set updates a single setting by its JSON key from a textual value.
func (s *Settings) Set(key, value string) bool {
	switch key {
	case "notifications":
		return parseBool(value, &s.Notifications)
	case "soundEnabled", "sound":
		return parseBool(value, &s.SoundEnabled)
	case "autoSave", "autosave":
		return parseBool(value, &s.AutoSave)
	case "language", "lang":
		l, ok := ParseLanguage(value)
		if ok {
			s.Language = l
		}
		return ok
	}
	return false
}

func parseBool(value string, dst *bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "on", "yes", "1":
		*dst = true
	case "false", "off", "no", "0":
		*dst = false
	default:
		return false
	}
	return true
}

// =============================================================================
// THEME
// =============================================================================

// Theme selects the color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, true
	case ThemeDark:
		return ThemeDark, true
	}
	return "", false
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}
