package store

import "context"

// Default preference values.
const (
	DefaultTheme    = "light"
	DefaultLanguage = "en"
)

// Preferences persists the theme and language choices. Values are stored
// as plain strings under ThemeKey and SelectedLanguageKey.
type Preferences struct {
	kv KV
}

// NewPreferences returns a Preferences backed by kv.
func NewPreferences(kv KV) *Preferences {
	return &Preferences{kv: kv}
}

// Theme returns the stored theme or DefaultTheme.
func (p *Preferences) Theme(ctx context.Context) (string, error) {
	return p.get(ctx, ThemeKey, DefaultTheme)
}

// SetTheme stores the theme name.
func (p *Preferences) SetTheme(ctx context.Context, theme string) error {
	return p.kv.Set(ctx, ThemeKey, theme)
}

// Language returns the stored language or DefaultLanguage.
func (p *Preferences) Language(ctx context.Context) (string, error) {
	return p.get(ctx, SelectedLanguageKey, DefaultLanguage)
}

// SetLanguage stores the language code.
func (p *Preferences) SetLanguage(ctx context.Context, lang string) error {
	return p.kv.Set(ctx, SelectedLanguageKey, lang)
}

func (p *Preferences) get(ctx context.Context, key, def string) (string, error) {
	v, ok, err := p.kv.Get(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok || v == "" {
		return def, nil
	}
	return v, nil
}
