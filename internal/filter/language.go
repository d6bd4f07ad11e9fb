package filter

import (
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// defaultLanguage is assumed when the description is too short or ambiguous
// for detection.
const defaultLanguage = "en"

// DetectLanguage returns the ISO 639-1 code of text, or "en" when the
// language cannot be determined reliably.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return defaultLanguage
	}
	info := whatlanggo.Detect(text)
	if info.Lang == -1 || !info.IsReliable() {
		return defaultLanguage
	}
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	return defaultLanguage
}

// normalizeLanguages maps configured names ("en", "EN", "en-US", "deu") to
// their base ISO 639-1 code.
func normalizeLanguages(in []string) (map[string]bool, error) {
	out := make(map[string]bool, len(in))
	for _, raw := range in {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		tag, err := language.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", raw, err)
		}
		base, _ := tag.Base()
		out[base.String()] = true
	}
	return out, nil
}
