package geocode

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

const fallbackLocale = "en"

// Locale returns the Accept-Language value. A configured tag wins; otherwise
// the POSIX locale environment (LC_ALL, LC_MESSAGES, LANG) is used, falling
// back to "en".
func Locale(configured string) string {
	if tag, ok := parseTag(configured); ok {
		return tag
	}
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if tag, ok := parseTag(posixToBCP47(os.Getenv(env))); ok {
			return tag
		}
	}
	return fallbackLocale
}

func parseTag(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	tag, err := language.Parse(s)
	if err != nil || tag == language.Und {
		return "", false
	}
	return tag.String(), true
}

// posixToBCP47 turns "en_NZ.UTF-8@euro" into "en-NZ". C and POSIX carry no language.
func posixToBCP47(s string) string {
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "C" || s == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(s, "_", "-")
}
