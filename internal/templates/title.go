package templates

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const templateNamespace = "Template"

// NormalizeTitle turns a written template title into its lookup form:
// underscores become spaces, whitespace is collapsed, leading Template:
// prefixes are dropped and the first letter is upper-cased. The rest of the
// title keeps its case. Normalizing twice gives the same title.
func NormalizeTitle(title string) string {
	title = strings.Join(strings.Fields(strings.ReplaceAll(title, "_", " ")), " ")
	for {
		ns, rest, ok := strings.Cut(title, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(ns), templateNamespace) {
			break
		}
		title = strings.TrimSpace(rest)
	}
	return upperFirst(title)
}

// Resolvable reports whether a title names an ordinary template. Magic words
// (int:, subst:, #if: and so on), titles built from other templates and empty titles
// cannot be looked up and are left untouched.
func Resolvable(title string) bool {
	title = strings.TrimSpace(title)
	if title == "" || strings.ContainsAny(title, "{}[]|#<>") {
		return false
	}
	if ns, _, ok := strings.Cut(title, ":"); ok {
		return strings.EqualFold(strings.TrimSpace(strings.ReplaceAll(ns, "_", " ")), templateNamespace)
	}
	return true
}

// QualifiedTitle prefixes a normalized title with the template namespace.
func QualifiedTitle(title string) string {
	return templateNamespace + ":" + title
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
