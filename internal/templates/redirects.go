package templates

import "strings"

// RedirectMap resolves template aliases to their canonical titles.
type RedirectMap struct {
	aliases map[string]string
}

// NewRedirectMap builds a map from alias to canonical pairs. Both sides are
// normalized with NormalizeTitle.
func NewRedirectMap(pairs map[string]string) *RedirectMap {
	m := &RedirectMap{aliases: make(map[string]string, len(pairs))}
	for alias, canonical := range pairs {
		m.Add(alias, canonical)
	}
	return m
}

// ParseRedirectPage reads a configuration page in which every line lists a
// canonical title followed by its aliases, separated by pipes. Lines that are
// empty or start with markup ("<") are ignored.
func ParseRedirectPage(text string) *RedirectMap {
	m := &RedirectMap{aliases: map[string]string{}}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "<") {
			continue
		}
		parts := strings.Split(line, "|")
		canonical := parts[0]
		for _, alias := range parts {
			m.Add(alias, canonical)
		}
	}
	return m
}

// Add registers one alias. Self mappings are stored so that canonical titles
// are known to the map but never create chains.
func (m *RedirectMap) Add(alias, canonical string) {
	alias, canonical = NormalizeTitle(alias), NormalizeTitle(canonical)
	if alias == "" || canonical == "" {
		return
	}
	if m.aliases == nil {
		m.aliases = map[string]string{}
	}
	m.aliases[alias] = canonical
}

// Len reports the number of known titles.
func (m *RedirectMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.aliases)
}

// Canonical normalizes title and follows alias chains to their end. Cycles
// stop at the first repeated title. Unknown titles come back normalized.
func (m *RedirectMap) Canonical(title string) string {
	current := NormalizeTitle(title)
	if m == nil {
		return current
	}
	seen := map[string]struct{}{}
	for {
		next, ok := m.aliases[current]
		if !ok || next == current {
			return current
		}
		if _, loop := seen[current]; loop {
			return current
		}
		seen[current] = struct{}{}
		current = next
	}
}
