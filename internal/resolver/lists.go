package resolver

import "strings"

// Lists decide which source categories make a file eligible for transfer.
type Lists struct {
	whitelist map[string]struct{}
	blacklist map[string]struct{}
}

// NewLists builds the category lists. Names are compared without the
// Category: prefix and with underscores as spaces.
func NewLists(whitelist, blacklist []string) Lists {
	return Lists{whitelist: categorySet(whitelist), blacklist: categorySet(blacklist)}
}

// Eligible reports whether a file with these categories may move: none may
// be blacklisted and at least one must be whitelisted.
func (l Lists) Eligible(categories []string) bool {
	allowed := false
	for _, cat := range categories {
		key := categoryKey(cat)
		if _, bad := l.blacklist[key]; bad {
			return false
		}
		if _, ok := l.whitelist[key]; ok {
			allowed = true
		}
	}
	return allowed
}

func categorySet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if key := categoryKey(name); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

func categoryKey(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if ns, rest, ok := strings.Cut(name, ":"); ok && strings.EqualFold(strings.TrimSpace(ns), "category") {
		name = strings.TrimSpace(rest)
	}
	return name
}
