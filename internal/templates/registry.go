// Package templates holds everything known about template titles: alias
// resolution, destination existence and the rewrite rules for license and
// authorship templates that change meaning when a file moves wikis.
package templates

import (
	"context"

	"WikiMover/internal/markup"
)

// Env carries the per-candidate facts rules may need.
type Env struct {
	// CurrentUploader uploaded the newest revision.
	CurrentUploader string
	// OriginalUploader uploaded the oldest revision.
	OriginalUploader string
}

// Rule rewrites one canonical template in place.
type Rule interface {
	Title() string
	Apply(t *markup.Template, env Env)
}

// Registry keeps the canonical-title lookups shared by every candidate of a run.
// Rules and title sets are registered during setup and only read afterwards.
type Registry struct {
	redirects *RedirectMap
	exists    *ExistenceCache
	rules     map[string]Rule
	ownWork   map[string]struct{}
	triggers  map[string]struct{}
	stripped  map[string]struct{}
	info      string
}

// InformationTitle is the canonical structured-description template.
const InformationTitle = "Information"

// NewRegistry builds a registry over redirects and exists. Either may be nil.
func NewRegistry(redirects *RedirectMap, exists *ExistenceCache) *Registry {
	if exists == nil {
		exists = NewExistenceCache(nil)
	}
	return &Registry{
		redirects: redirects,
		exists:    exists,
		rules:     map[string]Rule{},
		ownWork:   map[string]struct{}{},
		triggers:  map[string]struct{}{},
		stripped:  map[string]struct{}{},
		info:      InformationTitle,
	}
}

// Register adds or replaces a rule under its canonical title.
func (r *Registry) Register(rule Rule) {
	if r.rules == nil {
		r.rules = map[string]Rule{}
	}
	r.rules[r.Canonical(rule.Title())] = rule
}

// Resolve returns the rule for a canonical title.
func (r *Registry) Resolve(canonical string) (Rule, bool) {
	rule, ok := r.rules[canonical]
	return rule, ok
}

// Canonical resolves a written title through the redirect map.
func (r *Registry) Canonical(title string) string {
	return r.redirects.Canonical(title)
}

// Exists consults the shared existence cache.
func (r *Registry) Exists(ctx context.Context, canonical []string) (map[string]bool, error) {
	return r.exists.Exists(ctx, canonical)
}

// MarkOwnWork registers templates whose presence means the uploader is the author.
func (r *Registry) MarkOwnWork(titles ...string) { r.mark(r.ownWork, titles) }

// MarkTrigger registers the transfer request template and its aliases.
func (r *Registry) MarkTrigger(titles ...string) { r.mark(r.triggers, titles) }

// MarkStripped registers templates that never survive rendering.
func (r *Registry) MarkStripped(titles ...string) { r.mark(r.stripped, titles) }

// IsOwnWork reports whether canonical is a self-work indicator.
func (r *Registry) IsOwnWork(canonical string) bool { return has(r.ownWork, canonical) }

// IsTrigger reports whether canonical requests a transfer.
func (r *Registry) IsTrigger(canonical string) bool { return has(r.triggers, canonical) }

// IsStripped reports whether canonical is dropped from rendered text.
func (r *Registry) IsStripped(canonical string) bool {
	return has(r.stripped, canonical) || has(r.triggers, canonical)
}

// IsInformation reports whether canonical is the description template.
func (r *Registry) IsInformation(canonical string) bool { return canonical == r.info }

// Protected templates are kept even when the destination lacks them.
func (r *Registry) Protected(canonical string) bool {
	return r.IsInformation(canonical) || r.IsOwnWork(canonical)
}

func (r *Registry) mark(set map[string]struct{}, titles []string) {
	for _, title := range titles {
		if c := r.Canonical(title); c != "" {
			set[c] = struct{}{}
		}
	}
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
