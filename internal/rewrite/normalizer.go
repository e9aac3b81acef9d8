package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"WikiMover/internal/domain"
	"WikiMover/internal/markup"
	"WikiMover/internal/templates"
)

// Result describes what Normalize did to a document.
type Result struct {
	// Info is the description template, detached from the document. It is
	// a fresh empty template when the source had none.
	Info        *markup.Template
	Synthesized bool
	OwnWork     bool
	// Dropped lists canonical titles removed because the destination lacks them.
	Dropped  []string
	Stripped int
	// Skipped lists titles that could not be resolved and were left as written.
	Skipped []string
}

// SkippedErr joins one ErrRewriteSkipped per skipped title, or nil.
func (r Result) SkippedErr() error {
	errs := make([]error, 0, len(r.Skipped))
	for _, title := range r.Skipped {
		errs = append(errs, fmt.Errorf("%q: %w", title, domain.ErrRewriteSkipped))
	}
	return errors.Join(errs...)
}

// Normalizer rewrites template invocations through a shared registry.
type Normalizer struct {
	registry *templates.Registry
	logger   *slog.Logger
}

// NewNormalizer builds a normalizer. The registry is shared across candidates.
func NewNormalizer(registry *templates.Registry, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{registry: registry, logger: logger}
}

// Normalize canonicalizes every template title in doc, removes stripped and
// destination-missing templates, applies the registered rules children first
// and detaches the description template. It fails only when the existence
// query fails; doc is partially rewritten in that case.
func (n *Normalizer) Normalize(ctx context.Context, doc *markup.Document, env templates.Env) (Result, error) {
	var res Result
	names := n.canonicalize(doc, &res)

	for _, t := range doc.AllTemplates(true) {
		if c, ok := names[t]; ok && n.registry.IsStripped(c) && doc.Remove(t) {
			res.Stripped++
		}
	}

	if err := n.dropMissing(ctx, doc, names, &res); err != nil {
		return res, err
	}

	for _, t := range doc.PostOrder() {
		c, ok := names[t]
		if !ok {
			continue
		}
		if n.registry.IsOwnWork(c) {
			res.OwnWork = true
		}
		if rule, ok := n.registry.Resolve(c); ok {
			rule.Apply(t, env)
		}
	}

	for _, t := range doc.AllTemplates(true) {
		if c, ok := names[t]; ok && n.registry.IsInformation(c) {
			doc.Remove(t)
			res.Info = t
			break
		}
	}
	if res.Info == nil {
		res.Info = markup.NewTemplate(templates.InformationTitle)
		res.Synthesized = true
	}

	if err := res.SkippedErr(); err != nil {
		n.logger.Debug("templates left unresolved", "class", domain.Classify(err), "err", err)
	}
	return res, nil
}

// StripTriggers removes transfer request templates from a source page and
// reports how many were removed. Titles are matched, not rewritten.
func (n *Normalizer) StripTriggers(doc *markup.Document) int {
	removed := 0
	for _, t := range doc.AllTemplates(true) {
		name := t.Name()
		if !templates.Resolvable(name) || !n.registry.IsTrigger(n.registry.Canonical(name)) {
			continue
		}
		if doc.Remove(t) {
			removed++
		}
	}
	return removed
}

func (n *Normalizer) canonicalize(doc *markup.Document, res *Result) map[*markup.Template]string {
	names := map[*markup.Template]string{}
	for _, t := range doc.AllTemplates(true) {
		raw := t.Name()
		if !templates.Resolvable(raw) {
			res.Skipped = append(res.Skipped, raw)
			continue
		}
		canonical := n.registry.Canonical(raw)
		names[t] = canonical
		if canonical != raw {
			t.SetName(canonical)
		}
	}
	return names
}

func (n *Normalizer) dropMissing(ctx context.Context, doc *markup.Document, names map[*markup.Template]string, res *Result) error {
	var query []string
	seen := map[string]struct{}{}
	for _, t := range doc.AllTemplates(true) {
		c, ok := names[t]
		if !ok || n.registry.Protected(c) {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		query = append(query, c)
	}
	if len(query) == 0 {
		return nil
	}

	known, err := n.registry.Exists(ctx, query)
	if err != nil {
		return fmt.Errorf("filter templates: %w", err)
	}

	for _, t := range doc.AllTemplates(true) {
		c, ok := names[t]
		if !ok || n.registry.Protected(c) {
			continue
		}
		if exists, answered := known[c]; answered && !exists && doc.Remove(t) {
			res.Dropped = append(res.Dropped, c)
		}
	}
	return nil
}
