package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"WikiMover/internal/describe"
	"WikiMover/internal/domain"
	"WikiMover/internal/markup"
	"WikiMover/internal/ports"
	"WikiMover/internal/rewrite"
	"WikiMover/internal/templates"
)

// Renderer produces a candidate's destination text from its source page.
type Renderer struct {
	source     ports.SourceWiki
	revisions  ports.RevisionSource
	normalizer *rewrite.Normalizer
	synth      *describe.Synthesizer
	logger     *slog.Logger
}

// NewRenderer wires a renderer. A nil revisions source falls back to source.
func NewRenderer(source ports.SourceWiki, revisions ports.RevisionSource, normalizer *rewrite.Normalizer, synth *describe.Synthesizer, logger *slog.Logger) *Renderer {
	if revisions == nil {
		revisions = source
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		source:     source,
		revisions:  revisions,
		normalizer: normalizer,
		synth:      synth,
		logger:     logger,
	}
}

// Render fills RenderedText, loading revisions first when the candidate has
// none. Markup that fails to parse cleanly still renders but flags the
// candidate for review.
func (r *Renderer) Render(ctx context.Context, c *domain.Candidate) error {
	if c.Rendered() {
		return nil
	}

	if len(c.Revisions) == 0 {
		revs, err := r.revisions.RevisionHistory(ctx, c.SourceTitle)
		if err != nil {
			return fmt.Errorf("load revisions %s: %w", c.SourceTitle, err)
		}
		c.Revisions = revs
	}
	if len(c.Revisions) == 0 {
		return fmt.Errorf("%s has no file revisions", c.SourceTitle)
	}

	text, err := r.source.PageText(ctx, c.SourceTitle)
	if err != nil {
		return fmt.Errorf("load page text %s: %w", c.SourceTitle, err)
	}

	doc, perr := markup.Parse(rewrite.Prepare(text))
	if perr != nil {
		if !errors.Is(perr, domain.ErrParseDegraded) {
			return fmt.Errorf("parse %s: %w", c.SourceTitle, perr)
		}
		c.NeedsReview = true
		r.logger.Warn("description markup degraded", "title", c.SourceTitle, "err", perr)
	}

	res, err := r.normalizer.Normalize(ctx, doc, templates.Env{
		CurrentUploader:  c.CurrentUploader(),
		OriginalUploader: c.OriginalUploader(),
	})
	if err != nil {
		return fmt.Errorf("normalize %s: %w", c.SourceTitle, err)
	}
	if res.OwnWork {
		c.OwnWork = true
	}
	if len(res.Dropped) > 0 {
		r.logger.Debug("dropped templates missing on destination", "title", c.SourceTitle, "templates", res.Dropped)
	}

	c.RenderedText = r.synth.Render(c, doc, res.Info)
	return nil
}
