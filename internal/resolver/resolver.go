// Package resolver turns requested file titles into transfer candidates:
// files already on the destination are set aside, category lists decide
// eligibility and taken destination names are permuted until free.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"WikiMover/internal/domain"
	"WikiMover/internal/ports"
)

const defaultNameAttempts = 25

// Options tune candidate resolution.
type Options struct {
	// Force skips the category eligibility check.
	Force bool
	// MaxNameAttempts bounds destination name permutation. Defaults to 25.
	MaxNameAttempts int
	DownloadDir     string
	// OwnWorkCategories mark a file as its uploader's own work.
	OwnWorkCategories []string
	// Categories are added to every candidate's destination page.
	Categories []string
	// Rand yields the number inserted into permuted names.
	Rand func() int
}

// Resolution splits the requested titles by outcome.
type Resolution struct {
	Candidates []*domain.Candidate
	// Duplicates maps titles to identical files already on the destination.
	Duplicates map[string][]string
	Ineligible []string
	Failures   []domain.TransferResult
}

// Resolver builds candidates against a source and a destination wiki.
type Resolver struct {
	source  ports.SourceWiki
	dest    ports.DestinationWiki
	lists   Lists
	opts    Options
	ownWork map[string]struct{}
	logger  *slog.Logger
}

// New wires a resolver.
func New(source ports.SourceWiki, dest ports.DestinationWiki, lists Lists, opts Options, logger *slog.Logger) *Resolver {
	if opts.MaxNameAttempts <= 0 {
		opts.MaxNameAttempts = defaultNameAttempts
	}
	if opts.Rand == nil {
		opts.Rand = func() int { return rand.IntN(1000) }
	}
	return &Resolver{
		source:  source,
		dest:    dest,
		lists:   lists,
		opts:    opts,
		ownWork: categorySet(opts.OwnWorkCategories),
		logger:  logger,
	}
}

// Resolve filters titles and builds candidates for the remaining ones.
// Errors from the batched queries abort resolution; a title whose
// destination name cannot be settled only lands in Failures.
func (r *Resolver) Resolve(ctx context.Context, titles []string) (Resolution, error) {
	res := Resolution{Duplicates: map[string][]string{}}
	if len(titles) == 0 {
		return res, nil
	}

	dupes, err := r.source.SharedDuplicatesOf(ctx, titles)
	if err != nil {
		return res, fmt.Errorf("find duplicates: %w", err)
	}
	remaining := make([]string, 0, len(titles))
	for _, title := range titles {
		if found := dupes[title]; len(found) > 0 {
			res.Duplicates[title] = found
			continue
		}
		remaining = append(remaining, title)
	}
	if len(remaining) == 0 {
		return res, nil
	}

	cats, err := r.source.CategoriesOf(ctx, remaining)
	if err != nil {
		return res, fmt.Errorf("load categories: %w", err)
	}
	eligible := make([]string, 0, len(remaining))
	for _, title := range remaining {
		if !r.opts.Force && !r.lists.Eligible(cats[title]) {
			res.Ineligible = append(res.Ineligible, title)
			continue
		}
		eligible = append(eligible, title)
	}
	if len(eligible) == 0 {
		return res, nil
	}

	taken, err := r.dest.Exists(ctx, eligible)
	if err != nil {
		return res, fmt.Errorf("check destination names: %w", err)
	}

	for _, title := range eligible {
		dest := title
		if taken[title] {
			dest, err = r.freeName(ctx, title)
			if err != nil {
				r.debug("destination name unresolved", "title", title, "err", err)
				res.Failures = append(res.Failures, domain.TransferResult{
					SourceTitle: title,
					State:       domain.StageFailed,
					FailedAt:    domain.StepResolve,
					Err:         err,
					FinishedAt:  time.Now().UTC(),
				})
				continue
			}
		}
		res.Candidates = append(res.Candidates, r.candidate(title, dest, cats[title]))
	}

	r.debug("resolved candidates",
		"requested", len(titles),
		"candidates", len(res.Candidates),
		"duplicates", len(res.Duplicates),
		"ineligible", len(res.Ineligible),
		"failures", len(res.Failures),
	)
	return res, nil
}

// ResolveDestinationName returns title when it is free on the destination,
// or a permutation of it. It gives up after MaxNameAttempts permutations.
func (r *Resolver) ResolveDestinationName(ctx context.Context, title string) (string, error) {
	taken, err := r.dest.Exists(ctx, []string{title})
	if err != nil {
		return "", fmt.Errorf("check destination name %s: %w", title, err)
	}
	if !taken[title] {
		return title, nil
	}
	return r.freeName(ctx, title)
}

func (r *Resolver) freeName(ctx context.Context, title string) (string, error) {
	for attempt := 0; attempt < r.opts.MaxNameAttempts; attempt++ {
		name := Permute(title, r.opts.Rand())
		taken, err := r.dest.Exists(ctx, []string{name})
		if err != nil {
			return "", fmt.Errorf("check destination name %s: %w", name, err)
		}
		if !taken[name] {
			return name, nil
		}
	}
	return "", fmt.Errorf("%s after %d attempts: %w", title, r.opts.MaxNameAttempts, domain.ErrNameResolutionExhausted)
}

// Candidate builds a candidate for title without eligibility or destination
// checks. It is used to preview a single description.
func (r *Resolver) Candidate(ctx context.Context, title string) (*domain.Candidate, error) {
	cats, err := r.source.CategoriesOf(ctx, []string{title})
	if err != nil {
		return nil, fmt.Errorf("load categories %s: %w", title, err)
	}
	return r.candidate(title, title, cats[title]), nil
}

func (r *Resolver) candidate(title, dest string, cats []string) *domain.Candidate {
	c := &domain.Candidate{
		SourceTitle:      title,
		DestinationTitle: dest,
		LocalAssetPath:   LocalAssetPath(r.opts.DownloadDir, title),
		SourceCategories: cats,
	}
	c.AddCategories(r.opts.Categories...)
	for _, cat := range cats {
		if _, ok := r.ownWork[categoryKey(cat)]; ok {
			c.OwnWork = true
		}
	}
	return c
}

func (r *Resolver) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
