package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"WikiMover/internal/config"
	"WikiMover/internal/describe"
	"WikiMover/internal/domain"
	"WikiMover/internal/infrastructure/download"
	"WikiMover/internal/infrastructure/filepage"
	"WikiMover/internal/infrastructure/snapshot"
	"WikiMover/internal/infrastructure/storage"
	"WikiMover/internal/logging"
	"WikiMover/internal/metrics"
	"WikiMover/internal/ports"
	"WikiMover/internal/resolver"
	"WikiMover/internal/rewrite"
	"WikiMover/internal/templates"
	"WikiMover/internal/usecase"
)

// ErrNoTransferLog is returned by report queries when no database is configured.
var ErrNoTransferLog = errors.New("transfer log not configured")

// Deps are the driven adapters the application runs against.
type Deps struct {
	Source      ports.SourceWiki
	Destination ports.DestinationWiki
	// Fetcher defaults to an HTTP fetcher built from the config.
	Fetcher ports.AssetFetcher
	// Revisions defaults to Source, or to a file page scraper when
	// source.historyBaseUrl is set.
	Revisions ports.RevisionSource
	Log       ports.TransferLog
}

// Application wires configs to use cases.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	source   ports.SourceWiki
	log      ports.TransferLog
	resolver *resolver.Resolver
	renderer *usecase.Renderer
	pipeline *usecase.Pipeline
	metrics  *prometheus.Registry

	closers []func() error
}

// Open builds the adapters named by cfg and wires the application on top.
// The snapshot wiki serves as both source and destination.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.New(cfg.Logging.Level)
	}
	if cfg.Snapshot.Path == "" {
		return nil, errors.New("no wiki configured: set snapshot.path or WIKIMOVER_SNAPSHOT")
	}

	wiki, err := snapshot.Load(cfg.Snapshot.Path)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", cfg.Snapshot.Path, err)
	}
	deps := Deps{Source: wiki, Destination: wiki}

	var closers []func() error
	if cfg.Snapshot.WriteBack {
		closers = append(closers, func() error { return wiki.Save(cfg.Snapshot.Path) })
	}

	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		repo := storage.NewPostgresRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate transfer log: %w", err)
		}
		deps.Log = repo
		closers = append(closers, db.Close)
	}

	a, err := New(ctx, cfg, deps, logger)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}
	a.closers = closers
	return a, nil
}

// New wires the application against deps. It reads the template redirect
// page and the category list pages from the source wiki once.
func New(ctx context.Context, cfg config.Config, deps Deps, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.New(cfg.Logging.Level)
	}
	if deps.Source == nil || deps.Destination == nil {
		return nil, errors.New("source and destination wikis are required")
	}

	registry, err := buildRegistry(ctx, cfg, deps, logger)
	if err != nil {
		return nil, err
	}

	lists, err := buildLists(ctx, cfg, deps.Source, logger)
	if err != nil {
		return nil, err
	}

	categories := append([]string(nil), cfg.Transfer.Categories...)
	if cfg.Transfer.CheckNeeded {
		categories = append(categories, cfg.CheckNeededCategory(deps.Source.Username()))
	}
	res := resolver.New(deps.Source, deps.Destination, lists, resolver.Options{
		Force:             cfg.Transfer.Force,
		MaxNameAttempts:   cfg.Transfer.MaxNameAttempts,
		DownloadDir:       cfg.Transfer.DownloadDir,
		OwnWorkCategories: cfg.Templates.OwnWorkCategories,
		Categories:        categories,
	}, logging.Component(logger, "resolver"))

	revisions := deps.Revisions
	if revisions == nil && cfg.Source.HistoryBaseURL != "" {
		scraper, err := filepage.NewHistoryScraper(&http.Client{Timeout: cfg.HTTP.Timeout}, cfg.Source.HistoryBaseURL)
		if err != nil {
			return nil, fmt.Errorf("history scraper: %w", err)
		}
		revisions = scraper
	}

	synthOpts := describe.Options{
		Interwiki:     cfg.Source.Interwiki,
		SourceProject: cfg.Source.Project,
	}
	if cfg.Transfer.Tracking {
		synthOpts.TrackingCategory = cfg.TrackingCategory()
	}
	normalizer := rewrite.NewNormalizer(registry, logging.Component(logger, "rewrite"))
	renderer := usecase.NewRenderer(deps.Source, revisions, normalizer, describe.NewSynthesizer(synthOpts), logging.Component(logger, "render"))

	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = download.NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent)
	}

	reg := prometheus.NewRegistry()
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:      deps.Source,
		Destination: deps.Destination,
		Fetcher:     fetcher,
		Renderer:    renderer,
		Triggers:    normalizer,
		Log:         deps.Log,
		Metrics:     metrics.NewRecorder(reg),
		Logger:      logging.Component(logger, "pipeline"),
	}, usecase.Policy{
		DryRun:        cfg.Transfer.DryRun,
		Delete:        cfg.Transfer.Delete,
		KeepDownloads: cfg.Transfer.KeepDownloads,
		Concurrency:   cfg.Transfer.Concurrency,
		Summaries: usecase.NewSummaries(usecase.Tool{
			Name:          cfg.Tool.Name,
			Page:          cfg.Tool.Page,
			Version:       cfg.Tool.Version,
			SourceProject: cfg.Source.Project,
			Destination:   cfg.Destination.Name,
			Interwiki:     cfg.Source.Interwiki,
		}),
	})

	return &Application{
		cfg:      cfg,
		logger:   logger,
		source:   deps.Source,
		log:      deps.Log,
		resolver: res,
		renderer: renderer,
		pipeline: pipeline,
		metrics:  reg,
	}, nil
}

// Transfer expands inputs into file titles, resolves them and runs the
// batch. Titles that never became candidates are reported alongside.
func (a *Application) Transfer(ctx context.Context, inputs []string, progress usecase.ProgressFunc) (domain.Report, error) {
	titles, err := a.resolver.Expand(ctx, inputs)
	if err != nil {
		return domain.Report{}, fmt.Errorf("expand inputs: %w", err)
	}
	a.logger.Info("inputs expanded", "inputs", len(inputs), "titles", len(titles))

	resolution, err := a.resolver.Resolve(ctx, titles)
	if err != nil {
		return domain.Report{}, fmt.Errorf("resolve candidates: %w", err)
	}
	for title, dupes := range resolution.Duplicates {
		a.logger.Info("already on destination", "title", title, "duplicates", dupes)
	}
	for _, title := range resolution.Ineligible {
		a.logger.Info("not eligible", "title", title)
	}

	report, err := a.pipeline.RunBatch(ctx, resolution.Candidates, progress)
	report.Duplicates = resolution.Duplicates
	report.Ineligible = resolution.Ineligible
	report.Total += len(resolution.Failures)
	for _, failure := range resolution.Failures {
		report.Results = append(report.Results, failure)
		report.Failed = append(report.Failed, failure.SourceTitle)
	}
	return report, err
}

// Render previews the destination text of one file without touching either wiki.
func (a *Application) Render(ctx context.Context, title string) (string, error) {
	c, err := a.resolver.Candidate(ctx, title)
	if err != nil {
		return "", err
	}
	if err := a.renderer.Render(ctx, c); err != nil {
		return "", fmt.Errorf("render %s: %w", title, err)
	}
	if c.NeedsReview {
		a.logger.Warn("description rendered from degraded markup", "title", title)
	}
	return c.RenderedText, nil
}

// Outcomes lists the logged results of a run.
func (a *Application) Outcomes(ctx context.Context, runID string) ([]domain.TransferResult, error) {
	if a.log == nil {
		return nil, ErrNoTransferLog
	}
	return a.log.Outcomes(ctx, runID)
}

// History lists earlier logged results for source titles.
func (a *Application) History(ctx context.Context, titles []string) ([]domain.TransferResult, error) {
	if a.log == nil {
		return nil, ErrNoTransferLog
	}
	return a.log.History(ctx, titles)
}

// Metrics is the registry holding this application's run metrics.
func (a *Application) Metrics() *prometheus.Registry {
	return a.metrics
}

// Close flushes the snapshot when write-back is on and closes the database.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildRegistry(ctx context.Context, cfg config.Config, deps Deps, logger *slog.Logger) (*templates.Registry, error) {
	redirects := templates.NewRedirectMap(nil)
	if page := cfg.Templates.RedirectsPage; page != "" {
		text, err := deps.Source.PageText(ctx, page)
		switch {
		case err == nil:
			redirects = templates.ParseRedirectPage(text)
		case errors.Is(err, snapshot.ErrPageNotFound):
			logger.Warn("template redirect page missing", "page", page)
		default:
			return nil, fmt.Errorf("load redirects %s: %w", page, err)
		}
	}

	registry := templates.NewRegistry(redirects, templates.NewExistenceCache(deps.Destination))
	for _, rule := range templates.DefaultRules(templates.Project{Interwiki: cfg.Source.Interwiki, Lang: cfg.Source.Lang}) {
		registry.Register(rule)
	}
	registry.MarkOwnWork(cfg.Templates.OwnWork...)
	registry.MarkStripped(cfg.Templates.Stripped...)

	if trigger := cfg.Templates.Trigger; trigger != "" {
		registry.MarkTrigger(trigger)
		aliases, err := deps.Source.RedirectsTo(ctx, ports.NamespaceTemplate.Qualify(trigger))
		if err != nil {
			return nil, fmt.Errorf("load trigger redirects: %w", err)
		}
		registry.MarkTrigger(aliases...)
	}

	logger.Debug("template registry ready", "redirects", redirects.Len())
	return registry, nil
}

func buildLists(ctx context.Context, cfg config.Config, source ports.SourceWiki, logger *slog.Logger) (resolver.Lists, error) {
	white, err := listPage(ctx, source, cfg.Lists.WhitelistPage, logger)
	if err != nil {
		return resolver.Lists{}, err
	}
	black, err := listPage(ctx, source, cfg.Lists.BlacklistPage, logger)
	if err != nil {
		return resolver.Lists{}, err
	}
	return resolver.NewLists(
		append(append([]string(nil), cfg.Lists.Whitelist...), white...),
		append(append([]string(nil), cfg.Lists.Blacklist...), black...),
	), nil
}

// listPage returns the category links on page. A missing page is an empty list.
func listPage(ctx context.Context, source ports.SourceWiki, page string, logger *slog.Logger) ([]string, error) {
	if page == "" {
		return nil, nil
	}
	links, err := source.LinksOnPage(ctx, page)
	if errors.Is(err, snapshot.ErrPageNotFound) {
		logger.Warn("category list page missing", "page", page)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load list %s: %w", page, err)
	}
	var out []string
	for _, link := range links {
		if ports.NamespaceOf(link) == ports.NamespaceCategory {
			out = append(out, link)
		}
	}
	return out, nil
}

