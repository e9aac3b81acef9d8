package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"WikiMover/internal/domain"
	"WikiMover/internal/markup"
	"WikiMover/internal/metrics"
	"WikiMover/internal/ports"
)

// CandidateRenderer fills a candidate's destination text.
type CandidateRenderer interface {
	Render(ctx context.Context, c *domain.Candidate) error
}

// TriggerStripper removes transfer request templates from a source page.
type TriggerStripper interface {
	StripTriggers(doc *markup.Document) int
}

// StageError records the stage a candidate failed in.
type StageError struct {
	Step domain.Step
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Tool identifies the run in edit summaries.
type Tool struct {
	Name          string
	Page          string
	Version       string
	SourceProject string
	Destination   string
	Interwiki     string
}

// Summaries hold the edit summaries and message formats used on both wikis.
type Summaries struct {
	Upload     string
	SourceEdit string
	// Notice is prepended to the source page; it takes the destination
	// title and the reviewing account.
	Notice string
	// DeleteReason takes the destination title.
	DeleteReason string
}

// NewSummaries builds the summaries for tool.
func NewSummaries(tool Tool) Summaries {
	return Summaries{
		Upload:       fmt.Sprintf("Transferred from %s ([[%s:%s|%s]]) (%s)", tool.SourceProject, tool.Interwiki, tool.Page, tool.Name, tool.Version),
		SourceEdit:   fmt.Sprintf("Transferred to %s ([[%s|%s]]) (%s)", tool.Destination, tool.Page, tool.Name, tool.Version),
		Notice:       "{{subst:ncd|%s|reviewer=%s}}\n",
		DeleteReason: "[[WP:CSD#F8|F8]]: Media file available on Commons: [[:%s]]",
	}
}

// Policy selects the optional behaviour of a run.
type Policy struct {
	DryRun bool
	// Delete removes the source page after a successful transfer.
	Delete        bool
	KeepDownloads bool
	// Concurrency bounds how many candidates run at once. Defaults to 1.
	Concurrency int
	Summaries   Summaries
}

// PipelineDeps wires all driven adapters into the transfer pipeline.
type PipelineDeps struct {
	Source      ports.SourceWiki
	Destination ports.DestinationWiki
	Fetcher     ports.AssetFetcher
	Renderer    CandidateRenderer
	Triggers    TriggerStripper
	Log         ports.TransferLog
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
}

// Pipeline moves candidates through render, download, upload, source edit
// and the optional delete.
type Pipeline struct {
	source   ports.SourceWiki
	dest     ports.DestinationWiki
	fetcher  ports.AssetFetcher
	renderer CandidateRenderer
	triggers TriggerStripper
	log      ports.TransferLog
	metrics  *metrics.Recorder
	logger   *slog.Logger
	policy   Policy
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, policy Policy) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if policy.Concurrency < 1 {
		policy.Concurrency = 1
	}
	return &Pipeline{
		source:   deps.Source,
		dest:     deps.Destination,
		fetcher:  deps.Fetcher,
		renderer: deps.Renderer,
		triggers: deps.Triggers,
		log:      deps.Log,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		policy:   policy,
	}
}

type stage struct {
	step    domain.Step
	reached domain.Stage
	run     func(context.Context, *domain.Candidate) error
}

func (p *Pipeline) stages() []stage {
	out := []stage{
		{domain.StepRender, domain.StageRendered, p.renderer.Render},
		{domain.StepDownload, domain.StageDownloaded, p.download},
		{domain.StepUpload, domain.StageUploaded, p.upload},
		{domain.StepSourceEdit, domain.StageSourceEdited, p.editSource},
	}
	if p.policy.Delete {
		out = append(out, stage{domain.StepDelete, domain.StageDeleted, p.deleteSource})
	}
	return out
}

// Transfer runs one candidate to completion. A failing stage stops the
// candidate; nothing after it is attempted.
func (p *Pipeline) Transfer(ctx context.Context, c *domain.Candidate) domain.TransferResult {
	started := time.Now()
	logger := p.logger.With("title", c.SourceTitle)
	res := domain.TransferResult{
		SourceTitle:      c.SourceTitle,
		DestinationTitle: c.DestinationTitle,
		State:            domain.StageCreated,
	}

	for _, st := range p.stages() {
		if err := st.run(ctx, c); err != nil {
			res.State = domain.StageFailed
			res.FailedAt = st.step
			res.Err = &StageError{Step: st.step, Err: err}
			logger.Error("transfer failed", "stage", st.step, "class", domain.Classify(err), "err", err)
			break
		}
		res.State = st.reached
		logger.Debug("stage complete", "stage", st.step)

		if st.step == domain.StepRender && p.policy.DryRun {
			res.DryRun = true
			res.Text = c.RenderedText
			break
		}
	}

	if res.State == domain.StageSourceEdited {
		res.State = domain.StageDone
	}
	res.NeedsReview = c.NeedsReview
	if !p.policy.KeepDownloads && c.LocalAssetPath != "" {
		if err := os.Remove(c.LocalAssetPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("remove download", "path", c.LocalAssetPath, "err", err)
		}
	}
	res.FinishedAt = time.Now().UTC()
	p.metrics.Observe(res, time.Since(started))

	if !res.Failed() && !res.DryRun {
		logger.Info("transferred", "destination", c.DestinationTitle, "state", res.State)
	}
	return res
}

func (p *Pipeline) download(ctx context.Context, c *domain.Candidate) error {
	rev, ok := c.CurrentRevision()
	if !ok || rev.AssetURL == "" {
		return fmt.Errorf("no asset url for %s", c.SourceTitle)
	}

	body, err := p.fetcher.Fetch(ctx, rev.AssetURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rev.AssetURL, err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(c.LocalAssetPath), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	f, err := os.Create(c.LocalAssetPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", c.LocalAssetPath, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", c.LocalAssetPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", c.LocalAssetPath, err)
	}
	return nil
}

func (p *Pipeline) upload(ctx context.Context, c *domain.Candidate) error {
	if err := p.dest.Upload(ctx, c.LocalAssetPath, c.DestinationTitle, c.RenderedText, p.policy.Summaries.Upload); err != nil {
		return fmt.Errorf("upload %s: %w", c.DestinationTitle, err)
	}
	return nil
}

func (p *Pipeline) editSource(ctx context.Context, c *domain.Candidate) error {
	text, err := p.source.PageText(ctx, c.SourceTitle)
	if err != nil {
		return fmt.Errorf("reload %s: %w", c.SourceTitle, err)
	}

	doc, perr := markup.Parse(text)
	if perr != nil {
		p.logger.Warn("source markup degraded", "title", c.SourceTitle, "err", perr)
	}
	if p.triggers != nil && p.triggers.StripTriggers(doc) == 0 {
		p.logger.Debug("no transfer request on source page", "title", c.SourceTitle)
	}

	notice := fmt.Sprintf(p.policy.Summaries.Notice, c.DestinationTitle, p.source.Username())
	if err := p.source.EditPage(ctx, c.SourceTitle, notice+doc.String(), p.policy.Summaries.SourceEdit); err != nil {
		return fmt.Errorf("edit %s: %w", c.SourceTitle, err)
	}
	return nil
}

func (p *Pipeline) deleteSource(ctx context.Context, c *domain.Candidate) error {
	reason := fmt.Sprintf(p.policy.Summaries.DeleteReason, c.DestinationTitle)
	if err := p.source.DeletePage(ctx, c.SourceTitle, reason); err != nil {
		return fmt.Errorf("delete %s: %w", c.SourceTitle, err)
	}
	return nil
}
