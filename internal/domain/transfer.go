package domain

import "time"

// Stage enumerates the transfer state machine milestones.
type Stage string

const (
	StageCreated      Stage = "created"
	StageRendered     Stage = "rendered"
	StageDownloaded   Stage = "downloaded"
	StageUploaded     Stage = "uploaded"
	StageSourceEdited Stage = "source_edited"
	StageDeleted      Stage = "deleted"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Step names the stage a candidate was attempting when it failed.
type Step string

const (
	StepResolve    Step = "resolve"
	StepRender     Step = "render"
	StepDownload   Step = "download"
	StepUpload     Step = "upload"
	StepSourceEdit Step = "source_edit"
	StepDelete     Step = "delete"
)

// TransferResult is the outcome of one candidate's pass through the pipeline.
type TransferResult struct {
	SourceTitle      string
	DestinationTitle string
	State            Stage
	// FailedAt is set only when State is StageFailed.
	FailedAt Step
	Err      error
	// Text holds the rendered page; populated for dry runs.
	Text        string
	DryRun      bool
	NeedsReview bool
	FinishedAt  time.Time
}

// Failed reports whether the candidate stopped in the failure state.
func (r TransferResult) Failed() bool {
	return r.State == StageFailed
}

// Report summarises a batch run for the caller.
type Report struct {
	RunID      string
	Attempted  int
	Total      int
	Failed     []string
	Results    []TransferResult
	// Duplicates maps titles to identical files already on the destination.
	Duplicates map[string][]string
	Ineligible []string
}
