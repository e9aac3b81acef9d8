package domain

import "time"

// RevisionRecord describes one uploaded version of a file.
type RevisionRecord struct {
	Timestamp time.Time
	Width     int
	Height    int
	Uploader  string
	Comment   string
	AssetURL  string
}

// Candidate is a source file queued for transfer together with its resolved
// destination name and the metadata accumulated while rendering.
type Candidate struct {
	SourceTitle      string
	DestinationTitle string
	LocalAssetPath   string

	// Categories are applied to the destination page.
	Categories []string
	// SourceCategories are the categories found on the source page.
	SourceCategories []string

	OwnWork   bool
	Revisions []RevisionRecord

	// RenderedText is empty until the render stage has run.
	RenderedText string
	// NeedsReview is set when the source markup could not be parsed cleanly.
	NeedsReview bool
}

// Rendered reports whether the destination text has been produced.
func (c *Candidate) Rendered() bool {
	return c.RenderedText != ""
}

// AddCategories appends destination categories, skipping ones already present.
func (c *Candidate) AddCategories(cats ...string) {
	for _, cat := range cats {
		if cat == "" || containsString(c.Categories, cat) {
			continue
		}
		c.Categories = append(c.Categories, cat)
	}
}

// CurrentRevision returns the most recent revision by timestamp. Ties keep the
// later entry in the received order.
func (c *Candidate) CurrentRevision() (RevisionRecord, bool) {
	if len(c.Revisions) == 0 {
		return RevisionRecord{}, false
	}
	best := c.Revisions[0]
	for _, rev := range c.Revisions[1:] {
		if !rev.Timestamp.Before(best.Timestamp) {
			best = rev
		}
	}
	return best, true
}

// OriginalRevision returns the earliest revision by timestamp. Ties keep the
// first entry in the received order.
func (c *Candidate) OriginalRevision() (RevisionRecord, bool) {
	if len(c.Revisions) == 0 {
		return RevisionRecord{}, false
	}
	best := c.Revisions[0]
	for _, rev := range c.Revisions[1:] {
		if rev.Timestamp.Before(best.Timestamp) {
			best = rev
		}
	}
	return best, true
}

// CurrentUploader is the uploader of the most recent revision.
func (c *Candidate) CurrentUploader() string {
	rev, _ := c.CurrentRevision()
	return rev.Uploader
}

// OriginalUploader is the uploader of the earliest revision.
func (c *Candidate) OriginalUploader() string {
	rev, _ := c.OriginalRevision()
	return rev.Uploader
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
