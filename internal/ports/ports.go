package ports

import (
	"context"
	"io"
	"strings"

	"WikiMover/internal/domain"
)

// Namespace identifies a wiki namespace by its canonical prefix.
type Namespace string

const (
	NamespaceMain     Namespace = ""
	NamespaceUser     Namespace = "User"
	NamespaceFile     Namespace = "File"
	NamespaceTemplate Namespace = "Template"
	NamespaceCategory Namespace = "Category"
)

// NamespaceOf returns the known namespace title starts with, or NamespaceMain.
// Image: is read as File:.
func NamespaceOf(title string) Namespace {
	prefix, _, ok := strings.Cut(title, ":")
	if !ok {
		return NamespaceMain
	}
	prefix = strings.TrimSpace(prefix)
	for _, ns := range []Namespace{NamespaceUser, NamespaceFile, NamespaceTemplate, NamespaceCategory} {
		if strings.EqualFold(prefix, string(ns)) {
			return ns
		}
	}
	if strings.EqualFold(prefix, "Image") {
		return NamespaceFile
	}
	return NamespaceMain
}

// StripNamespace drops a known namespace prefix from title.
func StripNamespace(title string) string {
	if NamespaceOf(title) == NamespaceMain {
		return title
	}
	_, rest, _ := strings.Cut(title, ":")
	return strings.TrimSpace(rest)
}

// Qualify prefixes name with ns.
func (ns Namespace) Qualify(name string) string {
	if ns == NamespaceMain {
		return name
	}
	return string(ns) + ":" + name
}

// RevisionSource returns a file's upload history in the order the wiki reports it.
type RevisionSource interface {
	RevisionHistory(ctx context.Context, title string) ([]domain.RevisionRecord, error)
}

// SourceWiki is the project files are moved away from.
type SourceWiki interface {
	RevisionSource

	// Username is the account the run edits as.
	Username() string

	PageText(ctx context.Context, title string) (string, error)
	EditPage(ctx context.Context, title, text, summary string) error
	DeletePage(ctx context.Context, title, reason string) error

	CategoriesOf(ctx context.Context, titles []string) (map[string][]string, error)
	LinksOnPage(ctx context.Context, title string) ([]string, error)
	TransclusionsOf(ctx context.Context, title string, ns Namespace) ([]string, error)
	CategoryMembers(ctx context.Context, category string, ns Namespace) ([]string, error)
	UploadsByUser(ctx context.Context, user string) ([]string, error)
	RedirectsTo(ctx context.Context, title string) ([]string, error)

	// SharedDuplicatesOf lists, per title, byte-identical files already on the destination.
	SharedDuplicatesOf(ctx context.Context, titles []string) (map[string][]string, error)
}

// DestinationWiki is the project files are moved to.
type DestinationWiki interface {
	// Exists answers for every requested title in one round trip.
	Exists(ctx context.Context, titles []string) (map[string]bool, error)
	Upload(ctx context.Context, localPath, title, text, summary string) error
}

// AssetFetcher downloads file bytes over plain HTTP GET semantics.
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// TransferLog keeps an audit trail of finished candidates. It is write-mostly
// and never consulted when resolving candidates.
type TransferLog interface {
	SaveOutcome(ctx context.Context, runID string, result domain.TransferResult) error
	Outcomes(ctx context.Context, runID string) ([]domain.TransferResult, error)
	// History lists earlier outcomes for the given source titles, newest first.
	History(ctx context.Context, titles []string) ([]domain.TransferResult, error)
}
