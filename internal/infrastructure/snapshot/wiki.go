// Package snapshot serves both wikis from a YAML file so runs can be
// rehearsed and tested without a network connection.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"WikiMover/internal/domain"
	"WikiMover/internal/ports"
)

// ErrPageNotFound is returned for titles absent from the snapshot.
var ErrPageNotFound = errors.New("page not found")

// Revision is one uploaded version of a file page.
type Revision struct {
	Timestamp time.Time `yaml:"timestamp"`
	Width     int       `yaml:"width"`
	Height    int       `yaml:"height"`
	User      string    `yaml:"user"`
	Comment   string    `yaml:"comment,omitempty"`
	URL       string    `yaml:"url,omitempty"`
}

// Page is a source wiki page.
type Page struct {
	Text       string     `yaml:"text"`
	Categories []string   `yaml:"categories,omitempty"`
	Links      []string   `yaml:"links,omitempty"`
	Templates  []string   `yaml:"templates,omitempty"`
	Duplicates []string   `yaml:"duplicates,omitempty"`
	Redirect   string     `yaml:"redirect,omitempty"`
	Revisions  []Revision `yaml:"revisions,omitempty"`
}

// Upload records a file written to the destination.
type Upload struct {
	Title     string `yaml:"title"`
	Text      string `yaml:"text"`
	Summary   string `yaml:"summary"`
	LocalPath string `yaml:"local_path"`
	Size      int64  `yaml:"size"`
}

// Edit records a source page change.
type Edit struct {
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
}

// State is the YAML document.
type State struct {
	User string `yaml:"user"`
	// ReadOnly makes every write fail as unauthorized.
	ReadOnly    bool             `yaml:"read_only,omitempty"`
	Source      map[string]*Page `yaml:"source"`
	Destination []string         `yaml:"destination"`
	Uploads     []Upload         `yaml:"uploads,omitempty"`
	Edits       []Edit           `yaml:"edits,omitempty"`
	Deleted     []string         `yaml:"deleted,omitempty"`
}

// Wiki is an in-memory source and destination wiki.
type Wiki struct {
	mu    sync.Mutex
	state State
}

var (
	_ ports.SourceWiki      = (*Wiki)(nil)
	_ ports.DestinationWiki = (*Wiki)(nil)
)

// New wraps state.
func New(state State) *Wiki {
	if state.Source == nil {
		state.Source = map[string]*Page{}
	}
	return &Wiki{state: state}
}

// Decode reads a snapshot document.
func Decode(r io.Reader) (*Wiki, error) {
	var state State
	if err := yaml.NewDecoder(r).Decode(&state); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return New(state), nil
}

// Load reads a snapshot file.
func Load(path string) (*Wiki, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Save writes the current state, including recorded writes, to path.
func (w *Wiki) Save(path string) error {
	w.mu.Lock()
	data, err := yaml.Marshal(&w.state)
	w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the recorded writes.
func (w *Wiki) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.state
	out.Destination = slices.Clone(w.state.Destination)
	out.Uploads = slices.Clone(w.state.Uploads)
	out.Edits = slices.Clone(w.state.Edits)
	out.Deleted = slices.Clone(w.state.Deleted)
	return out
}

func (w *Wiki) Username() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.User
}

func (w *Wiki) PageText(_ context.Context, title string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	page, err := w.page(title)
	if err != nil {
		return "", err
	}
	return page.Text, nil
}

func (w *Wiki) RevisionHistory(_ context.Context, title string) ([]domain.RevisionRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	page, err := w.page(title)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RevisionRecord, 0, len(page.Revisions))
	for _, rev := range page.Revisions {
		out = append(out, domain.RevisionRecord{
			Timestamp: rev.Timestamp,
			Width:     rev.Width,
			Height:    rev.Height,
			Uploader:  rev.User,
			Comment:   rev.Comment,
			AssetURL:  rev.URL,
		})
	}
	return out, nil
}

func (w *Wiki) EditPage(_ context.Context, title, text, summary string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writable(); err != nil {
		return err
	}
	page, err := w.page(title)
	if err != nil {
		return err
	}
	page.Text = text
	w.state.Edits = append(w.state.Edits, Edit{Title: title, Summary: summary})
	return nil
}

func (w *Wiki) DeletePage(_ context.Context, title, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writable(); err != nil {
		return err
	}
	if _, err := w.page(title); err != nil {
		return err
	}
	delete(w.state.Source, title)
	w.state.Deleted = append(w.state.Deleted, title)
	return nil
}

func (w *Wiki) CategoriesOf(_ context.Context, titles []string) (map[string][]string, error) {
	return w.collect(titles, func(p *Page) []string { return p.Categories }), nil
}

func (w *Wiki) SharedDuplicatesOf(_ context.Context, titles []string) (map[string][]string, error) {
	return w.collect(titles, func(p *Page) []string { return p.Duplicates }), nil
}

func (w *Wiki) LinksOnPage(_ context.Context, title string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	page, err := w.page(title)
	if err != nil {
		return nil, err
	}
	return slices.Clone(page.Links), nil
}

func (w *Wiki) TransclusionsOf(_ context.Context, title string, ns ports.Namespace) ([]string, error) {
	want := ports.StripNamespace(title)
	return w.filter(ns, func(p *Page) bool {
		return slices.ContainsFunc(p.Templates, func(t string) bool {
			return strings.EqualFold(ports.StripNamespace(t), want)
		})
	}), nil
}

func (w *Wiki) CategoryMembers(_ context.Context, category string, ns ports.Namespace) ([]string, error) {
	want := ports.StripNamespace(category)
	return w.filter(ns, func(p *Page) bool {
		return slices.ContainsFunc(p.Categories, func(c string) bool {
			return strings.EqualFold(ports.StripNamespace(c), want)
		})
	}), nil
}

func (w *Wiki) UploadsByUser(_ context.Context, user string) ([]string, error) {
	return w.filter(ports.NamespaceFile, func(p *Page) bool {
		return slices.ContainsFunc(p.Revisions, func(r Revision) bool { return r.User == user })
	}), nil
}

func (w *Wiki) RedirectsTo(_ context.Context, title string) ([]string, error) {
	return w.filter(ports.NamespaceMain, func(p *Page) bool { return p.Redirect == title }), nil
}

// Exists reports destination titles, case-sensitively.
func (w *Wiki) Exists(_ context.Context, titles []string) (map[string]bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]bool, len(titles))
	for _, title := range titles {
		out[title] = slices.Contains(w.state.Destination, title)
	}
	return out, nil
}

// Upload records the file at localPath under title.
func (w *Wiki) Upload(_ context.Context, localPath, title, text, summary string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stat upload %s: %w", localPath, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writable(); err != nil {
		return err
	}
	if slices.Contains(w.state.Destination, title) {
		return fmt.Errorf("upload %s: destination page exists", title)
	}
	w.state.Destination = append(w.state.Destination, title)
	w.state.Uploads = append(w.state.Uploads, Upload{
		Title:     title,
		Text:      text,
		Summary:   summary,
		LocalPath: localPath,
		Size:      info.Size(),
	})
	return nil
}

func (w *Wiki) page(title string) (*Page, error) {
	page, ok := w.state.Source[title]
	if !ok || page == nil {
		return nil, fmt.Errorf("%s: %w", title, ErrPageNotFound)
	}
	return page, nil
}

func (w *Wiki) writable() error {
	if w.state.ReadOnly {
		return fmt.Errorf("snapshot is read-only: %w", domain.ErrUnauthorized)
	}
	return nil
}

func (w *Wiki) collect(titles []string, field func(*Page) []string) map[string][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string][]string, len(titles))
	for _, title := range titles {
		if page, ok := w.state.Source[title]; ok && page != nil {
			if values := field(page); len(values) > 0 {
				out[title] = slices.Clone(values)
			}
		}
	}
	return out
}

// filter lists matching source titles in ns, sorted. NamespaceMain matches any title.
func (w *Wiki) filter(ns ports.Namespace, match func(*Page) bool) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for title, page := range w.state.Source {
		if page == nil || (ns != ports.NamespaceMain && ports.NamespaceOf(title) != ns) {
			continue
		}
		if match(page) {
			out = append(out, title)
		}
	}
	slices.Sort(out)
	return out
}
