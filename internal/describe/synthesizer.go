// Package describe assembles the destination description page of a candidate.
package describe

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"WikiMover/internal/domain"
	"WikiMover/internal/markup"
)

const (
	summaryHeader = "== {{int:filedesc}} ==\n"
	licenseHeader = "\n== {{int:license-header}} ==\n"
	infoFormat    = "{{Information\n|description=%s\n|source=%s\n|date=%s\n|author=%s\n|permission=%s\n|other_versions=%s\n}}\n"
	logHeader     = "\n== {{Original upload log}} ==\n{{Original file page|%s|%s}}\n"
	logTableStart = "{| class=\"wikitable\"\n! {{int:filehist-datetime}} !! {{int:filehist-dimensions}} !! {{int:filehist-user}} !! {{int:filehist-comment}}"
	logRow        = "\n|-\n| %s || %d × %d || [[%s:User:%s|%s]] || ''<nowiki>%s</nowiki>''"
	logTableEnd   = "\n|}\n"
	logTimeLayout = "2006-01-02 15:04:05"
)

var (
	categoryExpr = regexp.MustCompile(`(?i)\n?\[\[\s*Category\s*:.*?\]\]`)
	blankExpr    = regexp.MustCompile(`\n{3,}`)
	spaceExpr    = regexp.MustCompile(`\s+`)
)

// Options configure the project-specific pieces of the output.
type Options struct {
	// Interwiki prefixes links so they keep pointing at the source wiki.
	Interwiki string
	// SourceProject identifies the source wiki in the upload log header.
	SourceProject string
	OwnWorkSource string
	Uncategorized string
	// TrackingCategory, when set, is added to every rendered page.
	TrackingCategory string
}

// DefaultOptions match an English Wikipedia to Commons transfer.
func DefaultOptions() Options {
	return Options{
		Interwiki:     "w",
		SourceProject: "en.wikipedia",
		OwnWorkSource: "{{Own work by original uploader}}",
		Uncategorized: "{{Subst:Unc}}",
	}
}

// Synthesizer renders the final description text.
type Synthesizer struct {
	opts    Options
	doubled *regexp.Regexp
}

// NewSynthesizer builds a synthesizer. Empty options fall back to DefaultOptions.
func NewSynthesizer(opts Options) *Synthesizer {
	def := DefaultOptions()
	if opts.Interwiki == "" {
		opts.Interwiki = def.Interwiki
	}
	if opts.SourceProject == "" {
		opts.SourceProject = def.SourceProject
	}
	if opts.OwnWorkSource == "" {
		opts.OwnWorkSource = def.OwnWorkSource
	}
	if opts.Uncategorized == "" {
		opts.Uncategorized = def.Uncategorized
	}
	iw := regexp.QuoteMeta(opts.Interwiki)
	return &Synthesizer{
		opts:    opts,
		doubled: regexp.MustCompile(`(?i)\[\[(` + iw + `::|` + iw + `:` + iw + `:)`),
	}
}

// Render builds the destination text from the normalized document, its
// detached description template and the candidate's revisions and
// categories. doc is consumed: categories and license templates are taken
// out of it.
func (s *Synthesizer) Render(c *domain.Candidate, doc *markup.Document, info *markup.Template) string {
	doc.MapText(func(text string) string {
		return categoryExpr.ReplaceAllString(text, "")
	})

	licenses := doc.TopLevelTemplates()
	for _, t := range licenses {
		doc.Remove(t)
	}

	var body strings.Builder
	body.WriteString(summaryHeader)
	body.WriteString(s.information(c, info, strings.TrimSpace(doc.Text())))
	body.WriteString(licenseHeader)
	for _, t := range licenses {
		body.WriteString(t.String())
		body.WriteByte('\n')
	}

	out := s.prefixLinks(body.String())
	out += s.uploadLog(c)
	out += s.categories(c)
	return blankExpr.ReplaceAllString(out, "\n")
}

// Field reads an Information field trying the key as written, lower-cased
// and lower-cased with underscores as spaces.
func Field(info *markup.Template, key string) string {
	if info == nil {
		return ""
	}
	lower := strings.ToLower(key)
	for _, k := range []string{key, lower, strings.ReplaceAll(lower, "_", " ")} {
		if v, ok := info.Get(k); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (s *Synthesizer) information(c *domain.Candidate, info *markup.Template, prose string) string {
	desc := Field(info, "Description")
	switch {
	case desc == "":
		desc = prose
	case prose != "":
		desc += "\n" + prose
	}

	source := Field(info, "Source")
	author := Field(info, "Author")
	if c.OwnWork {
		uploader := c.OriginalUploader()
		if source == "" {
			source = s.opts.OwnWorkSource
		}
		if author == "" && uploader != "" {
			author = fmt.Sprintf("[[User:%s|%s]]", uploader, uploader)
		}
	}

	return fmt.Sprintf(infoFormat,
		desc,
		source,
		Field(info, "Date"),
		author,
		Field(info, "Permission"),
		Field(info, "Other_versions"),
	)
}

func (s *Synthesizer) prefixLinks(text string) string {
	text = strings.ReplaceAll(text, "[[", "[["+s.opts.Interwiki+":")
	return s.doubled.ReplaceAllString(text, "[["+s.opts.Interwiki+":")
}

func (s *Synthesizer) uploadLog(c *domain.Candidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, logHeader, s.opts.SourceProject, withoutNamespace(c.SourceTitle))
	sb.WriteString(logTableStart)
	for _, rev := range c.Revisions {
		fmt.Fprintf(&sb, logRow,
			formatTimestamp(rev.Timestamp),
			rev.Width, rev.Height,
			s.opts.Interwiki, rev.Uploader, rev.Uploader,
			oneLine(rev.Comment),
		)
	}
	sb.WriteString(logTableEnd)
	return sb.String()
}

func (s *Synthesizer) categories(c *domain.Candidate) string {
	var sb strings.Builder
	if len(c.Categories) == 0 {
		sb.WriteString("\n" + s.opts.Uncategorized)
	}
	for _, cat := range c.Categories {
		sb.WriteString("\n" + categoryLink(cat))
	}
	if s.opts.TrackingCategory != "" {
		sb.WriteString("\n" + categoryLink(s.opts.TrackingCategory))
	}
	return sb.String()
}

func categoryLink(name string) string {
	if !strings.HasPrefix(strings.ToLower(name), "category:") {
		name = "Category:" + name
	}
	return "[[" + name + "]]"
}

func withoutNamespace(title string) string {
	if _, rest, ok := strings.Cut(title, ":"); ok {
		return rest
	}
	return title
}

func oneLine(comment string) string {
	return strings.TrimSpace(spaceExpr.ReplaceAllString(comment, " "))
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(logTimeLayout)
}
