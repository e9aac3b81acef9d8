package describe

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WikiMover/internal/domain"
	"WikiMover/internal/markup"
	"WikiMover/internal/rewrite"
	"WikiMover/internal/templates"
)

type allPresent struct{}

func (allPresent) Exists(_ context.Context, titles []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, title := range titles {
		out[title] = true
	}
	return out, nil
}

func TestRenderSelfPublishedEndToEnd(t *testing.T) {
	t.Parallel()

	reg := templates.NewRegistry(nil, templates.NewExistenceCache(allPresent{}))
	for _, rule := range templates.DefaultRules(templates.Project{Interwiki: "w", Lang: "en"}) {
		reg.Register(rule)
	}
	reg.MarkOwnWork(templates.DefaultOwnWork()...)

	doc, err := markup.Parse(rewrite.Prepare("{{Self|author=}}\n[[Category:Self-published work]]"))
	require.NoError(t, err)

	c := &domain.Candidate{
		SourceTitle:      "File:Bridge.jpg",
		DestinationTitle: "File:Bridge.jpg",
		Categories:       []string{"Bridges"},
		Revisions: []domain.RevisionRecord{{
			Timestamp: time.Date(2010, 6, 5, 12, 34, 56, 0, time.UTC),
			Width:     800,
			Height:    600,
			Uploader:  "Alice",
			Comment:   "Initial\nupload",
		}},
	}
	res, err := rewrite.NewNormalizer(reg, nil).Normalize(context.Background(), doc, templates.Env{
		CurrentUploader:  c.CurrentUploader(),
		OriginalUploader: c.OriginalUploader(),
	})
	require.NoError(t, err)
	c.OwnWork = c.OwnWork || res.OwnWork

	got := NewSynthesizer(DefaultOptions()).Render(c, doc, res.Info)

	want := "== {{int:filedesc}} ==\n" +
		"{{Information\n|description=\n|source={{Own work by original uploader}}\n|date=\n" +
		"|author=[[w:User:Alice|Alice]]\n|permission=\n|other_versions=\n}}\n" +
		"\n== {{int:license-header}} ==\n" +
		"{{Self|author={{User at project|Alice|w|en}}}}\n" +
		"\n== {{Original upload log}} ==\n" +
		"{{Original file page|en.wikipedia|Bridge.jpg}}\n" +
		"{| class=\"wikitable\"\n! {{int:filehist-datetime}} !! {{int:filehist-dimensions}} !! {{int:filehist-user}} !! {{int:filehist-comment}}" +
		"\n|-\n| 2010-06-05 12:34:56 || 800 × 600 || [[w:User:Alice|Alice]] || ''<nowiki>Initial upload</nowiki>''" +
		"\n|}\n" +
		"\n[[Category:Bridges]]"
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "Self-published work")
}

func TestRenderKeepsLinkTemplatesInDescription(t *testing.T) {
	t.Parallel()

	reg := templates.NewRegistry(nil, templates.NewExistenceCache(allPresent{}))
	for _, rule := range templates.DefaultRules(templates.Project{Interwiki: "w", Lang: "en"}) {
		reg.Register(rule)
	}

	raw := "{{Information|description=A cat [[Category:Cats]]|source=x}}\n" +
		"See [[Paris|{{lang|fr|Paris}}]] at night.\n{{Cc-by-sa-3.0}}"
	doc, err := markup.Parse(rewrite.Prepare(raw))
	require.NoError(t, err)

	c := &domain.Candidate{
		SourceTitle:      "File:Cat.jpg",
		DestinationTitle: "File:Cat.jpg",
		Revisions:        []domain.RevisionRecord{{Timestamp: time.Unix(0, 0).UTC(), Uploader: "Alice"}},
	}
	res, err := rewrite.NewNormalizer(reg, nil).Normalize(context.Background(), doc, templates.Env{
		CurrentUploader:  "Alice",
		OriginalUploader: "Alice",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Info)

	got := NewSynthesizer(DefaultOptions()).Render(c, doc, res.Info)

	assert.Contains(t, got, "|description=A cat\nSee [[w:Paris|{{lang|fr|Paris}}]] at night.\n")
	assert.NotContains(t, got, "Category:Cats")
	assert.NotContains(t, got, "[[w:Category")

	_, rest, ok := strings.Cut(got, "== {{int:license-header}} ==\n")
	require.True(t, ok)
	licenses, _, ok := strings.Cut(rest, "\n== {{Original upload log}} ==")
	require.True(t, ok)
	assert.Equal(t, "{{Cc-by-sa-3.0}}\n", licenses)
}

func TestRenderKeepsRevisionOrderAndMergesDescription(t *testing.T) {
	t.Parallel()

	doc, err := markup.Parse("A view of the [[Thames]].\n{{Cc-by-sa-3.0}}\n\n\n\n")
	require.NoError(t, err)
	info, err := markup.Parse("{{Information|Description=Tower [[Bridge]]|source=[[:en:Scan]]|Date=1900|other versions=none}}")
	require.NoError(t, err)

	c := &domain.Candidate{
		SourceTitle: "File:Tower.png",
		Revisions: []domain.RevisionRecord{
			{Timestamp: time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC), Width: 10, Height: 20, Uploader: "Second", Comment: "fix"},
			{Timestamp: time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC), Width: 5, Height: 5, Uploader: "First"},
		},
	}
	s := NewSynthesizer(Options{TrackingCategory: "Uploaded with MTC!"})
	got := s.Render(c, doc, info.TopLevelTemplates()[0])

	assert.Contains(t, got, "|description=Tower [[w:Bridge]]\nA view of the [[w:Thames]].\n")
	assert.Contains(t, got, "|source=[[w:en:Scan]]\n")
	assert.Contains(t, got, "|date=1900\n")
	assert.Contains(t, got, "|author=\n")
	assert.Contains(t, got, "|other_versions=none\n")
	assert.Contains(t, got, "\n== {{int:license-header}} ==\n{{Cc-by-sa-3.0}}\n")
	assert.True(t, strings.HasSuffix(got, "\n{{Subst:Unc}}\n[[Category:Uploaded with MTC!]]"))
	assert.NotContains(t, got, "\n\n\n")

	second := strings.Index(got, "[[w:User:Second|Second]]")
	first := strings.Index(got, "[[w:User:First|First]]")
	require.Positive(t, second)
	require.Positive(t, first)
	assert.Less(t, second, first)
	assert.Contains(t, got, "| 2011-01-01 00:00:00 || 10 × 20 ||")
}

func TestFieldFuzzyVariants(t *testing.T) {
	t.Parallel()

	doc, err := markup.Parse("{{Information|Description=a|source=b|other versions=c|DATE=d}}")
	require.NoError(t, err)
	info := doc.TopLevelTemplates()[0]

	assert.Equal(t, "a", Field(info, "Description"))
	assert.Equal(t, "b", Field(info, "Source"))
	assert.Equal(t, "c", Field(info, "Other_versions"))
	assert.Equal(t, "", Field(info, "Date"))
	assert.Equal(t, "", Field(nil, "Date"))
}

func TestLinkPrefixCollapsesDoubles(t *testing.T) {
	t.Parallel()

	s := NewSynthesizer(DefaultOptions())
	assert.Equal(t, "[[w:Foo]] [[w:en:Bar]] [[w:Baz|x]]", s.prefixLinks("[[Foo]] [[:en:Bar]] [[w:Baz|x]]"))
}
