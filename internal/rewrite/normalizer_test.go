package rewrite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WikiMover/internal/domain"
	"WikiMover/internal/markup"
	"WikiMover/internal/templates"
)

type staticChecker struct {
	present map[string]bool
	err     error
	calls   int
}

func (c *staticChecker) Exists(_ context.Context, titles []string) (map[string]bool, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := map[string]bool{}
	for _, title := range titles {
		out[title] = c.present[title]
	}
	return out, nil
}

func newRegistry(checker templates.ExistenceChecker) *templates.Registry {
	redirects := templates.NewRedirectMap(map[string]string{
		"Self2":           "Self",
		"Cc-by-sa":        "Cc-by-sa-3.0",
		"Info":            "Information",
		"Move to commons": "Copy to Wikimedia Commons",
	})
	reg := templates.NewRegistry(redirects, templates.NewExistenceCache(checker))
	for _, rule := range templates.DefaultRules(templates.Project{Interwiki: "w", Lang: "en"}) {
		reg.Register(rule)
	}
	reg.MarkOwnWork(templates.DefaultOwnWork()...)
	reg.MarkStripped(templates.DefaultStripped()...)
	reg.MarkTrigger("Copy to Wikimedia Commons")
	return reg
}

func parse(t *testing.T, raw string) *markup.Document {
	t.Helper()
	doc, err := markup.Parse(raw)
	require.NoError(t, err)
	return doc
}

func TestPrepareStripsCommentsHeadersAndTables(t *testing.T) {
	t.Parallel()

	raw := "== Summary ==\nA bridge<!-- hidden -->.\n{| class=\"wikitable\"\n| old || log\n|}\n{{Self}}"
	assert.Equal(t, "A bridge.\n\n{{Self}}", Prepare(raw))
}

func TestPrepareStripsCategoriesInsideTemplates(t *testing.T) {
	t.Parallel()

	raw := "{{Information|description=A cat [[Category:Cats]]|source=x}}\n[[ category : Pets|sort]]"
	assert.Equal(t, "{{Information|description=A cat |source=x}}", Prepare(raw))
}

func TestNormalizeSelfWithEmptyAuthor(t *testing.T) {
	t.Parallel()

	checker := &staticChecker{present: map[string]bool{"Template:Self": true}}
	n := NewNormalizer(newRegistry(checker), nil)
	doc := parse(t, "{{Self|author=}}\n[[Category:Self-published work]]")

	res, err := n.Normalize(context.Background(), doc, templates.Env{CurrentUploader: "Alice", OriginalUploader: "Alice"})
	require.NoError(t, err)

	assert.True(t, res.OwnWork)
	assert.True(t, res.Synthesized)
	assert.Equal(t, "Information", res.Info.Name())
	assert.Equal(t, "{{Self|author={{User at project|Alice|w|en}}}}\n[[Category:Self-published work]]", doc.String())
	assert.Zero(t, checker.calls)
}

func TestNormalizeCanonicalizesAndDropsMissing(t *testing.T) {
	t.Parallel()

	checker := &staticChecker{present: map[string]bool{"Template:Cc-by-sa-3.0": true}}
	n := NewNormalizer(newRegistry(checker), nil)
	doc := parse(t, "{{info|description=Bridge {{Local note}}}}\n{{cc-by-sa}}\n{{Local_only|x}}\n{{nobots}}{{Move to commons}}")

	res, err := n.Normalize(context.Background(), doc, templates.Env{})
	require.NoError(t, err)

	assert.False(t, res.Synthesized)
	assert.Equal(t, "Information", res.Info.Name())
	desc, _ := res.Info.Get("description")
	assert.Equal(t, "Bridge ", desc)

	assert.Equal(t, "\n{{Cc-by-sa-3.0}}\n\n", doc.String())
	assert.ElementsMatch(t, []string{"Local only", "Local note"}, res.Dropped)
	assert.Equal(t, 2, res.Stripped)
	assert.False(t, res.OwnWork)
}

func TestNormalizeKeepsProtectedAndUnresolvable(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(newRegistry(&staticChecker{}), nil)
	doc := parse(t, "{{PD-self}} {{int:filedesc}} {{#if:x|y}}")

	res, err := n.Normalize(context.Background(), doc, templates.Env{CurrentUploader: "Carol", OriginalUploader: "Bob"})
	require.NoError(t, err)

	assert.Equal(t, "{{PD-user-en|1=Bob}} {{int:filedesc}} {{#if:x|y}}", doc.String())
	assert.True(t, res.OwnWork)
	assert.Equal(t, []string{"int:filedesc", "#if:x"}, res.Skipped)
	assert.Empty(t, res.Dropped)

	skipped := res.SkippedErr()
	require.Error(t, skipped)
	assert.True(t, errors.Is(skipped, domain.ErrRewriteSkipped))
	assert.Equal(t, domain.ClassRewrite, domain.Classify(skipped))
	assert.Contains(t, skipped.Error(), `"#if:x"`)

	assert.NoError(t, Result{}.SkippedErr())
}

func TestNormalizeIsIdempotentOnTitles(t *testing.T) {
	t.Parallel()

	checker := &staticChecker{present: map[string]bool{"Template:Self": true, "Template:Cc-by-sa-3.0": true}}
	n := NewNormalizer(newRegistry(checker), nil)
	doc := parse(t, "{{Self2|cc-by-sa|author=X}}{{cc-by-sa}}")

	_, err := n.Normalize(context.Background(), doc, templates.Env{})
	require.NoError(t, err)
	once := doc.String()

	_, err = n.Normalize(context.Background(), doc, templates.Env{})
	require.NoError(t, err)
	assert.Equal(t, once, doc.String())
	assert.Equal(t, "{{Self|cc-by-sa|author=X}}{{Cc-by-sa-3.0}}", once)
}

func TestNormalizeExistenceFailure(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(newRegistry(&staticChecker{err: domain.ErrNetwork}), nil)
	_, err := n.Normalize(context.Background(), parse(t, "{{Anything}}"), templates.Env{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
}

func TestStripTriggers(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(newRegistry(nil), nil)
	doc := parse(t, "{{Move_to_commons|reason}}\n{{Nobots}}A photo.")

	assert.Equal(t, 1, n.StripTriggers(doc))
	assert.Equal(t, "\n{{Nobots}}A photo.", doc.String())
}
