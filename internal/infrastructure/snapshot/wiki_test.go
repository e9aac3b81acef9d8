package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WikiMover/internal/domain"
	"WikiMover/internal/ports"
)

const fixture = `
user: Mover
source:
  "File:Bridge.jpg":
    text: "{{Self|cc-by-sa-3.0}}"
    categories: ["Category:Bridges", "Category:Self-published work"]
    templates: ["Template:Copy to Wikimedia Commons"]
    revisions:
      - timestamp: 2010-06-05T12:34:56Z
        width: 800
        height: 600
        user: Alice
        comment: first
        url: file:///tmp/bridge.jpg
  "File:Dupe.png":
    text: "{{PD-self}}"
    duplicates: ["File:Dupe on commons.png"]
    revisions:
      - timestamp: 2011-01-01T00:00:00Z
        user: Bob
  "Template:Move to commons":
    text: "#REDIRECT [[Template:Copy to Wikimedia Commons]]"
    redirect: "Template:Copy to Wikimedia Commons"
  "Wikipedia:MTC!/Whitelist":
    text: "* [[:Category:Bridges]]"
    links: ["Category:Bridges"]
destination:
  - "File:Taken.jpg"
  - "Template:Self"
`

func load(t *testing.T) *Wiki {
	t.Helper()
	w, err := Decode(strings.NewReader(fixture))
	require.NoError(t, err)
	return w
}

func TestSnapshotReads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := load(t)

	assert.Equal(t, "Mover", w.Username())

	text, err := w.PageText(ctx, "File:Bridge.jpg")
	require.NoError(t, err)
	assert.Equal(t, "{{Self|cc-by-sa-3.0}}", text)

	_, err = w.PageText(ctx, "File:Missing.jpg")
	assert.ErrorIs(t, err, ErrPageNotFound)

	revs, err := w.RevisionHistory(ctx, "File:Bridge.jpg")
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, domain.RevisionRecord{
		Timestamp: time.Date(2010, 6, 5, 12, 34, 56, 0, time.UTC),
		Width:     800,
		Height:    600,
		Uploader:  "Alice",
		Comment:   "first",
		AssetURL:  "file:///tmp/bridge.jpg",
	}, revs[0])

	cats, err := w.CategoriesOf(ctx, []string{"File:Bridge.jpg", "File:Dupe.png", "File:Missing.jpg"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"File:Bridge.jpg": {"Category:Bridges", "Category:Self-published work"}}, cats)

	dupes, err := w.SharedDuplicatesOf(ctx, []string{"File:Bridge.jpg", "File:Dupe.png"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"File:Dupe.png": {"File:Dupe on commons.png"}}, dupes)

	members, err := w.CategoryMembers(ctx, "Category:Bridges", ports.NamespaceFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"File:Bridge.jpg"}, members)

	trans, err := w.TransclusionsOf(ctx, "Template:Copy to Wikimedia Commons", ports.NamespaceFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"File:Bridge.jpg"}, trans)

	uploads, err := w.UploadsByUser(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"File:Dupe.png"}, uploads)

	redirects, err := w.RedirectsTo(ctx, "Template:Copy to Wikimedia Commons")
	require.NoError(t, err)
	assert.Equal(t, []string{"Template:Move to commons"}, redirects)

	links, err := w.LinksOnPage(ctx, "Wikipedia:MTC!/Whitelist")
	require.NoError(t, err)
	assert.Equal(t, []string{"Category:Bridges"}, links)

	exists, err := w.Exists(ctx, []string{"File:Taken.jpg", "File:Bridge.jpg", "Template:Self"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"File:Taken.jpg": true, "File:Bridge.jpg": false, "Template:Self": true}, exists)
}

func TestSnapshotWritesAndSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := load(t)
	dir := t.TempDir()

	local := filepath.Join(dir, "asset.jpg")
	require.NoError(t, os.WriteFile(local, []byte("jpeg"), 0o600))

	require.NoError(t, w.Upload(ctx, local, "File:Bridge.jpg", "text", "moved"))
	assert.Error(t, w.Upload(ctx, local, "File:Bridge.jpg", "text", "again"))
	assert.Error(t, w.Upload(ctx, filepath.Join(dir, "missing"), "File:Other.jpg", "", ""))

	require.NoError(t, w.EditPage(ctx, "File:Bridge.jpg", "{{ncd}}", "done"))
	require.NoError(t, w.DeletePage(ctx, "File:Dupe.png", "F8"))
	assert.ErrorIs(t, w.DeletePage(ctx, "File:Dupe.png", "F8"), ErrPageNotFound)

	state := w.Snapshot()
	require.Len(t, state.Uploads, 1)
	assert.Equal(t, int64(4), state.Uploads[0].Size)
	assert.Equal(t, []Edit{{Title: "File:Bridge.jpg", Summary: "done"}}, state.Edits)
	assert.Equal(t, []string{"File:Dupe.png"}, state.Deleted)

	path := filepath.Join(dir, "snapshot.yaml")
	require.NoError(t, w.Save(path))
	reloaded, err := Load(path)
	require.NoError(t, err)

	text, err := reloaded.PageText(ctx, "File:Bridge.jpg")
	require.NoError(t, err)
	assert.Equal(t, "{{ncd}}", text)
	exists, _ := reloaded.Exists(ctx, []string{"File:Bridge.jpg"})
	assert.True(t, exists["File:Bridge.jpg"])
}

func TestSnapshotReadOnlyIsUnauthorized(t *testing.T) {
	t.Parallel()

	w := New(State{ReadOnly: true, Source: map[string]*Page{"File:A.png": {Text: "x"}}})
	err := w.EditPage(context.Background(), "File:A.png", "y", "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
