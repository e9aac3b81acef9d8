package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WikiMover/internal/infrastructure/snapshot"
)

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wiki.yaml")
	wiki := snapshot.New(snapshot.State{
		User: "Mover",
		Source: map[string]*snapshot.Page{
			"File:River.jpg": {
				Text:       "{{Information|description=A river}}\n{{Cc-by-sa-3.0}}",
				Categories: []string{"Category:Rivers"},
				Revisions: []snapshot.Revision{{
					Timestamp: time.Date(2011, time.June, 3, 8, 0, 0, 0, time.UTC),
					Width:     800,
					Height:    600,
					User:      "Bob",
					URL:       "file:///nonexistent/river.jpg",
				}},
			},
		},
		Destination: []string{"Template:Cc-by-sa-3.0"},
	})
	require.NoError(t, wiki.Save(path))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	t.Parallel()

	out, err := run(t, "render", "File:River.jpg", "--snapshot", writeSnapshot(t))
	require.NoError(t, err)
	assert.Contains(t, out, "A river")
	assert.Contains(t, out, "{{Cc-by-sa-3.0}}")
}

func TestTransferDryRunCommand(t *testing.T) {
	t.Parallel()

	path := writeSnapshot(t)
	out, err := run(t, "transfer", "File:River.jpg", "--snapshot", path, "--write-back", "-f", "-d", "-c", "Category:Rivers of test")
	require.NoError(t, err)

	assert.Contains(t, out, "Processing item 1 of 1: File:River.jpg (rendered)")
	assert.Contains(t, out, "== File:River.jpg -> File:River.jpg ==")
	assert.Contains(t, out, "[[Category:Rivers of test]]")
	assert.Contains(t, out, "1 attempted, 0 failed")

	reloaded, err := snapshot.Load(path)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Snapshot().Uploads)
}

func TestTransferReportsFailures(t *testing.T) {
	t.Parallel()

	out, err := run(t, "transfer", "File:River.jpg", "--snapshot", writeSnapshot(t), "-f")
	require.Error(t, err)
	assert.Contains(t, out, "Failed File:River.jpg at download")
}

func TestReportNeedsDatabase(t *testing.T) {
	t.Parallel()

	_, err := run(t, "report", "some-run", "--snapshot", writeSnapshot(t))
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "MTC! 1.1.1\n", out)
}
