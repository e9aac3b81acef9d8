package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCandidateUploaders(t *testing.T) {
	t.Parallel()

	older := time.Date(2010, time.March, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)

	c := &Candidate{Revisions: []RevisionRecord{
		{Timestamp: newer, Uploader: "Bob", AssetURL: "https://example.org/b.jpg"},
		{Timestamp: older, Uploader: "Alice", AssetURL: "https://example.org/a.jpg"},
	}}

	assert.Equal(t, "Bob", c.CurrentUploader())
	assert.Equal(t, "Alice", c.OriginalUploader())

	rev, ok := c.CurrentRevision()
	assert.True(t, ok)
	assert.Equal(t, "https://example.org/b.jpg", rev.AssetURL)
}

func TestCandidateWithoutRevisions(t *testing.T) {
	t.Parallel()

	c := &Candidate{}
	_, ok := c.CurrentRevision()
	assert.False(t, ok)
	assert.Empty(t, c.OriginalUploader())
}

func TestAddCategoriesSkipsDuplicates(t *testing.T) {
	t.Parallel()

	c := &Candidate{}
	c.AddCategories("Category:A", "", "Category:A", "Category:B")
	assert.Equal(t, []string{"Category:A", "Category:B"}, c.Categories)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := map[ErrorClass]error{
		ClassNone:          nil,
		ClassAuthorization: fmt.Errorf("edit page: %w", ErrUnauthorized),
		ClassNameExhausted: fmt.Errorf("resolve: %w", ErrNameResolutionExhausted),
		ClassNetwork:       fmt.Errorf("upload: %w", ErrNetwork),
		ClassUnknown:       errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Classify(err))
	}
}
