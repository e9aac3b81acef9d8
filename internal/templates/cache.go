package templates

import (
	"context"
	"fmt"
	"sync"
)

// ExistenceChecker answers batched existence queries against the destination wiki.
type ExistenceChecker interface {
	Exists(ctx context.Context, titles []string) (map[string]bool, error)
}

// ExistenceCache remembers which templates exist on the destination. Entries
// live as long as the cache; concurrent candidates share it safely.
type ExistenceCache struct {
	checker ExistenceChecker

	mu    sync.RWMutex
	known map[string]bool
}

// NewExistenceCache wraps checker. A nil checker makes every lookup unknown.
func NewExistenceCache(checker ExistenceChecker) *ExistenceCache {
	return &ExistenceCache{checker: checker, known: map[string]bool{}}
}

// Len reports the number of cached answers.
func (c *ExistenceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.known)
}

// Exists returns the known answers for titles, querying the destination once
// for everything not cached yet. Titles the destination did not answer for
// are absent from the result.
func (c *ExistenceCache) Exists(ctx context.Context, titles []string) (map[string]bool, error) {
	result := make(map[string]bool, len(titles))
	var missing []string
	seen := map[string]struct{}{}

	c.mu.RLock()
	for _, title := range titles {
		title = NormalizeTitle(title)
		if _, dup := seen[title]; dup || title == "" {
			continue
		}
		seen[title] = struct{}{}
		if exists, ok := c.known[title]; ok {
			result[title] = exists
			continue
		}
		missing = append(missing, title)
	}
	c.mu.RUnlock()

	if len(missing) == 0 || c.checker == nil {
		return result, nil
	}

	query := make([]string, len(missing))
	for i, title := range missing {
		query[i] = QualifiedTitle(title)
	}
	answers, err := c.checker.Exists(ctx, query)
	if err != nil {
		return result, fmt.Errorf("query template existence: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for title, exists := range answers {
		title = NormalizeTitle(title)
		c.known[title] = exists
		if _, asked := seen[title]; asked {
			result[title] = exists
		}
	}
	return result, nil
}
