// Package rewrite canonicalizes the templates of a source description so the
// text is valid on the destination wiki.
package rewrite

import "regexp"

var (
	commentExpr  = regexp.MustCompile(`(?s)<!--.*?-->`)
	headerExpr   = regexp.MustCompile(`\n?==.*?==\n?`)
	tableExpr    = regexp.MustCompile(`(?si)\{\|\s*?class="?wikitable.+?\|\}`)
	categoryExpr = regexp.MustCompile(`(?i)\n?\[\[\s*Category\s*:.*?\]\]`)
)

// Prepare drops markup that never carries over: comments, section headers,
// wikitables such as an older upload log, and source categories wherever
// they sit, template parameters included.
func Prepare(raw string) string {
	out := commentExpr.ReplaceAllString(raw, "")
	out = headerExpr.ReplaceAllString(out, "")
	out = tableExpr.ReplaceAllString(out, "")
	return categoryExpr.ReplaceAllString(out, "")
}
