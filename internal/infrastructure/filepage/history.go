package filepage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"WikiMover/internal/domain"
	"WikiMover/internal/ports"
)

const historyTimeLayout = "15:04, 2 January 2006"

var dimensionExpr = regexp.MustCompile(`([\d,]+)\s*×\s*([\d,]+)`)

// HistoryScraper reads a file's upload history from the rendered file
// description page. It stands in for the API when only HTML is reachable.
type HistoryScraper struct {
	client  *http.Client
	baseURL *url.URL
}

var _ ports.RevisionSource = (*HistoryScraper)(nil)

// NewHistoryScraper targets the wiki served at baseURL.
func NewHistoryScraper(client *http.Client, baseURL string) (*HistoryScraper, error) {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid wiki url %s: %w", baseURL, err)
	}
	return &HistoryScraper{client: client, baseURL: base}, nil
}

// RevisionHistory returns the rows of the file history table, newest first
// as the wiki lists them.
func (h *HistoryScraper) RevisionHistory(ctx context.Context, title string) ([]domain.RevisionRecord, error) {
	doc, err := h.fetchDocument(ctx, h.pageURL(title))
	if err != nil {
		return nil, fmt.Errorf("file page %s: %w", title, err)
	}

	var revisions []domain.RevisionRecord
	doc.Find("table.filehistory tr").Each(func(_ int, row *goquery.Selection) {
		if row.Find("td").Length() == 0 {
			return
		}
		if rev, ok := h.parseRow(row); ok {
			revisions = append(revisions, rev)
		}
	})
	if len(revisions) == 0 {
		return nil, fmt.Errorf("file page %s has no history rows", title)
	}
	return revisions, nil
}

func (h *HistoryScraper) pageURL(title string) string {
	page := *h.baseURL
	page.Path = h.baseURL.Path + "/wiki/" + strings.ReplaceAll(title, " ", "_")
	return page.String()
}

func (h *HistoryScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "WikiMover/1.1")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wiki returned %s: %w", resp.Status, domain.ErrNetwork)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func (h *HistoryScraper) parseRow(row *goquery.Selection) (domain.RevisionRecord, bool) {
	var rev domain.RevisionRecord

	link := row.Find("td a[href*='/images/'], td a[href*='upload.']").First()
	href, ok := link.Attr("href")
	if !ok {
		return rev, false
	}
	ts, err := time.ParseInLocation(historyTimeLayout, strings.TrimSpace(link.Text()), time.UTC)
	if err != nil {
		return rev, false
	}
	rev.Timestamp = ts
	rev.AssetURL = h.resolve(href)

	row.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		m := dimensionExpr.FindStringSubmatch(cell.Text())
		if m == nil {
			return true
		}
		rev.Width = atoi(m[1])
		rev.Height = atoi(m[2])
		return false
	})

	rev.Uploader = strings.TrimSpace(row.Find("a.mw-userlink").First().Text())
	comment := strings.TrimSpace(row.Find("span.comment").First().Text())
	comment = strings.TrimSuffix(strings.TrimPrefix(comment, "("), ")")
	rev.Comment = strings.TrimSpace(comment)

	return rev, true
}

func (h *HistoryScraper) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return h.baseURL.ResolveReference(ref).String()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	return n
}
