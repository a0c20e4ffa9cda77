package geocode

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DumpFile is one downloadable file on the GeoNames export mirror.
type DumpFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

const discoverTimeout = 30 * time.Second

// DiscoverDumps lists dataset archives available on a GeoNames-style mirror
// index page. Only ZIP and TXT entries are reported; navigation links are
// skipped.
func DiscoverDumps(ctx context.Context, mirrorURL string) ([]DumpFile, error) {
	reqCtx, cancel := context.WithTimeout(ctx, discoverTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, mirrorURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mirror index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching mirror index", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mirror index: %w", err)
	}

	base := strings.TrimSuffix(mirrorURL, "/")

	var dumps []DumpFile
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if !strings.HasSuffix(href, ".zip") && !strings.HasSuffix(href, ".txt") {
			return
		}
		if strings.Contains(href, "/") {
			// Absolute or nested link, not a plain directory entry
			return
		}
		dumps = append(dumps, DumpFile{
			Name: href,
			URL:  base + "/" + href,
		})
	})

	return dumps, nil
}
