package datasets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/ceyeborg/virusradar/internal/config"
)

const describeTimeout = 30 * time.Second

// Description is the rendered documentation of one dataset source.
type Description struct {
	Name     string `json:"name"`
	InfoURL  string `json:"info_url"`
	Markdown string `json:"markdown"`
}

// FetchDescriptions retrieves each source's info page and converts it to
// markdown for the about endpoint. Sources without an info URL or with an
// unreachable page get an empty markdown body instead of failing the call.
func FetchDescriptions(ctx context.Context, sources []config.DatasetSource) []Description {
	converter := md.NewConverter("", true, nil)

	out := make([]Description, 0, len(sources))
	for _, src := range sources {
		desc := Description{Name: src.Name, InfoURL: src.InfoURL}
		if src.InfoURL != "" {
			if page, err := fetchPage(ctx, src.InfoURL); err == nil {
				if rendered, err := converter.ConvertString(page); err == nil {
					desc.Markdown = rendered
				}
			}
		}
		out = append(out, desc)
	}
	return out
}

func fetchPage(ctx context.Context, url string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, describeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
