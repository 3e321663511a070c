package core

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pressroomlabs/pressroom/config"
)

// SerpAPIClient implements NewsSource using the SerpAPI Google News engine.
type SerpAPIClient struct {
	cfg    config.SerpAPIConfig
	client *resty.Client
}

func NewSerpAPIClient(cfg config.SerpAPIConfig) *SerpAPIClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://serpapi.com"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &SerpAPIClient{cfg: cfg, client: client}
}

func (s *SerpAPIClient) Name() string { return "serpapi" }

// Fetch returns current headlines. With no category the query is plain top
// news bounded to the configured window; a category widens the window so
// niche sections still fill a page.
func (s *SerpAPIClient) Fetch(ctx context.Context, category string) ([]NewsItem, error) {
	apiKey := s.cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("SERPAPI_API_KEY")
	}
	if apiKey == "" {
		return nil, upstreamUnavailable("news_fetch", fmt.Errorf("SerpAPI key not configured"))
	}

	query := "news"
	window := s.cfg.Window
	if category != "" {
		query = category + " news"
		window = "" // niche categories rarely fill a day-bounded page
	}

	num := s.cfg.MaxResults
	if num <= 0 {
		num = 10
	}

	params := map[string]string{
		"engine":  "google",
		"tbm":     "nws",
		"q":       query,
		"num":     strconv.Itoa(num),
		"api_key": apiKey,
	}
	if tbs := serpTimeFilter(window); tbs != "" {
		params["tbs"] = tbs
	}

	var out struct {
		NewsResults []struct {
			Position  int    `json:"position"`
			Title     string `json:"title"`
			Link      string `json:"link"`
			Source    string `json:"source"`
			Date      string `json:"date"`
			Snippet   string `json:"snippet"`
			Thumbnail string `json:"thumbnail"`
		} `json:"news_results"`
		Error string `json:"error"`
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get("/search.json")
	if err != nil {
		return nil, upstreamUnavailable("news_fetch", fmt.Errorf("serpapi: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, upstreamUnavailable("news_fetch", &StatusError{Code: resp.StatusCode(), Body: strings.TrimSpace(string(resp.Body()))})
	}
	if out.Error != "" {
		return nil, upstreamUnavailable("news_fetch", fmt.Errorf("serpapi: %s", out.Error))
	}

	items := make([]NewsItem, 0, len(out.NewsResults))
	for _, r := range out.NewsResults {
		if r.Title == "" {
			continue
		}
		items = append(items, NewsItem{
			ID:           uuid.NewString(),
			Headline:     r.Title,
			Source:       r.Source,
			Link:         r.Link,
			Snippet:      r.Snippet,
			Date:         r.Date,
			Position:     r.Position,
			ThumbnailURL: r.Thumbnail,
		})
	}
	return items, nil
}

// serpTimeFilter maps a recency window token onto the Google tbs parameter.
func serpTimeFilter(window string) string {
	switch window {
	case "h1":
		return "qdr:h"
	case "d1":
		return "qdr:d"
	case "w1":
		return "qdr:w"
	case "m1":
		return "qdr:m"
	default:
		return ""
	}
}

// NewsAPIClient implements NewsSource using newsapi.org top headlines.
type NewsAPIClient struct {
	cfg  config.NewsAPIConfig
	http *HTTPClient
}

func (n *NewsAPIClient) Name() string { return "newsapi" }

func (n *NewsAPIClient) Fetch(ctx context.Context, category string) ([]NewsItem, error) {
	endpoint := n.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://newsapi.org/v2/top-headlines"
	}
	var resp struct {
		Articles []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			PublishedAt string `json:"publishedAt"`
			Description string `json:"description"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	headers := map[string]string{"X-Api-Key": n.cfg.APIKey}
	url := fmt.Sprintf("%s?language=en&pageSize=%d", endpoint, max1(n.cfg.MaxResults, 10))
	if category != "" {
		url += "&category=" + escapeQuery(category)
	}
	if err := n.http.DoJSON(ctx, http.MethodGet, url, headers, nil, &resp); err != nil {
		return nil, upstreamUnavailable("news_fetch", fmt.Errorf("newsapi: %w", err))
	}
	var out []NewsItem
	for i, a := range resp.Articles {
		if a.Title == "" {
			continue
		}
		out = append(out, NewsItem{
			ID:       uuid.NewString(),
			Headline: a.Title,
			Source:   a.Source.Name,
			Link:     a.URL,
			Snippet:  strings.TrimSpace(a.Description),
			Date:     a.PublishedAt,
			Position: i + 1,
		})
	}
	return out, nil
}

func escapeQuery(q string) string {
	return strings.ReplaceAll(strings.TrimSpace(q), " ", "+")
}

func max1(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
