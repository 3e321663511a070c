package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pressroomlabs/pressroom/config"
)

func TestSerpAPIFetchTopNews(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k, v := range r.URL.Query() {
			gotQuery[k] = v[0]
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"news_results": [
			{"position": 1, "title": "Grid operators brace for heat wave", "link": "https://example.com/grid", "source": "Wire Desk", "date": "2 hours ago", "snippet": "Utilities warn of rolling outages."},
			{"position": 2, "title": "Port strike enters second week", "link": "https://example.com/port", "source": "Trade Journal", "date": "5 hours ago", "snippet": "Delays ripple through supply chains."}
		]}`))
	}))
	defer srv.Close()

	client := NewSerpAPIClient(config.SerpAPIConfig{
		APIKey:     "test-key",
		Endpoint:   srv.URL,
		MaxResults: 10,
		Window:     "d1",
	})

	items, err := client.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Headline != "Grid operators brace for heat wave" {
		t.Errorf("unexpected headline: %q", items[0].Headline)
	}
	if items[0].ID == "" {
		t.Error("items should get ids")
	}
	if gotQuery["engine"] != "google" || gotQuery["tbm"] != "nws" {
		t.Errorf("wrong engine params: %v", gotQuery)
	}
	if gotQuery["q"] != "news" {
		t.Errorf("top news query = %q, want %q", gotQuery["q"], "news")
	}
	if gotQuery["tbs"] != "qdr:d" {
		t.Errorf("tbs = %q, want qdr:d for a d1 window", gotQuery["tbs"])
	}
}

func TestSerpAPIFetchCategory(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k, v := range r.URL.Query() {
			gotQuery[k] = v[0]
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"news_results": []}`))
	}))
	defer srv.Close()

	client := NewSerpAPIClient(config.SerpAPIConfig{APIKey: "test-key", Endpoint: srv.URL, Window: "d1"})

	if _, err := client.Fetch(context.Background(), "quantum computing"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if gotQuery["q"] != "quantum computing news" {
		t.Errorf("category query = %q", gotQuery["q"])
	}
	if _, ok := gotQuery["tbs"]; ok {
		t.Error("category fetch should not bound the time window")
	}
}

func TestSerpAPIFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewSerpAPIClient(config.SerpAPIConfig{APIKey: "test-key", Endpoint: srv.URL})

	_, err := client.Fetch(context.Background(), "")
	if KindOf(err) != KindUpstreamUnavailable {
		t.Fatalf("expected upstream_unavailable, got %v", err)
	}
}

func TestSerpAPIFetchNoKey(t *testing.T) {
	t.Setenv("SERPAPI_API_KEY", "")
	client := NewSerpAPIClient(config.SerpAPIConfig{})
	_, err := client.Fetch(context.Background(), "")
	if KindOf(err) != KindUpstreamUnavailable {
		t.Fatalf("expected upstream_unavailable, got %v", err)
	}
}

func TestSerpTimeFilter(t *testing.T) {
	if got := serpTimeFilter("d1"); got != "qdr:d" {
		t.Errorf("d1 = %q", got)
	}
	if got := serpTimeFilter(""); got != "" {
		t.Errorf("empty window = %q", got)
	}
}
