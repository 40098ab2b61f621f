package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const headlinesPage = `<html><body>
	<article><h3><a href="/a">Bitcoin climbs as ETF inflows accelerate today</a></h3></article>
	<article><h3><a href="/b">Miners expand capacity ahead of halving event</a></h3></article>
	<article><h3><a href="/c">Short</a></h3></article>
	<article><h3><a href="/d">Bitcoin climbs as ETF inflows accelerate today</a></h3></article>
</body></html>`

func TestScraperHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(headlinesPage))
	}))
	defer srv.Close()

	s := NewScraper(5 * time.Second).WithSources([]Source{{
		Name:      "test",
		URL:       srv.URL,
		Container: "article",
		Title:     "h3 a",
	}})

	items := s.Headlines(context.Background(), "BTC", 5)

	// Short titles and duplicates are dropped.
	if len(items) != 2 {
		t.Fatalf("Expected 2 headlines, got %d: %+v", len(items), items)
	}
	for _, item := range items {
		if item.Symbol != "BTC" {
			t.Errorf("Headline should carry the symbol, got %+v", item)
		}
		if item.Scored {
			t.Errorf("Scraped headlines start unscored, got %+v", item)
		}
	}
}

func TestScraperFailingSourceDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewScraper(5 * time.Second).WithSources([]Source{{
		Name:      "test",
		URL:       srv.URL,
		Container: "article",
		Title:     "a",
	}})

	items := s.Headlines(context.Background(), "BTC", 5)
	if len(items) != 0 {
		t.Errorf("Expected no headlines from a failing source, got %+v", items)
	}
}
