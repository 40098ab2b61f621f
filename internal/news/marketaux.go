package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"btc-signal-bot/internal/logger"
	"btc-signal-bot/internal/trace"
	"btc-signal-bot/internal/types"
)

const marketauxURL = "https://api.marketaux.com/v1/news/all"

// MarketauxClient fetches scored crypto news from the Marketaux API.
// Sentiment scores come from the article entities matching the requested
// symbols, not from the article itself.
type MarketauxClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewMarketauxClient() *MarketauxClient {
	return &MarketauxClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    marketauxURL,
		token:      os.Getenv("MARKETAUX_API_TOKEN"),
	}
}

// WithBaseURL redirects API calls, used by tests.
func (c *MarketauxClient) WithBaseURL(u string) *MarketauxClient {
	c.baseURL = u
	return c
}

// Fetch returns up to maxItems news entries for the comma-separated
// symbols, sorted by sentiment magnitude. A missing API token or any
// request failure returns an error; the caller decides how to degrade.
func (c *MarketauxClient) Fetch(ctx context.Context, symbols string, maxItems int) ([]types.NewsItem, error) {
	ctx, span := trace.StartSpan(ctx, "marketaux-fetch")
	defer span.End()

	if c.token == "" {
		return nil, fmt.Errorf("news: MARKETAUX_API_TOKEN not set")
	}

	requested := make(map[string]bool)
	for _, s := range strings.Split(symbols, ",") {
		requested[strings.ToUpper(strings.TrimSpace(s))] = true
	}

	q := url.Values{}
	q.Set("api_token", c.token)
	q.Set("symbols", symbols)
	q.Set("filter_entities", "true")
	q.Set("language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news: marketaux request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("news: marketaux http %d", resp.StatusCode)
	}

	var payload struct {
		Data []struct {
			Title       string `json:"title"`
			PublishedAt string `json:"published_at"`
			Entities    []struct {
				Symbol         string  `json:"symbol"`
				SentimentScore float64 `json:"sentiment_score"`
			} `json:"entities"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("news: decode marketaux response: %w", err)
	}

	items := make([]types.NewsItem, 0, len(payload.Data))
	for _, article := range payload.Data {
		for _, entity := range article.Entities {
			sym := strings.ToUpper(entity.Symbol)
			if !requested[sym] {
				continue
			}
			items = append(items, types.NewsItem{
				Title:          article.Title,
				PublishedAt:    article.PublishedAt,
				Symbol:         sym,
				SentimentScore: entity.SentimentScore,
				SentimentLevel: classifyScore(entity.SentimentScore),
				Scored:         true,
			})
			// One entry per article even when several entities match.
			break
		}
	}

	// Strongest sentiment first, then cap.
	sort.SliceStable(items, func(i, j int) bool {
		return abs(items[i].SentimentScore) > abs(items[j].SentimentScore)
	})
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	logger.Info(ctx, "marketaux news fetched", "requested", symbols, "kept", len(items))
	return items, nil
}

func classifyScore(score float64) string {
	switch {
	case score > 0.15:
		return "positive"
	case score < -0.15:
		return "negative"
	default:
		return "neutral"
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
