package news

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"btc-signal-bot/internal/logger"
	"btc-signal-bot/internal/types"
)

// Scraper pulls recent crypto headlines directly from news sites when the
// scored news API is unavailable. Headlines carry no sentiment on their
// own; the analyzer scores them afterwards.
type Scraper struct {
	sources []Source
	timeout time.Duration
}

// Source describes one site to scrape.
type Source struct {
	Name      string
	URL       string
	Container string
	Title     string
}

func defaultSources() []Source {
	return []Source{
		{
			Name:      "CoinDesk",
			URL:       "https://www.coindesk.com/tag/bitcoin/",
			Container: "div.article-cardstyles__AcTitle, article",
			Title:     "h2 a, h3 a, h4 a, a.card-title",
		},
		{
			Name:      "CoinTelegraph",
			URL:       "https://cointelegraph.com/tags/bitcoin",
			Container: "article",
			Title:     "span.post-card-inline__title, a",
		},
	}
}

func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{sources: defaultSources(), timeout: timeout}
}

// WithSources overrides the scrape targets, used by tests.
func (s *Scraper) WithSources(sources []Source) *Scraper {
	s.sources = sources
	return s
}

// Headlines scrapes up to maxItems headlines across all sources. A source
// that fails is skipped; the aggregate never errors.
func (s *Scraper) Headlines(ctx context.Context, symbol string, maxItems int) []types.NewsItem {
	items := []types.NewsItem{}
	seen := map[string]bool{}

	for _, source := range s.sources {
		if len(items) >= maxItems {
			break
		}
		headlines, err := s.scrapeSource(ctx, source, maxItems-len(items))
		if err != nil {
			logger.Warn(ctx, "headline scrape failed, skipping source",
				"source", source.Name, "error", err.Error())
			continue
		}
		for _, title := range headlines {
			key := strings.ToLower(title)
			if seen[key] {
				continue
			}
			seen[key] = true
			items = append(items, types.NewsItem{
				Title:  title,
				Symbol: symbol,
			})
		}
	}

	logger.Info(ctx, "headline scraping completed", "symbol", symbol, "headlines", len(items))
	return items
}

func (s *Scraper) scrapeSource(ctx context.Context, source Source, maxItems int) ([]string, error) {
	headlines := []string{}

	c := colly.NewCollector(
		colly.AllowedDomains(hostOf(source.URL)),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML(source.Container, func(e *colly.HTMLElement) {
		if len(headlines) >= maxItems {
			return
		}
		title := firstText(e.DOM, source.Title)
		if title == "" || len(title) < 15 {
			return
		}
		headlines = append(headlines, title)
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.Warn(ctx, "scraping error", "source", source.Name, "url", r.Request.URL.String(), "error", err.Error())
	})

	if err := c.Visit(source.URL); err != nil {
		return nil, err
	}
	c.Wait()

	return headlines, nil
}

// firstText returns the trimmed text of the first node matching the
// selector. Container selectors often match several links; only the
// leading one is the headline.
func firstText(sel *goquery.Selection, query string) string {
	return strings.TrimSpace(sel.Find(query).First().Text())
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
