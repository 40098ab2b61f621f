package news

import (
	"context"
	"time"

	"btc-signal-bot/internal/config"
	"btc-signal-bot/internal/logger"
	"btc-signal-bot/internal/types"
)

// Service is the single entry point for news sentiment. It prefers the
// scored API and falls back to scraped, keyword-scored headlines. News is
// advisory input: every failure degrades to an empty result, never an
// error, so a news outage cannot block a report.
type Service struct {
	api      *MarketauxClient
	scraper  *Scraper
	analyzer *Analyzer
	cfg      config.NewsConfig
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		api:      NewMarketauxClient(),
		scraper:  NewScraper(30 * time.Second),
		analyzer: NewAnalyzer(),
		cfg:      cfg.News,
	}
}

// Fetch returns scored news items for the configured symbols, or an empty
// slice when nothing usable could be gathered.
func (s *Service) Fetch(ctx context.Context) []types.NewsItem {
	if !s.cfg.Enabled {
		return nil
	}

	items, err := s.api.Fetch(ctx, s.cfg.Symbols, s.cfg.MaxItems)
	if err == nil && len(items) > 0 {
		return items
	}
	if err != nil {
		logger.Warn(ctx, "scored news unavailable, falling back to headlines", "error", err.Error())
	}

	headlines := s.scraper.Headlines(ctx, s.cfg.Symbols, s.cfg.MaxItems)
	if len(headlines) == 0 {
		return nil
	}
	return s.analyzer.Score(headlines)
}
