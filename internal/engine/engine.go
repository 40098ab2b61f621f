package engine

import (
	"fmt"
	"sort"

	"btc-signal-bot/internal/config"
	"btc-signal-bot/internal/indicators"
	"btc-signal-bot/internal/types"
)

// Engine reduces indicator, sentiment, order-book, and news inputs to a
// weighted score plus a per-term attribution breakdown. It is pure: no
// I/O, no clock, and missing inputs degrade their term to zero instead
// of failing.
type Engine struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Score evaluates every contributing factor independently and returns the
// total alongside the breakdown in evaluation order. The entry scores
// always sum to the returned total.
func (e *Engine) Score(store indicators.Store, sentiment *types.SentimentReading, book *types.OrderBookReading, news []types.NewsItem) (float64, []types.ScoreEntry) {
	total := 0.0
	breakdown := make([]types.ScoreEntry, 0, 8)

	add := func(entry types.ScoreEntry) {
		total += entry.Score
		breakdown = append(breakdown, entry)
	}

	// News sentiment. A neutral entry is kept even without usable news
	// so the published attribution explains the gap.
	if entry, ok := e.newsTerm(news); ok {
		add(entry)
	}

	// Fear & greed index, scaled by the daily timeframe weight.
	if entry, ok := e.sentimentTerm(sentiment); ok {
		add(entry)
	}

	// Order book pressure.
	if entry, ok := e.orderBookTerm(book); ok {
		add(entry)
	}

	// Per-timeframe technicals, in configured timeframe order.
	for _, tf := range store.Timeframes() {
		reading, ok := store.Get(tf)
		if !ok {
			continue
		}
		for _, entry := range e.technicalTerms(tf, reading) {
			add(entry)
		}
	}

	return total, breakdown
}

func (e *Engine) newsTerm(news []types.NewsItem) (types.ScoreEntry, bool) {
	if len(news) == 0 {
		return types.ScoreEntry{Name: "news sentiment", Score: 0, Note: "no relevant news"}, true
	}

	sum, n := 0.0, 0
	for _, item := range news {
		if !item.Scored {
			continue
		}
		sum += item.SentimentScore
		n++
	}
	if n == 0 {
		return types.ScoreEntry{Name: "news sentiment", Score: 0, Note: "no usable sentiment scores"}, true
	}

	avg := sum / float64(n)
	return types.ScoreEntry{
		Name:  fmt.Sprintf("news avg sentiment(%.2f)", avg),
		Score: avg * e.cfg.Weights.NewsSentiment,
	}, true
}

func (e *Engine) sentimentTerm(sentiment *types.SentimentReading) (types.ScoreEntry, bool) {
	if sentiment == nil {
		return types.ScoreEntry{}, false
	}

	t := e.cfg.Thresholds
	value := float64(sentiment.Value)

	base := 0.0
	switch {
	case value < t.FNGExtremeLow:
		base = e.cfg.Weights.FNGExtreme
	case value < t.FNGLow:
		base = e.cfg.Weights.FNGNormal
	case value > t.FNGExtremeHigh:
		base = -e.cfg.Weights.FNGExtreme
	case value > t.FNGHigh:
		base = -e.cfg.Weights.FNGNormal
	}
	if base == 0 {
		return types.ScoreEntry{}, false
	}

	return types.ScoreEntry{
		Name:  fmt.Sprintf("F&G index(%d-%s)", sentiment.Value, sentiment.Classification),
		Score: base * e.cfg.DailyWeight(),
	}, true
}

func (e *Engine) orderBookTerm(book *types.OrderBookReading) (types.ScoreEntry, bool) {
	if book == nil || !book.Available {
		return types.ScoreEntry{}, false
	}

	t := e.cfg.Thresholds
	base := 0.0
	switch {
	case book.BidAskRatio > t.OrderBookBuyRatio:
		base = e.cfg.Weights.OrderBook
	case book.BidAskRatio < t.OrderBookSellRatio:
		base = -e.cfg.Weights.OrderBook
	}
	if base == 0 {
		return types.ScoreEntry{}, false
	}

	return types.ScoreEntry{
		Name:  fmt.Sprintf("order book bid/ask(%.2f)", book.BidAskRatio),
		Score: base,
	}, true
}

func (e *Engine) technicalTerms(tf types.Timeframe, reading types.IndicatorReading) []types.ScoreEntry {
	tfWeight := e.cfg.TimeframeWeight(tf)
	periods := e.cfg.Periods[tf]
	w := e.cfg.Weights

	entries := make([]types.ScoreEntry, 0, 4)

	if reading.Signals.GoldenCross {
		entries = append(entries, types.ScoreEntry{
			Name:  fmt.Sprintf("%s EMA golden cross", tf),
			Score: w.EMACross * tfWeight,
		})
	}
	if reading.Signals.DeathCross {
		entries = append(entries, types.ScoreEntry{
			Name:  fmt.Sprintf("%s EMA death cross", tf),
			Score: -w.EMACross * tfWeight,
		})
	}

	if reading.RSI != nil {
		rsi := *reading.RSI
		if rsi < periods.RSIBuy {
			entries = append(entries, types.ScoreEntry{
				Name:  fmt.Sprintf("%s RSI oversold(%.1f)", tf, rsi),
				Score: w.RSIExtreme * tfWeight,
			})
		} else if rsi > periods.RSISell {
			entries = append(entries, types.ScoreEntry{
				Name:  fmt.Sprintf("%s RSI overbought(%.1f)", tf, rsi),
				Score: -w.RSIExtreme * tfWeight,
			})
		}
	}

	if reading.Signals.KDJGoldenCross {
		entries = append(entries, types.ScoreEntry{
			Name:  fmt.Sprintf("%s KDJ golden cross", tf),
			Score: w.KDJCross * tfWeight,
		})
	}
	if reading.Signals.KDJDeathCross {
		entries = append(entries, types.ScoreEntry{
			Name:  fmt.Sprintf("%s KDJ death cross", tf),
			Score: -w.KDJCross * tfWeight,
		})
	}

	if e.cfg.IsTrendTimeframe(tf) {
		if reading.Signals.EMABullishTrend {
			entries = append(entries, types.ScoreEntry{
				Name:  fmt.Sprintf("%s EMA bullish alignment", tf),
				Score: w.EMATrend * tfWeight,
			})
		}
		if reading.Signals.EMABearishTrend {
			entries = append(entries, types.ScoreEntry{
				Name:  fmt.Sprintf("%s EMA bearish alignment", tf),
				Score: -w.EMATrend * tfWeight,
			})
		}
	}

	return entries
}

// Interpret maps the total score onto the 5-way decision ladder.
func (e *Engine) Interpret(score float64) types.Decision {
	t := e.cfg.Thresholds
	switch {
	case score >= t.Strong:
		return types.DecisionStrongBuy
	case score >= t.Normal:
		return types.DecisionBuy
	case score <= -t.Strong:
		return types.DecisionStrongSell
	case score <= -t.Normal:
		return types.DecisionSell
	default:
		return types.DecisionHold
	}
}

// SortByImpact returns a copy of the breakdown ordered by absolute score
// descending, the order used for display. The engine's own output keeps
// evaluation order.
func SortByImpact(entries []types.ScoreEntry) []types.ScoreEntry {
	out := make([]types.ScoreEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return abs(out[i].Score) > abs(out[j].Score)
	})
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
