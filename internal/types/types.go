package types

import "time"

// Timeframe is a candle aggregation interval, e.g. "15m", "4h", "1d".
type Timeframe string

const (
	Timeframe15m Timeframe = "15m"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

type Candle struct {
	OpenTime                       int64
	Open, High, Low, Close, Volume float64
}

// PriceReading is the spot price snapshot from CoinGecko.
type PriceReading struct {
	Price        float64 `json:"price"`
	Change24hPct float64 `json:"change_24h_pct"`
}

// SentimentReading is the fear & greed index (0-100) from alternative.me.
type SentimentReading struct {
	Value          int    `json:"value"`
	Classification string `json:"classification"`
}

type OrderBookLevel struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// OrderBookReading summarizes Binance depth. Available=false means the
// fetch failed and the reading must not contribute to scoring.
type OrderBookReading struct {
	Bids        []OrderBookLevel `json:"bids"`
	Asks        []OrderBookLevel `json:"asks"`
	BidAskRatio float64          `json:"bid_ask_ratio"`
	SpreadPct   float64          `json:"spread_pct"`
	Available   bool             `json:"available"`
}

type NewsItem struct {
	Title          string  `json:"title"`
	PublishedAt    string  `json:"published_at"`
	Symbol         string  `json:"symbol"`
	SentimentScore float64 `json:"sentiment_score"`
	SentimentLevel string  `json:"sentiment_level"`
	Scored         bool    `json:"scored"`
}

// Signals are the boolean cross/trend flags derived from two consecutive
// candles. Trend flags are only set for the longer timeframes.
type Signals struct {
	GoldenCross     bool `json:"golden_cross"`
	DeathCross      bool `json:"death_cross"`
	KDJGoldenCross  bool `json:"kdj_golden_cross"`
	KDJDeathCross   bool `json:"kdj_death_cross"`
	EMABullishTrend bool `json:"ema_bullish_trend"`
	EMABearishTrend bool `json:"ema_bearish_trend"`
}

// PivotLevels are computed from the prior closed candle, never the
// in-progress one.
type PivotLevels struct {
	Pivot      float64    `json:"pivot"`
	Resistance [3]float64 `json:"resistance"`
	Support    [3]float64 `json:"support"`
}

// IndicatorReading holds one timeframe's technical readings. Nil fields
// mean the value could not be computed from the available history.
type IndicatorReading struct {
	Timeframe Timeframe    `json:"timeframe"`
	Price     *float64     `json:"price,omitempty"`
	SMA       *float64     `json:"sma,omitempty"`
	RSI       *float64     `json:"rsi,omitempty"`
	EMA12     *float64     `json:"ema12,omitempty"`
	EMA26     *float64     `json:"ema26,omitempty"`
	K         *float64     `json:"k,omitempty"`
	D         *float64     `json:"d,omitempty"`
	J         *float64     `json:"j,omitempty"`
	Signals   Signals      `json:"signals"`
	Pivot     *PivotLevels `json:"pivot,omitempty"`
}

// ScoreEntry is one attributed contribution to the total score. Zero-score
// entries carry a Note explaining why the term is neutral.
type ScoreEntry struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Note  string  `json:"note,omitempty"`
}

// Decision is the 5-way recommendation ladder.
type Decision string

const (
	DecisionStrongBuy  Decision = "strong_buy"
	DecisionBuy        Decision = "buy"
	DecisionHold       Decision = "hold"
	DecisionSell       Decision = "sell"
	DecisionStrongSell Decision = "strong_sell"
)

// Label returns the display form used in published reports.
func (d Decision) Label() string {
	switch d {
	case DecisionStrongBuy:
		return "🟢🟢 Strong Buy"
	case DecisionBuy:
		return "🟢 Buy"
	case DecisionSell:
		return "🔴 Sell"
	case DecisionStrongSell:
		return "🔴🔴 Strong Sell"
	default:
		return "🟡 Hold"
	}
}

// AdvisorResult is the outcome of one model orchestration run.
type AdvisorResult struct {
	Success   bool   `json:"success"`
	Decision  string `json:"decision_text"`
	Reason    string `json:"reason"`
	ModelUsed string `json:"model_used"`
}

// Report is what the publisher consumes. Nil sections render as
// unavailable rather than being required.
type Report struct {
	GeneratedAt time.Time
	Price       *PriceReading
	Sentiment   *SentimentReading
	OrderBook   *OrderBookReading
	News        []NewsItem
	Readings    []IndicatorReading
	Score       float64
	Breakdown   []ScoreEntry
	Decision    Decision
	Advisor     *AdvisorResult
}
