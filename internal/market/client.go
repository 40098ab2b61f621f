package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"btc-signal-bot/internal/logger"
	"btc-signal-bot/internal/trace"
	"btc-signal-bot/internal/types"
)

const (
	defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	defaultFearGreedURL = "https://api.alternative.me/fng/"
	defaultBinanceURL   = "https://api.binance.com"
)

// Client fetches the public market-data endpoints the pipeline consumes.
// Each fetch is independent; a failed source degrades that section of the
// report instead of aborting the run.
type Client struct {
	httpClient   *http.Client
	coinGeckoURL string
	fearGreedURL string
	binanceURL   string
	maxRetries   int
	retryDelay   time.Duration
}

type Option func(*Client)

// WithBaseURLs overrides the upstream endpoints, used by tests.
func WithBaseURLs(coinGecko, fearGreed, binance string) Option {
	return func(c *Client) {
		if coinGecko != "" {
			c.coinGeckoURL = coinGecko
		}
		if fearGreed != "" {
			c.fearGreedURL = fearGreed
		}
		if binance != "" {
			c.binanceURL = binance
		}
	}
}

// WithRetry overrides the retry policy, used by tests.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = attempts
		c.retryDelay = delay
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		coinGeckoURL: defaultCoinGeckoURL,
		fearGreedURL: defaultFearGreedURL,
		binanceURL:   defaultBinanceURL,
		maxRetries:   3,
		retryDelay:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON issues a GET with bounded retries and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	u := rawURL
	if len(params) > 0 {
		u = rawURL + "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				err = json.NewDecoder(resp.Body).Decode(out)
				resp.Body.Close()
				if err == nil {
					return nil
				}
				lastErr = fmt.Errorf("decode %s: %w", rawURL, err)
			} else {
				resp.Body.Close()
				lastErr = fmt.Errorf("%s: http %d", rawURL, resp.StatusCode)
			}
		} else {
			lastErr = err
		}

		logger.Warn(ctx, "Market data request failed",
			"url", rawURL, "attempt", attempt, "max_attempts", c.maxRetries, "error", lastErr)

		if attempt < c.maxRetries {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// Price returns the BTC spot price and 24h change from CoinGecko.
func (c *Client) Price(ctx context.Context) (*types.PriceReading, error) {
	ctx, span := trace.StartSpan(ctx, "market.Price")
	defer span.End()

	params := url.Values{}
	params.Set("ids", "bitcoin")
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_change", "true")

	var body map[string]struct {
		USD       *float64 `json:"usd"`
		USDChange *float64 `json:"usd_24h_change"`
	}
	if err := c.getJSON(ctx, c.coinGeckoURL+"/simple/price", params, &body); err != nil {
		return nil, err
	}

	btc, ok := body["bitcoin"]
	if !ok || btc.USD == nil || btc.USDChange == nil {
		return nil, errors.New("coingecko response missing bitcoin price data")
	}

	reading := &types.PriceReading{Price: *btc.USD, Change24hPct: *btc.USDChange}
	logger.Info(ctx, "Fetched BTC price", "price", reading.Price, "change_24h_pct", reading.Change24hPct)
	return reading, nil
}

// FearGreed returns the latest fear & greed index from alternative.me.
func (c *Client) FearGreed(ctx context.Context) (*types.SentimentReading, error) {
	ctx, span := trace.StartSpan(ctx, "market.FearGreed")
	defer span.End()

	params := url.Values{}
	params.Set("limit", "1")

	var body struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.fearGreedURL, params, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, errors.New("fear & greed response contained no data")
	}

	value, err := strconv.Atoi(body.Data[0].Value)
	if err != nil {
		return nil, fmt.Errorf("fear & greed value %q: %w", body.Data[0].Value, err)
	}

	reading := &types.SentimentReading{Value: value, Classification: body.Data[0].Classification}
	logger.Info(ctx, "Fetched fear & greed index", "value", reading.Value, "classification", reading.Classification)
	return reading, nil
}

// Klines returns up to limit candles for one timeframe, oldest first.
func (c *Client) Klines(ctx context.Context, symbol string, tf types.Timeframe, limit int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "market.Klines")
	defer span.End()

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", string(tf))
	params.Set("limit", strconv.Itoa(limit))

	// Binance kline rows are heterogeneous arrays:
	// [openTime, open, high, low, close, volume, ...]
	var rows [][]json.RawMessage
	if err := c.getJSON(ctx, c.binanceURL+"/api/v3/klines", params, &rows); err != nil {
		return nil, err
	}

	candles := make([]types.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
		}
		var candle types.Candle
		if err := json.Unmarshal(row[0], &candle.OpenTime); err != nil {
			return nil, fmt.Errorf("kline open time: %w", err)
		}
		fields := []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
		for i, dst := range fields {
			var s string
			if err := json.Unmarshal(row[i+1], &s); err != nil {
				return nil, fmt.Errorf("kline field %d: %w", i+1, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kline field %d %q: %w", i+1, s, err)
			}
			*dst = v
		}
		candles = append(candles, candle)
	}

	logger.Info(ctx, "Fetched klines", "symbol", symbol, "timeframe", tf, "count", len(candles))
	return candles, nil
}

// MultiTimeframeKlines fetches candles for every timeframe, skipping
// timeframes whose fetch failed.
func (c *Client) MultiTimeframeKlines(ctx context.Context, symbol string, tfs []types.Timeframe, limit int) map[types.Timeframe][]types.Candle {
	out := make(map[types.Timeframe][]types.Candle, len(tfs))
	for _, tf := range tfs {
		candles, err := c.Klines(ctx, symbol, tf, limit)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to fetch klines for timeframe", err, "symbol", symbol, "timeframe", tf)
			continue
		}
		out[tf] = candles
	}
	return out
}

// Depth fetches the Binance order book and reduces it to a reading.
// Any failure yields Available=false rather than an error: the order
// book is an optional scoring input, never a run blocker.
func (c *Client) Depth(ctx context.Context, symbol string, limit int) *types.OrderBookReading {
	ctx, span := trace.StartSpan(ctx, "market.Depth")
	defer span.End()

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var body struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	if err := c.getJSON(ctx, c.binanceURL+"/api/v3/depth", params, &body); err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch order book depth", err, "symbol", symbol)
		return &types.OrderBookReading{Available: false}
	}

	bids, bidVolume := parseLevels(body.Bids)
	asks, askVolume := parseLevels(body.Asks)
	if len(bids) == 0 || len(asks) == 0 || askVolume == 0 {
		logger.Warn(ctx, "Order book depth empty or unparsable", "symbol", symbol)
		return &types.OrderBookReading{Available: false}
	}

	reading := &types.OrderBookReading{
		Bids:        bids,
		Asks:        asks,
		BidAskRatio: bidVolume / askVolume,
		Available:   true,
	}
	if bids[0].Price > 0 {
		reading.SpreadPct = (asks[0].Price - bids[0].Price) / bids[0].Price * 100
	}

	logger.Info(ctx, "Fetched order book depth",
		"symbol", symbol, "bid_ask_ratio", reading.BidAskRatio, "spread_pct", reading.SpreadPct)
	return reading
}

func parseLevels(raw [][2]string) ([]types.OrderBookLevel, float64) {
	levels := make([]types.OrderBookLevel, 0, len(raw))
	total := 0.0
	for _, pair := range raw {
		price, err1 := strconv.ParseFloat(pair[0], 64)
		amount, err2 := strconv.ParseFloat(pair[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, types.OrderBookLevel{Price: price, Amount: amount})
		total += amount
	}
	return levels, total
}
