package indicators

import (
	"math"
	"testing"

	"btc-signal-bot/internal/config"
	"btc-signal-bot/internal/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("Default config failed: %v", err)
	}
	return cfg
}

func syntheticCandles(n int, start float64, step float64) []types.Candle {
	candles := make([]types.Candle, n)
	price := start
	for i := range candles {
		candles[i] = types.Candle{
			OpenTime: int64(i) * 60_000,
			Open:     price,
			High:     price * 1.01,
			Low:      price * 0.99,
			Close:    price + step,
			Volume:   100,
		}
		price += step
	}
	return candles
}

func TestSnapshotSkipsInsufficientHistory(t *testing.T) {
	cfg := testConfig(t)
	candles := map[types.Timeframe][]types.Candle{
		types.Timeframe15m: syntheticCandles(100, 60000, 10),
		types.Timeframe4h:  syntheticCandles(1, 60000, 10),
		// 1d missing entirely
	}

	store := Snapshot(cfg, candles)

	if store.Len() != 1 {
		t.Fatalf("Expected exactly one timeframe, got %d", store.Len())
	}
	if _, ok := store.Get(types.Timeframe15m); !ok {
		t.Error("15m reading should be present")
	}
	if _, ok := store.Get(types.Timeframe4h); ok {
		t.Error("4h with a single candle must be absent, not defaulted")
	}
	if _, ok := store.Get(types.Timeframe1d); ok {
		t.Error("Missing 1d data must be absent")
	}
}

func TestSnapshotKeepsConfiguredOrder(t *testing.T) {
	cfg := testConfig(t)
	candles := map[types.Timeframe][]types.Candle{
		types.Timeframe1d:  syntheticCandles(50, 60000, 5),
		types.Timeframe15m: syntheticCandles(50, 60000, 5),
		types.Timeframe4h:  syntheticCandles(50, 60000, 5),
	}

	store := Snapshot(cfg, candles)

	tfs := store.Timeframes()
	want := []types.Timeframe{types.Timeframe15m, types.Timeframe4h, types.Timeframe1d}
	if len(tfs) != len(want) {
		t.Fatalf("Expected %d timeframes, got %d", len(want), len(tfs))
	}
	for i := range want {
		if tfs[i] != want[i] {
			t.Errorf("Timeframe order [%d] = %s, want %s", i, tfs[i], want[i])
		}
	}
}

func TestComputeBasicIndicators(t *testing.T) {
	cfg := testConfig(t)
	candles := map[types.Timeframe][]types.Candle{
		types.Timeframe15m: syntheticCandles(100, 60000, 10),
	}

	store := Snapshot(cfg, candles)
	reading, ok := store.Get(types.Timeframe15m)
	if !ok {
		t.Fatal("Expected a 15m reading")
	}

	if reading.Price == nil || reading.SMA == nil || reading.RSI == nil {
		t.Fatal("Price, SMA, and RSI should all be computed with 100 candles")
	}
	if reading.EMA12 == nil || reading.EMA26 == nil {
		t.Fatal("EMA values should be computed")
	}
	if reading.K == nil || reading.D == nil || reading.J == nil {
		t.Fatal("KDJ values should be computed with 100 candles")
	}

	// A steadily rising series keeps RSI pinned high.
	if *reading.RSI < 90 {
		t.Errorf("RSI of a pure uptrend should be high, got %f", *reading.RSI)
	}
	if math.IsNaN(*reading.SMA) {
		t.Error("SMA must not be NaN here")
	}
}

func TestPivotFromPriorCandle(t *testing.T) {
	cfg := testConfig(t)
	candles := syntheticCandles(30, 60000, 0)
	// Prior closed candle gets distinctive levels; the last candle is the
	// in-progress one and must not drive the pivot.
	candles[28] = types.Candle{High: 110, Low: 90, Close: 100}
	candles[29] = types.Candle{High: 500, Low: 400, Close: 450}

	store := Snapshot(cfg, map[types.Timeframe][]types.Candle{types.Timeframe15m: candles})
	reading, _ := store.Get(types.Timeframe15m)

	if reading.Pivot == nil {
		t.Fatal("Expected pivot levels")
	}
	if reading.Pivot.Pivot != 100 {
		t.Errorf("Pivot = %f, want 100 from the prior candle", reading.Pivot.Pivot)
	}
	if reading.Pivot.Resistance[0] != 110 || reading.Pivot.Support[0] != 90 {
		t.Errorf("R1/S1 = %f/%f, want 110/90", reading.Pivot.Resistance[0], reading.Pivot.Support[0])
	}
}

func TestTrendFlagsOnlyOnTrendTimeframes(t *testing.T) {
	cfg := testConfig(t)
	rising := syntheticCandles(100, 60000, 50)
	candles := map[types.Timeframe][]types.Candle{
		types.Timeframe15m: rising,
		types.Timeframe4h:  rising,
	}

	store := Snapshot(cfg, candles)

	short, _ := store.Get(types.Timeframe15m)
	if short.Signals.EMABullishTrend || short.Signals.EMABearishTrend {
		t.Error("15m must never carry trend flags")
	}

	long, _ := store.Get(types.Timeframe4h)
	if !long.Signals.EMABullishTrend {
		t.Error("A sustained 4h uptrend should set the bullish trend flag")
	}
	if long.Signals.EMABearishTrend {
		t.Error("Bullish and bearish trend flags are mutually exclusive")
	}
}

func TestFromReadingsDedupes(t *testing.T) {
	store := FromReadings(
		types.IndicatorReading{Timeframe: types.Timeframe15m},
		types.IndicatorReading{Timeframe: types.Timeframe15m},
		types.IndicatorReading{Timeframe: types.Timeframe4h},
	)
	if store.Len() != 2 {
		t.Errorf("Expected duplicate timeframes to collapse, got %d", store.Len())
	}
}
