package indicators

import (
	"math"

	"btc-signal-bot/internal/config"
	"btc-signal-bot/internal/ta"
	"btc-signal-bot/internal/types"
)

// Store is the typed per-timeframe indicator map. Timeframes with too
// little history for cross detection (fewer than two candles) are absent
// rather than defaulted, so scoring skips them entirely.
type Store struct {
	readings map[types.Timeframe]types.IndicatorReading
	order    []types.Timeframe
}

func (s Store) Get(tf types.Timeframe) (types.IndicatorReading, bool) {
	r, ok := s.readings[tf]
	return r, ok
}

// Timeframes returns the present timeframes in configured order.
func (s Store) Timeframes() []types.Timeframe {
	return s.order
}

func (s Store) Readings() []types.IndicatorReading {
	out := make([]types.IndicatorReading, 0, len(s.order))
	for _, tf := range s.order {
		out = append(out, s.readings[tf])
	}
	return out
}

func (s Store) Len() int { return len(s.order) }

// Empty returns a Store with no readings, used by tests and degraded runs.
func Empty() Store {
	return Store{readings: map[types.Timeframe]types.IndicatorReading{}}
}

// FromReadings builds a Store directly from prepared readings, keeping
// their order. Used by tests and anything replaying stored snapshots.
func FromReadings(readings ...types.IndicatorReading) Store {
	store := Store{readings: make(map[types.Timeframe]types.IndicatorReading, len(readings))}
	for _, r := range readings {
		if _, dup := store.readings[r.Timeframe]; dup {
			continue
		}
		store.readings[r.Timeframe] = r
		store.order = append(store.order, r.Timeframe)
	}
	return store
}

// Snapshot recomputes every timeframe's reading from freshly fetched
// candles. Nothing is persisted between invocations.
func Snapshot(cfg *config.Config, candles map[types.Timeframe][]types.Candle) Store {
	store := Store{readings: make(map[types.Timeframe]types.IndicatorReading, len(cfg.Timeframes))}
	for _, tf := range cfg.Timeframes {
		series, ok := candles[tf]
		if !ok || len(series) < 2 {
			continue
		}
		reading := compute(cfg, tf, series)
		store.readings[tf] = reading
		store.order = append(store.order, tf)
	}
	return store
}

func compute(cfg *config.Config, tf types.Timeframe, candles []types.Candle) types.IndicatorReading {
	periods := cfg.Periods[tf]

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	reading := types.IndicatorReading{Timeframe: tf}
	reading.Price = fptr(closes[len(closes)-1])
	reading.SMA = fptr(ta.SMA(closes, periods.SMAPeriod))
	reading.RSI = fptr(ta.RSI(closes, periods.RSIPeriod))

	ema12 := ta.EMASeries(closes, 12)
	ema26 := ta.EMASeries(closes, 26)
	reading.EMA12 = fptr(ema12[len(ema12)-1])
	reading.EMA26 = fptr(ema26[len(ema26)-1])
	reading.Signals.GoldenCross = ta.CrossUp(ema12, ema26)
	reading.Signals.DeathCross = ta.CrossDown(ema12, ema26)

	if k, d, j := ta.KDJSeries(highs, lows, closes, 9); k != nil {
		reading.K = fptr(k[len(k)-1])
		reading.D = fptr(d[len(d)-1])
		reading.J = fptr(j[len(j)-1])
		reading.Signals.KDJGoldenCross = ta.CrossUp(k, d)
		reading.Signals.KDJDeathCross = ta.CrossDown(k, d)
	}

	if cfg.IsTrendTimeframe(tf) {
		price := closes[len(closes)-1]
		e12 := ema12[len(ema12)-1]
		e26 := ema26[len(ema26)-1]
		reading.Signals.EMABullishTrend = price > e12 && e12 > e26
		reading.Signals.EMABearishTrend = price < e12 && e12 < e26
	}

	// Pivot levels come from the prior closed candle, never the
	// in-progress one.
	prev := candles[len(candles)-2]
	pivot := ta.PivotLevels(prev.High, prev.Low, prev.Close)
	reading.Pivot = &types.PivotLevels{
		Pivot:      pivot.Pivot,
		Resistance: pivot.Resistance,
		Support:    pivot.Support,
	}

	return reading
}

func fptr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
