package ta

import "math"

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// EMASeries returns the full exponential moving average series, seeded
// with the first value.
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSISeries computes Wilder-smoothed RSI. Entries before the first full
// period are NaN.
func RSISeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) <= period {
		return nil
	}
	series := make([]float64, len(closes))
	for i := range series {
		series[i] = math.NaN()
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gainSum += d
		} else {
			lossSum -= d
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain := math.Max(d, 0)
		loss := math.Max(-d, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return series
}

func RSI(closes []float64, period int) float64 {
	s := RSISeries(closes, period)
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// KDJSeries computes the stochastic K/D/J lines with the conventional
// (9,3,3) smoothing; pass n=9. K and D start from the neutral 50 line.
func KDJSeries(highs, lows, closes []float64, n int) (k, d, j []float64) {
	if n <= 0 || len(closes) < n || len(highs) != len(closes) || len(lows) != len(closes) {
		return nil, nil, nil
	}
	k = make([]float64, len(closes))
	d = make([]float64, len(closes))
	j = make([]float64, len(closes))

	prevK, prevD := 50.0, 50.0
	for i := range closes {
		if i < n-1 {
			k[i], d[i], j[i] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		hh, ll := highs[i], lows[i]
		for t := i - n + 1; t < i; t++ {
			hh = math.Max(hh, highs[t])
			ll = math.Min(ll, lows[t])
		}
		rsv := 50.0
		if hh != ll {
			rsv = (closes[i] - ll) / (hh - ll) * 100
		}
		prevK = prevK*2/3 + rsv/3
		prevD = prevD*2/3 + prevK/3
		k[i] = prevK
		d[i] = prevD
		j[i] = 3*prevK - 2*prevD
	}
	return k, d, j
}

type Pivot struct {
	Pivot      float64
	Resistance [3]float64
	Support    [3]float64
}

// PivotLevels computes classic floor-trader pivots from one completed
// candle's high, low, and close.
func PivotLevels(high, low, close float64) Pivot {
	p := (high + low + close) / 3
	return Pivot{
		Pivot: p,
		Resistance: [3]float64{
			2*p - low,
			p + (high - low),
			high + 2*(p-low),
		},
		Support: [3]float64{
			2*p - high,
			p - (high - low),
			low - 2*(high-p),
		},
	}
}

// CrossUp reports whether series a crossed above series b between the
// last two entries.
func CrossUp(a, b []float64) bool {
	n := len(a)
	if n < 2 || len(b) != n {
		return false
	}
	if math.IsNaN(a[n-2]) || math.IsNaN(b[n-2]) || math.IsNaN(a[n-1]) || math.IsNaN(b[n-1]) {
		return false
	}
	return a[n-2] < b[n-2] && a[n-1] > b[n-1]
}

// CrossDown reports whether series a crossed below series b between the
// last two entries.
func CrossDown(a, b []float64) bool {
	n := len(a)
	if n < 2 || len(b) != n {
		return false
	}
	if math.IsNaN(a[n-2]) || math.IsNaN(b[n-2]) || math.IsNaN(a[n-1]) || math.IsNaN(b[n-1]) {
		return false
	}
	return a[n-2] > b[n-2] && a[n-1] < b[n-1]
}
