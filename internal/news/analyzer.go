package news

import (
	"strings"

	"btc-signal-bot/internal/types"
)

// Keyword lexicon for scoring scraped headlines. Coarse on purpose: the
// scored news API is the primary sentiment source and this only has to
// be directionally right when that API is down.
var (
	bullishTerms = map[string]float64{
		"surge": 0.4, "soar": 0.4, "rally": 0.35, "breakout": 0.3,
		"all-time high": 0.5, "record high": 0.5, "bullish": 0.4,
		"adoption": 0.25, "approval": 0.3, "etf inflow": 0.35,
		"inflow": 0.2, "gain": 0.2, "jump": 0.25, "climb": 0.2,
		"recover": 0.2, "buy": 0.15, "accumulate": 0.2,
	}
	bearishTerms = map[string]float64{
		"crash": -0.5, "plunge": -0.45, "plummet": -0.45, "dump": -0.35,
		"bearish": -0.4, "sell-off": -0.4, "selloff": -0.4,
		"hack": -0.4, "exploit": -0.35, "ban": -0.35, "lawsuit": -0.3,
		"crackdown": -0.3, "outflow": -0.2, "drop": -0.25, "fall": -0.2,
		"slump": -0.3, "liquidation": -0.3, "fear": -0.15,
	}
)

// Analyzer assigns sentiment scores to unscored headlines.
type Analyzer struct{}

func NewAnalyzer() *Analyzer { return &Analyzer{} }

// Score fills in SentimentScore and SentimentLevel for every unscored
// item. Already scored items pass through untouched.
func (a *Analyzer) Score(items []types.NewsItem) []types.NewsItem {
	out := make([]types.NewsItem, len(items))
	copy(out, items)

	for i := range out {
		if out[i].Scored {
			continue
		}
		score := scoreHeadline(out[i].Title)
		out[i].SentimentScore = score
		out[i].SentimentLevel = classifyScore(score)
		out[i].Scored = true
	}
	return out
}

// scoreHeadline sums matched term weights and clamps to [-1, 1].
func scoreHeadline(title string) float64 {
	lower := strings.ToLower(title)

	score := 0.0
	for term, w := range bullishTerms {
		if strings.Contains(lower, term) {
			score += w
		}
	}
	for term, w := range bearishTerms {
		if strings.Contains(lower, term) {
			score += w
		}
	}

	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score
}
