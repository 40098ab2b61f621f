package llm

import (
	"fmt"
	"strings"

	"btc-signal-bot/internal/types"
)

// BuildPrompt renders the market snapshot and the rule engine's breakdown
// into the analyst prompt. The output format block is load-bearing:
// ParseAdvice expects the model to answer with the exact Decision/Reason
// structure requested here.
func BuildPrompt(r *types.Report) string {
	var b strings.Builder

	b.WriteString("You are a professional Bitcoin market strategist with macro, technical, and news analysis skills. ")
	b.WriteString("Analyze the market data and quantitative signals below, together with any recent news you can access, and give a trading recommendation for BTC.\n\n")
	b.WriteString("---\n\n")

	b.WriteString("Market data:\n")
	if r.Price != nil {
		fmt.Fprintf(&b, "- Current BTC price: $%.2f\n", r.Price.Price)
		fmt.Fprintf(&b, "- 24h change: %+.2f%%\n", r.Price.Change24hPct)
	} else {
		b.WriteString("- Current BTC price: unavailable\n")
	}
	if r.Sentiment != nil {
		fmt.Fprintf(&b, "- Market sentiment (Fear & Greed index): %d (%s)\n", r.Sentiment.Value, r.Sentiment.Classification)
	} else {
		b.WriteString("- Market sentiment (Fear & Greed index): unavailable\n")
	}

	b.WriteString("\nQuantitative rule engine signals (for reference only):\n")
	writeSignals(&b, r.Breakdown)
	fmt.Fprintf(&b, "\nRule engine total score: %.1f (%s)\n", r.Score, r.Decision.Label())

	b.WriteString("\n---\n\n")
	b.WriteString("Treat the market data and the rule engine signals above as the foundation of your analysis. ")
	b.WriteString("Compare the signals across timeframes (short 15m, medium 4h, long 1d) and note any divergence. ")
	b.WriteString("Factor in market sentiment and any significant recent news or macro events, then form your own independent judgment.\n\n")

	b.WriteString("Answer strictly in the following format and nothing else:\n")
	b.WriteString("Decision: <Strong Buy / Buy / Hold / Sell / Strong Sell>\n")
	b.WriteString("Reason: <a short paragraph covering technicals, sentiment, news impact, and key risks>\n")

	return b.String()
}

func writeSignals(b *strings.Builder, breakdown []types.ScoreEntry) {
	var bullish, bearish, neutral []string
	for _, e := range breakdown {
		switch {
		case e.Score > 0:
			bullish = append(bullish, fmt.Sprintf("- %s: +%.1f", e.Name, e.Score))
		case e.Score < 0:
			bearish = append(bearish, fmt.Sprintf("- %s: %.1f", e.Name, e.Score))
		default:
			neutral = append(neutral, fmt.Sprintf("- %s", e.Name))
		}
	}

	if len(bullish) == 0 && len(bearish) == 0 && len(neutral) == 0 {
		b.WriteString("No clear bullish or bearish signals.\n")
		return
	}
	if len(bullish) > 0 {
		b.WriteString("Bullish signals:\n" + strings.Join(bullish, "\n") + "\n")
	}
	if len(bearish) > 0 {
		b.WriteString("Bearish signals:\n" + strings.Join(bearish, "\n") + "\n")
	}
	if len(neutral) > 0 {
		b.WriteString("Neutral signals:\n" + strings.Join(neutral, "\n") + "\n")
	}
}
