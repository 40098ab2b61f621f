package llm

import (
	"strings"
	"testing"
	"time"

	"btc-signal-bot/internal/types"
)

func TestBuildPromptContent(t *testing.T) {
	report := &types.Report{
		GeneratedAt: time.Now(),
		Price:       &types.PriceReading{Price: 65000.88, Change24hPct: -2.55},
		Sentiment:   &types.SentimentReading{Value: 28, Classification: "Fear"},
		Score:       -7.5,
		Decision:    types.DecisionSell,
		Breakdown: []types.ScoreEntry{
			{Name: "1d EMA death cross", Score: -6},
			{Name: "15m RSI oversold(24.1)", Score: 4},
			{Name: "news sentiment", Score: 0, Note: "no relevant news"},
		},
	}

	prompt := BuildPrompt(report)

	for _, want := range []string{
		"$65000.88",
		"-2.55%",
		"28 (Fear)",
		"Bullish signals:",
		"- 15m RSI oversold(24.1): +4.0",
		"Bearish signals:",
		"- 1d EMA death cross: -6.0",
		"Neutral signals:",
		"- news sentiment",
		"Decision: <Strong Buy / Buy / Hold / Sell / Strong Sell>",
		"Reason:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
}

func TestBuildPromptDegradedInputs(t *testing.T) {
	report := &types.Report{Decision: types.DecisionHold}

	prompt := BuildPrompt(report)

	if !strings.Contains(prompt, "unavailable") {
		t.Error("Expected missing data to render as unavailable")
	}
	if !strings.Contains(prompt, "No clear bullish or bearish signals.") {
		t.Error("Expected the empty-breakdown placeholder")
	}
	if !strings.Contains(prompt, "Decision: <Strong Buy / Buy / Hold / Sell / Strong Sell>") {
		t.Error("Output format block must always be present")
	}
}
