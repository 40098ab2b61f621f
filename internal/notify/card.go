package notify

import (
	"fmt"
	"strings"
	"time"

	"btc-signal-bot/internal/engine"
	"btc-signal-bot/internal/types"
)

// Feishu interactive card structures. Only the subset the report card
// needs is modelled.
type card struct {
	Config   cardConfig `json:"config"`
	Header   cardHeader `json:"header"`
	Elements []any      `json:"elements"`
}

type cardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
	EnableForward  bool `json:"enable_forward"`
}

type cardHeader struct {
	Title    textBlock `json:"title"`
	Template string    `json:"template"`
}

type textBlock struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type divBlock struct {
	Tag    string      `json:"tag"`
	Text   *textBlock  `json:"text,omitempty"`
	Fields []cardField `json:"fields,omitempty"`
}

type cardField struct {
	IsShort bool      `json:"is_short"`
	Text    textBlock `json:"text"`
}

type hrBlock struct {
	Tag string `json:"tag"`
}

type noteBlock struct {
	Tag      string      `json:"tag"`
	Elements []textBlock `json:"elements"`
}

func lark(content string) textBlock {
	return textBlock{Tag: "lark_md", Content: content}
}

func shortField(content string) cardField {
	return cardField{IsShort: true, Text: lark(content)}
}

func wideField(content string) cardField {
	return cardField{IsShort: false, Text: lark(content)}
}

// headerColor maps a decision onto the card accent color.
func headerColor(d types.Decision) string {
	switch d {
	case types.DecisionBuy, types.DecisionStrongBuy:
		return "green"
	case types.DecisionSell, types.DecisionStrongSell:
		return "red"
	default:
		return "blue"
	}
}

// buildCard renders the full report card. Missing sections render as
// unavailable instead of being omitted, so a degraded run still produces
// a recognizable card.
func buildCard(r *types.Report) card {
	// The headline decision prefers the model's advice; the rule engine
	// decision remains in its own section either way.
	headline := r.Decision.Label()
	source := "Rule Engine"
	color := headerColor(r.Decision)
	if r.Advisor != nil && r.Advisor.Success {
		headline = r.Advisor.Decision
		source = "AI Advisor"
		color = adviceColor(r.Advisor.Decision)
	}

	elements := []any{
		divBlock{Tag: "div", Fields: []cardField{
			shortField("**BTC Price**\n" + priceText(r.Price)),
			shortField("**24h Change**\n" + changeText(r.Price)),
		}},
		divBlock{Tag: "div", Fields: []cardField{
			shortField("**F&G Index**\n" + sentimentText(r.Sentiment)),
			shortField("**Generated**\n" + r.GeneratedAt.Format(time.DateTime)),
		}},
		divBlock{Tag: "div", Fields: []cardField{
			wideField("**Order Book**: " + orderBookText(r.OrderBook)),
		}},
		hrBlock{Tag: "hr"},
	}

	for _, reading := range r.Readings {
		elements = append(elements, timeframeBlock(reading))
	}
	elements = append(elements, hrBlock{Tag: "hr"})

	elements = append(elements, advisorBlocks(r.Advisor)...)

	elements = append(elements,
		hrBlock{Tag: "hr"},
		divBlock{Tag: "div", Text: ptr(lark(fmt.Sprintf("**Rule Engine Decision: %s** (score %.1f)", r.Decision.Label(), r.Score)))},
		divBlock{Tag: "div", Text: ptr(lark(explanationText(r)))},
		divBlock{Tag: "div", Text: ptr(lark(attributionText(r.Breakdown)))},
		noteBlock{Tag: "note", Elements: []textBlock{{
			Tag:     "plain_text",
			Content: "Risk notice: automated technical analysis, not investment advice.",
		}}},
	)

	return card{
		Config: cardConfig{WideScreenMode: true, EnableForward: true},
		Header: cardHeader{
			Title:    textBlock{Tag: "plain_text", Content: fmt.Sprintf("Market Watch · %s: %s", source, headline)},
			Template: color,
		},
		Elements: elements,
	}
}

// adviceColor colors the card from free-form advisor text, which does not
// map onto the Decision enum.
func adviceColor(decision string) string {
	lower := strings.ToLower(decision)
	switch {
	case strings.Contains(lower, "buy"):
		return "green"
	case strings.Contains(lower, "sell"):
		return "red"
	default:
		return "blue"
	}
}

func priceText(p *types.PriceReading) string {
	if p == nil {
		return "unavailable"
	}
	return fmt.Sprintf("$%.2f", p.Price)
}

func changeText(p *types.PriceReading) string {
	if p == nil {
		return "unavailable"
	}
	return fmt.Sprintf("%+.2f%%", p.Change24hPct)
}

func sentimentText(s *types.SentimentReading) string {
	if s == nil {
		return "unavailable"
	}
	return fmt.Sprintf("%d (%s)", s.Value, s.Classification)
}

func orderBookText(b *types.OrderBookReading) string {
	if b == nil || !b.Available {
		return "unavailable"
	}
	text := fmt.Sprintf("bid/ask %.2f | spread %.2f%%", b.BidAskRatio, b.SpreadPct)
	if len(b.Bids) > 0 && len(b.Asks) > 0 {
		text += fmt.Sprintf(" | best bid $%.2f | best ask $%.2f", b.Bids[0].Price, b.Asks[0].Price)
	}
	return text
}

func timeframeBlock(r types.IndicatorReading) divBlock {
	left := fmt.Sprintf("**%s**\nRSI: %s\nSMA: %s", r.Timeframe, rsiText(r.RSI), fmtOptPrice(r.SMA))
	right := fmt.Sprintf("**%s crosses**\nEMA: %s\nKDJ: %s",
		r.Timeframe,
		crossText(r.Signals.GoldenCross, r.Signals.DeathCross),
		crossText(r.Signals.KDJGoldenCross, r.Signals.KDJDeathCross))
	if r.Pivot != nil {
		left += fmt.Sprintf("\nPivot: $%.2f (R1 $%.2f / S1 $%.2f)", r.Pivot.Pivot, r.Pivot.Resistance[0], r.Pivot.Support[0])
	}
	return divBlock{Tag: "div", Fields: []cardField{shortField(left), shortField(right)}}
}

func rsiText(rsi *float64) string {
	if rsi == nil {
		return "n/a"
	}
	zone := "neutral"
	if *rsi > 70 {
		zone = "overbought"
	} else if *rsi < 30 {
		zone = "oversold"
	}
	return fmt.Sprintf("%.2f (%s)", *rsi, zone)
}

func fmtOptPrice(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func crossText(golden, death bool) string {
	switch {
	case golden:
		return "🔼 golden"
	case death:
		return "🔽 death"
	default:
		return "none"
	}
}

func advisorBlocks(a *types.AdvisorResult) []any {
	if a == nil {
		return []any{divBlock{Tag: "div", Text: ptr(lark("**AI Advisor:** not requested"))}}
	}
	if !a.Success {
		reason := a.Reason
		if reason == "" {
			reason = "unknown error"
		}
		return []any{divBlock{Tag: "div", Text: ptr(lark(
			fmt.Sprintf("**AI Advisor (%s):** unavailable\n%s", a.ModelUsed, reason)))}}
	}
	return []any{
		divBlock{Tag: "div", Text: ptr(lark(fmt.Sprintf("**AI Advisor (%s): %s**", a.ModelUsed, a.Decision)))},
		divBlock{Tag: "div", Text: ptr(lark(a.Reason))},
	}
}

// explanationText names the dominant signals, or explains the hold.
func explanationText(r *types.Report) string {
	ranked := engine.SortByImpact(r.Breakdown)
	top := []string{}
	for _, e := range ranked {
		if e.Score == 0 {
			continue
		}
		top = append(top, e.Name)
		if len(top) == 2 {
			break
		}
	}
	if r.Decision == types.DecisionHold || len(top) == 0 {
		return "👉 **Explanation**: signals disagree or none are strong."
	}
	return "👉 **Main signals**: " + strings.Join(top, ", ")
}

// attributionText lists nonzero contributions, strongest first.
func attributionText(breakdown []types.ScoreEntry) string {
	ranked := engine.SortByImpact(breakdown)
	parts := []string{}
	for _, e := range ranked {
		if e.Score == 0 {
			continue
		}
		sign := ""
		if e.Score > 0 {
			sign = "+"
		}
		parts = append(parts, fmt.Sprintf("%s: %s%.1f", e.Name, sign, e.Score))
	}
	if len(parts) == 0 {
		return "No contributing signals."
	}
	return strings.Join(parts, ", ")
}

func ptr[T any](v T) *T { return &v }
