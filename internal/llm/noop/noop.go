package noop

import (
	"context"

	"btc-signal-bot/internal/llm"
	"btc-signal-bot/internal/types"
)

// Advisor is used when model advice is disabled. The report then carries
// only the rule engine's decision.
type Advisor struct{}

var _ llm.Advisor = (*Advisor)(nil)

func New() *Advisor { return &Advisor{} }

func (a *Advisor) Advise(ctx context.Context, prompt string) (types.AdvisorResult, error) {
	return types.AdvisorResult{ModelUsed: "none", Reason: "model advice disabled"}, nil
}
