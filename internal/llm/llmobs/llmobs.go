package llmobs

import (
	"context"

	"btc-signal-bot/internal/llm"
	"btc-signal-bot/internal/logger"
	"btc-signal-bot/internal/trace"
	"btc-signal-bot/internal/types"
)

// observableAdvisor wraps an Advisor with logging and tracing.
type observableAdvisor struct {
	advisor llm.Advisor
}

// Compile-time interface check
var _ llm.Advisor = (*observableAdvisor)(nil)

// Wrap wraps an advisor with observability middleware.
func Wrap(advisor llm.Advisor) llm.Advisor {
	return &observableAdvisor{advisor: advisor}
}

func (oa *observableAdvisor) Advise(ctx context.Context, prompt string) (types.AdvisorResult, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Advise")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting model advice", "prompt_chars", len(prompt))

	result, err := oa.advisor.Advise(ctx, prompt)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get model advice", err)
		return result, err
	}

	logger.InfoSkip(ctx, 1, "Model advice received",
		"success", result.Success,
		"model", result.ModelUsed,
		"decision", result.Decision,
	)
	return result, nil
}
