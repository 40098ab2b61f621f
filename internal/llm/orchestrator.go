package llm

import (
	"context"
	"fmt"

	"btc-signal-bot/internal/credential"
	"btc-signal-bot/internal/logger"
	"btc-signal-bot/internal/trace"
	"btc-signal-bot/internal/types"
)

// Orchestrator walks the model priority list, rotating credentials within
// each model, until one call yields a parseable answer. Skippable failures
// burn one attempt; credential rejections retire the credential; fatal
// failures abort the entire run including the remaining models.
type Orchestrator struct {
	models []string
	creds  *credential.Store
	client Client
}

var _ Advisor = (*Orchestrator)(nil)

func NewOrchestrator(models []string, creds *credential.Store, client Client) *Orchestrator {
	return &Orchestrator{models: models, creds: creds, client: client}
}

func (o *Orchestrator) Advise(ctx context.Context, prompt string) (types.AdvisorResult, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Advise")
	defer span.End()

	if o.creds.ValidCount() == 0 {
		return types.AdvisorResult{ModelUsed: "none"}, credential.ErrNoCredentials
	}

	var lastErr error
	for _, model := range o.models {
		// Each model gets at most one attempt per currently valid
		// credential. The count is re-read per model because attempts
		// may retire credentials along the way.
		attempts := o.creds.ValidCount()
		if attempts == 0 {
			break
		}

		for i := 0; i < attempts; i++ {
			cred, err := o.creds.Next(ctx)
			if err != nil {
				return types.AdvisorResult{ModelUsed: "none"}, err
			}

			raw, err := o.client.Complete(ctx, model, prompt, cred)
			if err != nil {
				if IsBadCredential(err) {
					o.creds.Invalidate(ctx, cred.Name)
					lastErr = err
					continue
				}
				if IsSkippable(err) {
					logger.Debug(ctx, "model attempt failed, trying next",
						"model", model, "credential", cred.Name, "error", err.Error())
					lastErr = err
					continue
				}
				logger.ErrorWithErr(ctx, "model call failed terminally", err, "model", model)
				return types.AdvisorResult{ModelUsed: "none"}, err
			}

			decision, reason, perr := ParseAdvice(raw)
			if perr != nil {
				logger.ErrorWithErr(ctx, "model response unusable", perr, "model", model)
				return types.AdvisorResult{ModelUsed: "none"}, Fatal(perr)
			}

			return types.AdvisorResult{
				Success:   true,
				Decision:  decision,
				Reason:    reason,
				ModelUsed: model,
			}, nil
		}
		logger.Warn(ctx, "model exhausted all credentials, falling back", "model", model)
	}

	if lastErr == nil {
		lastErr = credential.ErrNoCredentials
	}
	return types.AdvisorResult{ModelUsed: "none"}, fmt.Errorf("llm: all models exhausted: %w", lastErr)
}
