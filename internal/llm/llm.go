package llm

import (
	"context"
	"errors"
	"fmt"

	"btc-signal-bot/internal/credential"
	"btc-signal-bot/internal/types"
)

// Advisor produces a second-opinion recommendation from a prepared prompt.
type Advisor interface {
	Advise(ctx context.Context, prompt string) (types.AdvisorResult, error)
}

// Client executes a single completion against one model with one
// credential. Failures must be classified through CallError so the
// orchestrator can tell recoverable conditions from terminal ones.
type Client interface {
	Complete(ctx context.Context, model, prompt string, cred credential.Credential) (string, error)
}

// Kind classifies a failed model call.
type Kind int

const (
	// KindSkippable means the same request may succeed with another
	// credential or another model: rate limits, quota exhaustion,
	// timeouts, oversized payloads, gateway interstitials.
	KindSkippable Kind = iota
	// KindFatal means retrying cannot help: the response structure is
	// wrong, the content is unusable, or the transport failed outright.
	KindFatal
)

// CallError wraps a model call failure with its classification.
// InvalidCredential additionally signals that the credential itself was
// rejected and must be retired from the pool.
type CallError struct {
	Kind              Kind
	InvalidCredential bool
	Err               error
}

func (e *CallError) Error() string {
	switch {
	case e.InvalidCredential:
		return fmt.Sprintf("model call rejected credential: %v", e.Err)
	case e.Kind == KindSkippable:
		return fmt.Sprintf("model call failed (retryable): %v", e.Err)
	default:
		return fmt.Sprintf("model call failed: %v", e.Err)
	}
}

func (e *CallError) Unwrap() error { return e.Err }

// Skippable wraps err as a recoverable call failure.
func Skippable(err error) *CallError {
	return &CallError{Kind: KindSkippable, Err: err}
}

// Fatal wraps err as a terminal call failure.
func Fatal(err error) *CallError {
	return &CallError{Kind: KindFatal, Err: err}
}

// BadCredential wraps err as a credential rejection. The call itself is
// skippable once the credential has been retired.
func BadCredential(err error) *CallError {
	return &CallError{Kind: KindSkippable, InvalidCredential: true, Err: err}
}

// IsSkippable reports whether err allows trying another credential or model.
func IsSkippable(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Kind == KindSkippable
}

// IsBadCredential reports whether err indicates the credential was rejected.
func IsBadCredential(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.InvalidCredential
}
