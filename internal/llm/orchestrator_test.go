package llm

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"btc-signal-bot/internal/credential"
)

// scriptedClient replays canned outcomes in call order and records every
// attempt it saw.
type scriptedClient struct {
	script []callOutcome
	calls  []callRecord
}

type callOutcome struct {
	response string
	err      error
}

type callRecord struct {
	model string
	cred  string
}

func (c *scriptedClient) Complete(ctx context.Context, model, prompt string, cred credential.Credential) (string, error) {
	c.calls = append(c.calls, callRecord{model: model, cred: cred.Name})
	if len(c.calls) > len(c.script) {
		return "", Fatal(errors.New("scripted client exhausted"))
	}
	outcome := c.script[len(c.calls)-1]
	return outcome.response, outcome.err
}

func testCredStore(t *testing.T, prefix string, names ...string) *credential.Store {
	t.Helper()
	for _, name := range names {
		t.Setenv(prefix+name, "secret-"+name)
	}
	clock := time.Unix(1_700_000_000, 0)
	return credential.NewStore(prefix, filepath.Join(t.TempDir(), "state.json"), 30*time.Second,
		credential.WithClock(func() time.Time { return clock }),
		credential.WithSleep(func(ctx context.Context, d time.Duration) error {
			clock = clock.Add(d)
			return nil
		}),
	)
}

const goodResponse = "Decision: Buy\nReason: Multi-timeframe momentum with fearful sentiment."

func TestAdviseFallsThroughModels(t *testing.T) {
	creds := testCredStore(t, "ORCH1_", "1", "2")
	client := &scriptedClient{script: []callOutcome{
		{err: Skippable(errors.New("rate limited"))},
		{err: Skippable(errors.New("rate limited"))},
		{response: goodResponse},
	}}
	o := NewOrchestrator([]string{"model-a", "model-b"}, creds, client)

	result, err := o.Advise(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Advise failed: %v", err)
	}
	if !result.Success {
		t.Fatal("Expected a successful result")
	}
	if result.ModelUsed != "model-b" {
		t.Errorf("Expected model-b after model-a exhausted, got %s", result.ModelUsed)
	}
	if len(client.calls) != 3 {
		t.Fatalf("Expected exactly 3 attempts, got %d", len(client.calls))
	}
	if client.calls[0].model != "model-a" || client.calls[1].model != "model-a" || client.calls[2].model != "model-b" {
		t.Errorf("Unexpected attempt sequence: %+v", client.calls)
	}
	if result.Decision != "Buy" {
		t.Errorf("Expected decision Buy, got %q", result.Decision)
	}
}

func TestAdviseFatalAbortsImmediately(t *testing.T) {
	creds := testCredStore(t, "ORCH2_", "1", "2")
	client := &scriptedClient{script: []callOutcome{
		{err: Fatal(errors.New("malformed response structure"))},
	}}
	o := NewOrchestrator([]string{"model-a", "model-b"}, creds, client)

	result, err := o.Advise(context.Background(), "prompt")
	if err == nil {
		t.Fatal("Expected an error for a fatal failure")
	}
	if result.Success {
		t.Error("Result must not be marked successful")
	}
	if result.ModelUsed != "none" {
		t.Errorf("Expected ModelUsed none, got %s", result.ModelUsed)
	}
	if len(client.calls) != 1 {
		t.Errorf("Fatal failure must abort after 1 call, saw %d", len(client.calls))
	}
}

func TestAdviseZeroCredentialsMakesNoCalls(t *testing.T) {
	creds := testCredStore(t, "ORCH3_") // no names, empty pool
	client := &scriptedClient{}
	o := NewOrchestrator([]string{"model-a"}, creds, client)

	_, err := o.Advise(context.Background(), "prompt")
	if !errors.Is(err, credential.ErrNoCredentials) {
		t.Fatalf("Expected ErrNoCredentials, got %v", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("Expected zero calls, got %d", len(client.calls))
	}
}

func TestAdviseInvalidCredentialRetired(t *testing.T) {
	creds := testCredStore(t, "ORCH4_", "1", "2")
	client := &scriptedClient{script: []callOutcome{
		{err: BadCredential(errors.New("invalid_api_key"))},
		{response: goodResponse},
	}}
	o := NewOrchestrator([]string{"model-a"}, creds, client)

	result, err := o.Advise(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Advise failed: %v", err)
	}
	if !result.Success {
		t.Fatal("Expected success on the second credential")
	}
	if creds.ValidCount() != 1 {
		t.Errorf("Expected the rejected credential to be retired, valid=%d", creds.ValidCount())
	}
	if client.calls[0].cred == client.calls[1].cred {
		t.Errorf("Expected a different credential on retry, both were %s", client.calls[0].cred)
	}
}

func TestAdviseUnparseableResponseIsTerminal(t *testing.T) {
	creds := testCredStore(t, "ORCH5_", "1", "2")
	client := &scriptedClient{script: []callOutcome{
		{response: "I think the market will go up."},
	}}
	o := NewOrchestrator([]string{"model-a"}, creds, client)

	result, err := o.Advise(context.Background(), "prompt")
	if err == nil {
		t.Fatal("Expected an error for an unparseable response")
	}
	if !errors.Is(err, ErrUnparseable) {
		t.Errorf("Expected ErrUnparseable in the chain, got %v", err)
	}
	if result.Success {
		t.Error("Result must not be marked successful")
	}
	if len(client.calls) != 1 {
		t.Errorf("Unparseable content must abort, saw %d calls", len(client.calls))
	}
}

func TestAdviseAllModelsExhausted(t *testing.T) {
	creds := testCredStore(t, "ORCH6_", "1")
	client := &scriptedClient{script: []callOutcome{
		{err: Skippable(errors.New("quota exceeded"))},
		{err: Skippable(errors.New("quota exceeded"))},
	}}
	o := NewOrchestrator([]string{"model-a", "model-b"}, creds, client)

	result, err := o.Advise(context.Background(), "prompt")
	if err == nil {
		t.Fatal("Expected an error when every model is exhausted")
	}
	if result.Success || result.ModelUsed != "none" {
		t.Errorf("Expected unsuccessful result with ModelUsed none, got %+v", result)
	}
	if len(client.calls) != 2 {
		t.Errorf("Expected one attempt per model, saw %d", len(client.calls))
	}
}
