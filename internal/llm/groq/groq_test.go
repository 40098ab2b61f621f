package groq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"btc-signal-bot/internal/config"
	"btc-signal-bot/internal/credential"
	"btc-signal-bot/internal/llm"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(handler)
	return New(cfg, WithBaseURL(srv.URL)), srv.Close
}

var testCred = credential.Credential{Name: "KEY_1", Secret: "sk-test", UserAgent: "test-agent"}

func TestCompleteSuccess(t *testing.T) {
	client, done := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"Decision: Buy\nReason: momentum."}}]}`))
	})
	defer done()

	out, err := client.Complete(context.Background(), "compound-beta", "prompt", testCred)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != "Decision: Buy\nReason: momentum." {
		t.Errorf("Unexpected content: %q", out)
	}
}

func TestCompleteRateLimitIsSkippable(t *testing.T) {
	client, done := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limit reached"}}`, http.StatusTooManyRequests)
	})
	defer done()

	_, err := client.Complete(context.Background(), "m", "p", testCred)
	if !llm.IsSkippable(err) {
		t.Errorf("429 should be skippable, got %v", err)
	}
	if llm.IsBadCredential(err) {
		t.Error("429 must not retire the credential")
	}
}

func TestCompleteUnauthorizedRetiresCredential(t *testing.T) {
	client, done := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid_api_key"}}`, http.StatusUnauthorized)
	})
	defer done()

	_, err := client.Complete(context.Background(), "m", "p", testCred)
	if !llm.IsBadCredential(err) {
		t.Errorf("401 should mark the credential invalid, got %v", err)
	}
}

func TestCompleteQuotaMessageIsSkippable(t *testing.T) {
	client, done := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"monthly quota exceeded"}}`, http.StatusBadRequest)
	})
	defer done()

	_, err := client.Complete(context.Background(), "m", "p", testCred)
	if !llm.IsSkippable(err) {
		t.Errorf("Quota exhaustion should be skippable, got %v", err)
	}
}

func TestCompleteHTMLInterstitialIsSkippable(t *testing.T) {
	client, done := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<!DOCTYPE html><html><body>Checking your browser</body></html>"))
	})
	defer done()

	_, err := client.Complete(context.Background(), "m", "p", testCred)
	if !llm.IsSkippable(err) {
		t.Errorf("An HTML interstitial should be skippable, got %v", err)
	}
	if llm.IsBadCredential(err) {
		t.Error("An interstitial says nothing about the credential")
	}
}

func TestCompleteServerErrorIsFatal(t *testing.T) {
	client, done := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"internal"}}`, http.StatusInternalServerError)
	})
	defer done()

	_, err := client.Complete(context.Background(), "m", "p", testCred)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if llm.IsSkippable(err) || llm.IsBadCredential(err) {
		t.Errorf("An unclassified 500 should be fatal, got %v", err)
	}
}

func TestCompleteEmptyContentIsFatal(t *testing.T) {
	client, done := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})
	defer done()

	_, err := client.Complete(context.Background(), "m", "p", testCred)
	if err == nil {
		t.Fatal("Expected an error for an empty choices array")
	}
	if llm.IsSkippable(err) {
		t.Errorf("Content-free responses are fatal, got %v", err)
	}
}

func TestCompleteAlienStructureIsFatal(t *testing.T) {
	client, done := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"just a string"`))
	})
	defer done()

	_, err := client.Complete(context.Background(), "m", "p", testCred)
	if err == nil {
		t.Fatal("Expected an error for an alien response shape")
	}
	if llm.IsSkippable(err) {
		t.Errorf("Alien structure is fatal, got %v", err)
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	body := strings.Repeat("测", 100)
	got := truncate([]byte(body), 200)

	if !utf8.ValidString(got) {
		t.Errorf("Truncated body is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected ellipsis suffix, got %q", got)
	}

	if got := truncate([]byte("  short body  "), 200); got != "short body" {
		t.Errorf("Expected short bodies trimmed but untruncated, got %q", got)
	}
}
