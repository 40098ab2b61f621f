package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFeishuPublish(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("Body is not JSON: %v", err)
		}
		w.Write([]byte(`{"code":0,"msg":"success"}`))
	}))
	defer srv.Close()

	f := NewFeishu(srv.URL)
	if err := f.Publish(context.Background(), fullReport()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if received["msg_type"] != "interactive" {
		t.Errorf("msg_type = %v, want interactive", received["msg_type"])
	}
	if _, ok := received["card"]; !ok {
		t.Error("Payload missing the card")
	}
}

func TestFeishuPublishLegacyAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"StatusCode":0,"StatusMessage":"success"}`))
	}))
	defer srv.Close()

	f := NewFeishu(srv.URL)
	if err := f.Publish(context.Background(), fullReport()); err != nil {
		t.Errorf("Legacy ack should be accepted: %v", err)
	}
}

func TestFeishuPublishRejectedCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 but an application-level rejection.
		w.Write([]byte(`{"code":19001,"msg":"param invalid"}`))
	}))
	defer srv.Close()

	f := NewFeishu(srv.URL)
	if err := f.Publish(context.Background(), fullReport()); err == nil {
		t.Error("Expected an error for a rejected card")
	}
}

func TestFeishuPublishWithoutWebhook(t *testing.T) {
	f := NewFeishu("")
	if err := f.Publish(context.Background(), fullReport()); err == nil {
		t.Error("Expected an error without a webhook URL")
	}
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher()
	if err := p.Publish(context.Background(), fullReport()); err != nil {
		t.Errorf("LogPublisher must never fail: %v", err)
	}
}
