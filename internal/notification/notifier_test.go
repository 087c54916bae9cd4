package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type failingNotifier struct{ calls int }

func (f *failingNotifier) Send(ctx context.Context, alert Alert) error {
	f.calls++
	return errors.New("backend down")
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Send(context.Background(), Alert{
		Level:   AlertCritical,
		Title:   "conditional order failed",
		Message: "BTCUSDT order abc: insufficient balance",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["level"] != "CRITICAL" || got["title"] != "conditional order failed" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{}); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestMultiSwallowsBackendFailures(t *testing.T) {
	failing := &failingNotifier{}
	m := NewMulti(failing, NewLogNotifier())

	if err := m.Send(context.Background(), Alert{Level: AlertInfo, Title: "bot stopped"}); err != nil {
		t.Fatalf("multi must not propagate backend errors, got %v", err)
	}
	if failing.calls != 1 {
		t.Fatalf("failing backend called %d times", failing.calls)
	}
}

func TestMultiDefaultsToLog(t *testing.T) {
	m := NewMulti()
	if err := m.Send(context.Background(), Alert{Level: AlertWarning, Title: "x"}); err != nil {
		t.Fatalf("send: %v", err)
	}
}
