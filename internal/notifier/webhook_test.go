package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNotifyTicket_OK(t *testing.T) {
	var received TicketEvent
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content-type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := client.NotifyTicket(ctx, TicketEvent{
		TicketID:  7,
		AccountID: 42,
		Email:     "user@example.com",
		Subject:   "missing deposit",
	})
	if err != nil {
		t.Fatalf("NotifyTicket error: %v", err)
	}

	if received.TicketID != 7 || received.AccountID != 42 {
		t.Fatalf("unexpected event: %+v", received)
	}
}

func TestNotifyTicket_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := client.NotifyTicket(ctx, TicketEvent{TicketID: 1})
	if err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}

func TestNotifyTicket_NotConfigured(t *testing.T) {
	client := NewClient("")

	err := client.NotifyTicket(context.Background(), TicketEvent{TicketID: 1})
	if err == nil {
		t.Fatalf("expected error for unconfigured notifier")
	}
}
