package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmeshcher/gymreserve/internal/model"
)

func strPtr(s string) *string {
	return &s
}

func completeDraft() model.Draft {
	return model.Draft{
		FacilityID:    strPtr("gym-a"),
		Date:          strPtr("2025-11-01"),
		Time:          strPtr("13:00"),
		Hours:         3,
		PricePerHour:  10000,
		PaymentMethod: model.PaymentMethodCard,
		CardID:        strPtr("hana-3412"),
		Payer:         model.Payer{Name: "Hong", Phone: "010-0000-0000"},
	}
}

func TestNewPayload(t *testing.T) {
	p := NewPayload(completeDraft())

	if p.FacilityID != "gym-a" || p.Date != "2025-11-01" || p.Time != "13:00" {
		t.Fatalf("unexpected schedule fields: %+v", p)
	}
	if p.TotalPrice != 30000 {
		t.Fatalf("totalPrice = %d, want 30000", p.TotalPrice)
	}
	if p.Payment.Method != "CARD" || p.Payment.CardID != "hana-3412" || p.Payment.AccountID != "" {
		t.Fatalf("unexpected payment: %+v", p.Payment)
	}
}

func TestNewPayload_IgnoresStaleInstrument(t *testing.T) {
	d := completeDraft()
	d.PaymentMethod = model.PaymentMethodAccount
	d.AccountID = strPtr("shinhan-123")

	p := NewPayload(d)
	if p.Payment.AccountID != "shinhan-123" || p.Payment.CardID != "" {
		t.Fatalf("unexpected payment: %+v", p.Payment)
	}
}

func TestSubmit_Created(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/reservations" {
			t.Fatalf("path = %s, want /api/reservations", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tkn" {
			t.Fatalf("authorization = %q", got)
		}

		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode: %v", err)
		}
		for _, key := range []string{"facilityId", "date", "time", "hours", "pricePerHour", "totalPrice", "payer", "payment"} {
			if _, ok := raw[key]; !ok {
				t.Fatalf("payload has no %q field: %v", key, raw)
			}
		}
		payment := raw["payment"].(map[string]any)
		if _, ok := payment["accountId"]; ok {
			t.Fatalf("accountId must be omitted for card payments: %v", payment)
		}

		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Submit(ctx, "tkn", NewPayload(completeDraft())); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
}

func TestSubmit_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, time.Second)

	err := client.Submit(context.Background(), "", NewPayload(completeDraft()))
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", statusErr.Code)
	}
}

func TestSubmit_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := ts.URL
	ts.Close()

	client := NewClient(addr, time.Second)

	err := client.Submit(context.Background(), "", NewPayload(completeDraft()))
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Fatalf("transport failure must not be a StatusError: %v", err)
	}
}

func TestSubmit_NotConfigured(t *testing.T) {
	client := NewClient("", time.Second)
	if err := client.Submit(context.Background(), "", Payload{}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
