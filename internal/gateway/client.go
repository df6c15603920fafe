// Package gateway предоставляет клиент отправки завершённых бронирований во внешний бэкенд.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/mmeshcher/gymreserve/internal/model"
)

const reservationsPath = "/api/reservations"

// StatusError возвращается, если бэкенд ответил статусом, отличным от успешного.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status: %d: %s", e.Code, e.Body)
}

// PayerPayload описывает представителя в теле запроса.
type PayerPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// PaymentPayload описывает выбранный способ оплаты в теле запроса.
type PaymentPayload struct {
	Method    string `json:"method"`
	AccountID string `json:"accountId,omitempty"`
	CardID    string `json:"cardId,omitempty"`
}

// Payload описывает тело запроса создания бронирования.
type Payload struct {
	FacilityID   string         `json:"facilityId"`
	Date         string         `json:"date"`
	Time         string         `json:"time"`
	Hours        int            `json:"hours"`
	PricePerHour int64          `json:"pricePerHour"`
	TotalPrice   int64          `json:"totalPrice"`
	Payer        PayerPayload   `json:"payer"`
	Payment      PaymentPayload `json:"payment"`
}

// NewPayload сериализует черновик в тело запроса. Итоговая стоимость вычисляется заново.
func NewPayload(d model.Draft) Payload {
	p := Payload{
		FacilityID:   deref(d.FacilityID),
		Date:         deref(d.Date),
		Time:         deref(d.Time),
		Hours:        d.Hours,
		PricePerHour: d.PricePerHour,
		TotalPrice:   d.TotalPrice(),
		Payer: PayerPayload{
			Name:  d.Payer.Name,
			Phone: d.Payer.Phone,
		},
		Payment: PaymentPayload{
			Method: string(d.PaymentMethod),
		},
	}

	switch d.PaymentMethod {
	case model.PaymentMethodAccount:
		p.Payment.AccountID = deref(d.AccountID)
	case model.PaymentMethodCard:
		p.Payment.CardID = deref(d.CardID)
	case model.PaymentMethodNone:
	}

	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Client инкапсулирует HTTP-взаимодействие с эндпоинтом создания бронирований.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для бэкенда по указанному адресу.
func NewClient(baseURL string, timeout time.Duration) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    normalizeBaseURL(baseURL),
		httpClient: httpClient,
	}
}

func normalizeBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base
}

// Submit отправляет бронирование одним запросом. Повторы не выполняются.
func (c *Client) Submit(ctx context.Context, token string, p Payload) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("reservation backend not configured")
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+reservationsPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
