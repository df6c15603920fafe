package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mmeshcher/gymreserve/internal/model"
)

// Client получает каталог из бэкенда. Запросы идемпотентны, поэтому временные сбои повторяются.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type facilityResponse struct {
	ID    json.Number `json:"facilityId"`
	Name  string      `json:"facilityName"`
	Money int64       `json:"facilityMoney"`
}

type accountResponse struct {
	ID     json.Number `json:"accountId"`
	Bank   string      `json:"accountBank"`
	Number string      `json:"accountNumber"`
}

type cardResponse struct {
	ID     json.Number `json:"cardId"`
	Bank   string      `json:"cardBank"`
	Number string      `json:"cardNumber"`
}

// NewClient создаёт клиент каталога для бэкенда по указанному адресу.
func NewClient(baseURL string, timeout time.Duration) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil

	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL:    base,
		httpClient: rc,
	}
}

// Facility запрашивает объект по идентификатору.
func (c *Client) Facility(ctx context.Context, id string) (model.Facility, error) {
	var res envelope[facilityResponse]
	status, err := c.get(ctx, "/api/facilities/"+url.PathEscape(id), &res)
	if status == http.StatusNotFound {
		return model.Facility{}, fmt.Errorf("%w: %s", ErrFacilityNotFound, id)
	}
	if err != nil {
		return model.Facility{}, fmt.Errorf("get facility: %w", err)
	}

	return model.Facility{
		ID:           id,
		Name:         res.Data.Name,
		PricePerHour: res.Data.Money,
	}, nil
}

// Accounts запрашивает счета пользователя.
func (c *Client) Accounts(ctx context.Context, memberID string) ([]model.Instrument, error) {
	var res envelope[[]accountResponse]
	if _, err := c.get(ctx, "/api/members/"+url.PathEscape(memberID)+"/accounts", &res); err != nil {
		return nil, fmt.Errorf("get accounts: %w", err)
	}

	out := make([]model.Instrument, 0, len(res.Data))
	for _, a := range res.Data {
		out = append(out, model.Instrument{ID: a.ID.String(), Label: a.Bank + " " + a.Number})
	}
	return out, nil
}

// Cards запрашивает карты пользователя.
func (c *Client) Cards(ctx context.Context, memberID string) ([]model.Instrument, error) {
	var res envelope[[]cardResponse]
	if _, err := c.get(ctx, "/api/members/"+url.PathEscape(memberID)+"/cards", &res); err != nil {
		return nil, fmt.Errorf("get cards: %w", err)
	}

	out := make([]model.Instrument, 0, len(res.Data))
	for _, card := range res.Data {
		out = append(out, model.Instrument{ID: card.ID.String(), Label: card.Bank + " " + card.Number})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) (int, error) {
	if c == nil || c.baseURL == "" {
		return 0, fmt.Errorf("catalog backend not configured")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	return resp.StatusCode, nil
}
