// Package auth выполняет вход пользователя через бэкенд.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/mmeshcher/gymreserve/internal/model"
)

// ErrInvalidCredentials возвращается, если бэкенд отклонил логин или пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Client инкапсулирует HTTP-взаимодействие с эндпоинтом входа бэкенда.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type signInResponse struct {
	Token   string        `json:"token"`
	User    *model.Member `json:"user"`
	Message string        `json:"message"`
}

// NewClient создаёт клиент входа для бэкенда по указанному адресу.
func NewClient(baseURL string, timeout time.Duration) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = timeout

	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
	}
}

// SignIn проверяет учётные данные и возвращает пользователя и его токен.
// Вход считается успешным, только если в ответе есть и токен, и пользователь.
func (c *Client) SignIn(ctx context.Context, memberID, password string) (model.Member, string, error) {
	if c == nil || c.baseURL == "" {
		return model.Member{}, "", fmt.Errorf("auth backend not configured")
	}

	q := url.Values{}
	q.Set("userId", memberID)
	q.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sign-api/sign-in?"+q.Encode(), nil)
	if err != nil {
		return model.Member{}, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Member{}, "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return model.Member{}, "", ErrInvalidCredentials
	case resp.StatusCode != http.StatusOK:
		return model.Member{}, "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var res signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return model.Member{}, "", fmt.Errorf("decode response: %w", err)
	}

	if res.Token == "" || res.User == nil {
		if res.Message != "" {
			return model.Member{}, "", fmt.Errorf("%w: %s", ErrInvalidCredentials, res.Message)
		}
		return model.Member{}, "", ErrInvalidCredentials
	}

	member := *res.User
	if member.ID == "" {
		member.ID = memberID
	}

	return member, res.Token, nil
}
