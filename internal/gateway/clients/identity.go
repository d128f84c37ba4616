// clients содержит HTTP-клиенты gateway к внутренним сервисам.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkazantseva/go-social-backend/pkg/middleware"
)

// ErrUnauthorized — identity-сервис ответил отказом (4xx) на проверку
// или ротацию токена.
var ErrUnauthorized = errors.New("unauthorized")

const successCode = 1000

// IdentityClient ходит в identity-сервис за проверкой и ротацией токенов.
//
// Клиент несёт жёсткий таймаут: любой сетевой сбой или превышение времени
// возвращается ошибкой, и вызывающая сторона обязана отказать в доступе.
type IdentityClient struct {
	baseURL string
	http    *http.Client
}

// NewIdentityClient создает клиент identity-сервиса.
func NewIdentityClient(baseURL string, timeout time.Duration) *IdentityClient {
	return &IdentityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type introspectResult struct {
	Active bool `json:"active"`
}

type authResult struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// IntrospectAccess проверяет действительность access-токена.
func (c *IdentityClient) IntrospectAccess(ctx context.Context, token string) (bool, error) {
	return c.introspect(ctx, "/auth/introspect/", token)
}

// IntrospectRefresh проверяет действительность refresh-токена.
func (c *IdentityClient) IntrospectRefresh(ctx context.Context, token string) (bool, error) {
	return c.introspect(ctx, "/auth/introspect/refresh/", token)
}

func (c *IdentityClient) introspect(ctx context.Context, prefix, token string) (bool, error) {
	const op = "clients.identity.introspect"

	env, err := c.get(ctx, prefix+url.PathEscape(token))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	var res introspectResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return res.Active, nil
}

// Refresh ротирует refresh-токен и возвращает новый access-токен.
// Отказ identity-сервиса (отозванный/просроченный токен) возвращается
// как ErrUnauthorized.
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "clients.identity.Refresh"

	env, err := c.get(ctx, "/auth/refresh/"+url.PathEscape(refreshToken))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var res authResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if res.AccessToken == "" {
		return "", fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	return res.AccessToken, nil
}

// get выполняет GET к identity-сервису и разбирает конверт ответа.
// X-Request-Id пробрасывается из контекста, чтобы логи identity-сервиса
// связывались с исходным запросом.
func (c *IdentityClient) get(ctx context.Context, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	if rid, ok := ctx.Value(middleware.CtxRequestID).(string); ok && rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("identity service: status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("identity service: %s: %w", env.Message, ErrUnauthorized)
	}

	if env.Code != successCode {
		return nil, fmt.Errorf("identity service: unexpected code %d", env.Code)
	}

	return &env, nil
}
