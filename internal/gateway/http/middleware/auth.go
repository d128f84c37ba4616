// middleware содержит мидлвары пограничного фильтра gateway.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mkazantseva/go-social-backend/pkg/log"
	"github.com/mkazantseva/go-social-backend/pkg/middleware"
	"github.com/mkazantseva/go-social-backend/pkg/redact"
)

// AuthClient — часть клиента identity-сервиса, нужная фильтру.
type AuthClient interface {
	IntrospectAccess(ctx context.Context, token string) (bool, error)
	IntrospectRefresh(ctx context.Context, token string) (bool, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// unauthorizedBody — фиксированное тело отказа. Клиенты пограничного
// фильтра завязаны на точный формат, менять нельзя.
const unauthorizedBody = `{"code":401,"message":"Unauthorized"}`

// AuthGate — пограничный фильтр аутентификации.
//
// Порядок решения для каждого запроса:
//  1. путь в allow-list — пропустить без проверок;
//  2. взять токен из Authorization: Bearer, иначе из cookie;
//  3. проверить access-токен у identity-сервиса; валиден — пропустить;
//  4. иначе попытаться прозрачно ротировать refresh-токен (из cookie,
//     а без cookie — сам извлечённый токен) и пропустить запрос с новым
//     access-токеном в Authorization;
//  5. во всех остальных случаях — 401.
//
// Фильтр закрыт по умолчанию: любой сетевой сбой на шагах 3-4
// эквивалентен невалидному токену.
func AuthGate(client AuthClient, cookieName string, allowList []string) middleware.Middleware {
	matcher := newAllowMatcher(allowList)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if matcher.allowed(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			lg := log.From(r.Context())

			access := bearerToken(r)
			refresh := cookieToken(r, cookieName)

			token := access
			if token == "" {
				token = refresh
			}
			if token == "" {
				writeUnauthorized(w)
				return
			}

			valid, err := client.IntrospectAccess(r.Context(), token)
			if err != nil {
				lg.Warn("introspect failed",
					slog.String("error", err.Error()),
					slog.String("token", redact.Token()),
				)
				writeUnauthorized(w)
				return
			}

			if valid {
				r.Header.Set("Authorization", "Bearer "+token)
				next.ServeHTTP(w, withToken(r, token))
				return
			}

			// Access-токен истёк или отозван: пробуем прозрачную ротацию.
			// Кандидат — refresh-токен из cookie; без cookie ротируем сам
			// извлечённый токен (клиент мог прислать refresh-токен
			// в Authorization).
			candidate := refresh
			if candidate == "" {
				candidate = token
			}

			fresh, err := refreshAccess(r.Context(), client, candidate)
			if err != nil {
				lg.Warn("transparent refresh failed",
					slog.String("error", err.Error()),
					slog.String("token", redact.Token()),
				)
				writeUnauthorized(w)
				return
			}

			r.Header.Set("Authorization", "Bearer "+fresh)
			next.ServeHTTP(w, withToken(r, fresh))
		})
	}
}

func refreshAccess(ctx context.Context, client AuthClient, refreshToken string) (string, error) {
	valid, err := client.IntrospectRefresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if !valid {
		return "", errors.New("refresh token rejected")
	}

	return client.Refresh(ctx, refreshToken)
}

func withToken(r *http.Request, token string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.CtxAuthToken, token)
	return r.WithContext(ctx)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(unauthorizedBody))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")

	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(h[len(prefix):])
}

func cookieToken(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}

	return c.Value
}

// allowMatcher проверяет путь против allow-list.
// Элемент "/path" сравнивается точно, "/path/**" — по префиксу "/path/".
type allowMatcher struct {
	exact    map[string]struct{}
	prefixes []string
}

func newAllowMatcher(allowList []string) *allowMatcher {
	m := &allowMatcher{exact: make(map[string]struct{})}

	for _, p := range allowList {
		if rest, ok := strings.CutSuffix(p, "**"); ok {
			m.prefixes = append(m.prefixes, rest)
			continue
		}

		m.exact[p] = struct{}{}
	}

	return m
}

func (m *allowMatcher) allowed(path string) bool {
	if _, ok := m.exact[path]; ok {
		return true
	}

	for _, p := range m.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
