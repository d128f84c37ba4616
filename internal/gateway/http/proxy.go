// Package http собирает публичный HTTP-сервер gateway: маршрутизацию по
// префиксам на внутренние сервисы и пограничный фильтр аутентификации.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/mkazantseva/go-social-backend/pkg/log"
)

// newProxy создает reverse-proxy на один внутренний сервис.
// Путь и query исходного запроса сохраняются как есть.
func newProxy(upstream string) (http.Handler, error) {
	const op = "gateway.http.newProxy"

	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("%s: upstream %q must be an absolute URL", op, upstream)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.From(r.Context()).Error("upstream request failed",
			slog.String("upstream", target.Host),
			slog.String("error", err.Error()),
		)

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"code":502,"message":"Bad Gateway"}`))
	}

	return proxy, nil
}
