package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mkazantseva/go-social-backend/internal/gateway/config"
	gwmw "github.com/mkazantseva/go-social-backend/internal/gateway/http/middleware"
	"github.com/mkazantseva/go-social-backend/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

// NewRouter собирает маршрутизацию gateway.
//
// Запросы проходят цепочку request-id -> логирование -> перехват паник ->
// дедлайн -> пограничный фильтр, после чего проксируются на внутренний
// сервис по первому сегменту пути. Пустой адрес upstream'а отключает
// соответствующие маршруты.
func NewRouter(lg *slog.Logger, cfg *config.Config, auth gwmw.AuthClient) (http.Handler, error) {
	const op = "gateway.http.NewRouter"

	r := chi.NewRouter()

	mount := func(prefix, upstream string) error {
		if upstream == "" {
			return nil
		}

		proxy, err := newProxy(upstream)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", op, prefix, err)
		}

		r.Handle(prefix+"/*", proxy)
		r.Handle(prefix, proxy)

		return nil
	}

	if err := mount("/auth", cfg.Upstreams.Identity); err != nil {
		return nil, err
	}
	if err := mount("/users", cfg.Upstreams.Identity); err != nil {
		return nil, err
	}
	if err := mount("/posts", cfg.Upstreams.Posts); err != nil {
		return nil, err
	}
	if err := mount("/profile", cfg.Upstreams.Profile); err != nil {
		return nil, err
	}
	if err := mount("/chat", cfg.Upstreams.Chat); err != nil {
		return nil, err
	}

	return middleware.Chain(r,
		middleware.RequestID(),
		middleware.Logging(lg),
		middleware.Recover(),
		middleware.Timeout(cfg.Timeouts.Service),
		gwmw.AuthGate(auth, cfg.Auth.CookieName, cfg.Routes.AllowList),
	), nil
}
