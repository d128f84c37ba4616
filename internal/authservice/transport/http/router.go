package http

import (
	"log/slog"
	"net/http"

	"github.com/mkazantseva/go-social-backend/internal/authservice/config"
	"github.com/mkazantseva/go-social-backend/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

// NewRouter собирает маршруты identity-сервиса.
//
// Общая цепочка: request-id -> логирование -> перехват паник -> дедлайн.
// Пер-IP лимитер вешается только на login/register.
func NewRouter(s *Server, lg *slog.Logger, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	limited := rateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)

	r.Route("/auth", func(r chi.Router) {
		r.With(limited).Post("/register", s.handleRegister)
		r.With(limited).Post("/login", s.handleLogin)

		r.Get("/introspect/{token}", s.handleIntrospectAccess)
		r.Get("/introspect/refresh/{token}", s.handleIntrospectRefresh)
		r.Get("/refresh/{token}", s.handleRefresh)
		r.Get("/refresh-token", s.handleRefreshCookie)
		r.Get("/logout", s.handleLogout)
	})

	return middleware.Chain(r,
		middleware.RequestID(),
		middleware.Logging(lg),
		middleware.Recover(),
		middleware.Timeout(cfg.Timeouts.Service),
	)
}
