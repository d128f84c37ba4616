package http

import (
	"net/http"
	"time"

	"github.com/mkazantseva/go-social-backend/internal/authservice/config"
)

// newRefreshCookie собирает HttpOnly-cookie с refresh-токеном.
// Путь всегда "/", остальные атрибуты берутся из конфигурации;
// MaxAge равен TTL refresh-токена.
func newRefreshCookie(cfg config.CookieConfig, token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSiteMode(),
	}
}

// expiredRefreshCookie возвращает cookie, немедленно стирающую refresh-токен
// у клиента. Атрибуты должны совпадать с выставленными при логине, иначе
// браузер сотрёт не ту cookie.
func expiredRefreshCookie(cfg config.CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSiteMode(),
	}
}
