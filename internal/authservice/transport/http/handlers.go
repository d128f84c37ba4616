package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mkazantseva/go-social-backend/internal/authservice/config"
	"github.com/mkazantseva/go-social-backend/internal/authservice/models"

	"github.com/go-chi/chi/v5"
)

// AuthService — контракт бизнес-слоя, нужный транспорту.
// Интерфейс объявлен на стороне потребителя, чтобы хендлеры можно было
// тестировать на моках без БД.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, login, password string) (*models.TokenPair, error)
	Introspect(ctx context.Context, token string, kind models.TokenKind) (bool, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}

// Server связывает HTTP-хендлеры с бизнес-слоем.
type Server struct {
	service AuthService
	auth    config.AuthConfig
	cookie  config.CookieConfig
}

// NewServer создает новый экземпляр Server.
func NewServer(service AuthService, auth config.AuthConfig, cookie config.CookieConfig) *Server {
	return &Server{
		service: service,
		auth:    auth,
		cookie:  cookie,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInternal, "invalid request body")
		return
	}

	user, err := s.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResult(w, registerResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	})
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

type authResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInternal, "invalid request body")
		return
	}

	pair, err := s.service.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.writeTokenPair(w, pair)
}

// writeTokenPair отдаёт access-токен и его срок в теле, refresh-токен —
// только в HttpOnly-cookie, чтобы он не был доступен скриптам страницы.
func (s *Server) writeTokenPair(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, newRefreshCookie(s.cookie, pair.RefreshToken, s.auth.RefreshTokenTTL))
	writeResult(w, authResponse{
		AccessToken: pair.AccessToken,
		ExpiresAt:   pair.AccessExpiresAt,
	})
}

type introspectResponse struct {
	Active bool `json:"active"`
}

func (s *Server) handleIntrospectAccess(w http.ResponseWriter, r *http.Request) {
	s.introspect(w, r, chi.URLParam(r, "token"), models.KindAccess)
}

func (s *Server) handleIntrospectRefresh(w http.ResponseWriter, r *http.Request) {
	s.introspect(w, r, chi.URLParam(r, "token"), models.KindRefresh)
}

func (s *Server) introspect(w http.ResponseWriter, r *http.Request, token string, kind models.TokenKind) {
	active, err := s.service.Introspect(r.Context(), token, kind)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResult(w, introspectResponse{Active: active})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refresh(w, r, chi.URLParam(r, "token"))
}

// handleRefreshCookie ротирует refresh-токен из cookie — канонический путь
// для браузерных клиентов, токен не появляется в URL и логах доступа.
func (s *Server) handleRefreshCookie(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(s.cookie.Name)
	if err != nil || c.Value == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
		return
	}

	s.refresh(w, r, c.Value)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request, token string) {
	pair, err := s.service.Refresh(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.writeTokenPair(w, pair)
}

// handleLogout отзывает access-токен из заголовка Authorization и
// refresh-токен из cookie, затем стирает cookie у клиента. Отсутствие
// любого из токенов — не ошибка: logout идемпотентен.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	access := bearerToken(r)

	var refresh string
	if c, err := r.Cookie(s.cookie.Name); err == nil {
		refresh = c.Value
	}

	if err := s.service.Logout(r.Context(), access, refresh); err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, expiredRefreshCookie(s.cookie))
	writeResult(w, nil)
}

// bearerToken извлекает токен из "Authorization: Bearer <token>".
// Возвращает пустую строку, если заголовок отсутствует или имеет иную схему.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")

	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(h[len(prefix):])
}
