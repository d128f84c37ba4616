package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkazantseva/go-social-backend/internal/authservice/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Допустимый рассинхрон часов при проверке временных claim'ов.
const clockLeeway = 5 * time.Second

// tokenClaims — полезная нагрузка токена поверх стандартных claim'ов.
//
// scope — снимок ролей/прав на момент выпуска: "ROLE_<role>" плюс имена
// authorities через пробел. typ различает access и refresh, чтобы токен
// одного вида нельзя было предъявить как другой даже при совпадении секретов.
type tokenClaims struct {
	Scope     string `json:"scope"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// mintToken выпускает подписанный токен заданного вида для пользователя.
// Секрет и TTL выбираются по виду токена; jti — новый UUID на каждый выпуск,
// поэтому два токена одного пользователя никогда не равны байтово.
func (s *Service) mintToken(user *models.User, kind models.TokenKind, now time.Time) (string, error) {
	const op = "service.token.mintToken"

	claims := tokenClaims{
		Scope:     buildScope(user),
		TokenType: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			// Subject — неизменяемый ID аккаунта; username может меняться,
			// и токен не должен терять владельца при переименовании.
			Subject:   user.ID.String(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings(s.cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttlFor(kind))),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(s.secretFor(kind)))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// verifyToken проверяет подпись, срок и заявленный вид токена.
//
// Функция чистая: не ходит ни в БД, ни в кэш — проверка отзыва делается
// отдельно. Возвращает claims при успехе; ошибки: ErrTokenExpired при
// истёкшем сроке, ErrInvalidToken во всех остальных случаях.
func (s *Service) verifyToken(tokenStr string, kind models.TokenKind) (*tokenClaims, error) {
	const op = "service.token.verifyToken"

	claims := &tokenClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(clockLeeway),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
	}
	if len(s.cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(s.cfg.Audience[0]))
	}

	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(s.secretFor(kind)), nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	// Access-токен нельзя предъявить как refresh и наоборот.
	if claims.TokenType != string(kind) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// tokenExpiry извлекает exp токена БЕЗ проверки подписи.
//
// Нужна ровно в одном месте: logout обязан отзывать даже токены, которые
// не проходят верификацию, а срок жизни записи в списке отозванных равен
// собственному exp токена. Для невалидного/нечитаемого токена возвращает
// ok=false — вызывающий подставляет консервативный fallback.
func tokenExpiry(tokenStr string) (time.Time, bool) {
	parser := jwt.NewParser()

	claims := &tokenClaims{}
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}, false
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}

// buildScope собирает строку scope из ролей и прав пользователя:
// каждая роль как "ROLE_<имя>", следом имена её authorities, всё через пробел.
func buildScope(user *models.User) string {
	var sb strings.Builder

	for _, role := range user.Roles {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("ROLE_")
		sb.WriteString(role.Name)

		for _, auth := range role.Authorities {
			sb.WriteByte(' ')
			sb.WriteString(auth.Name)
		}
	}

	return sb.String()
}

func (s *Service) secretFor(kind models.TokenKind) string {
	if kind == models.KindRefresh {
		return s.cfg.RefreshSecret
	}

	return s.cfg.AccessSecret
}

func (s *Service) ttlFor(kind models.TokenKind) time.Duration {
	if kind == models.KindRefresh {
		return s.cfg.RefreshTokenTTL
	}

	return s.cfg.AccessTokenTTL
}
