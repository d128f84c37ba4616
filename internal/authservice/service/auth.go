package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/mkazantseva/go-social-backend/internal/authservice/models"
	"github.com/mkazantseva/go-social-backend/internal/authservice/storage"
	"github.com/mkazantseva/go-social-backend/pkg/log"
	"github.com/mkazantseva/go-social-backend/pkg/redact"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 5
	maxUsernameLen = 20

	minPasswordLen = 8
	// bcrypt использует не более 72 байт пароля.
	maxPasswordBytes = 72

	// Роль по умолчанию для новых пользователей; заводится миграциями.
	defaultRoleName = "USER"
)

// Хэш фиктивного пароля: выравнивает время Login для несуществующих
// пользователей, чтобы по времени ответа нельзя было перебирать логины.
var dummyPasswordHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Register создает нового пользователя с ролью по умолчанию.
//
// Возможные ошибки: ErrInvalidUsername, ErrInvalidEmail, ErrEmptyPassword,
// ErrWeakPassword, ErrUsernameTaken, ErrEmailTaken.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	const op = "service.auth.Register"

	lg := log.From(ctx)

	if err := validateUsername(username); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validateEmail(email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Roles:        []models.Role{{Name: defaultRoleName}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, s.classifyTaken(ctx, username))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user registered",
		slog.String("username", user.Username),
		slog.String("email", redact.Email(user.Email)),
	)

	return user, nil
}

// classifyTaken уточняет, какое из уникальных полей занято.
// Если проверить не удалось — считаем занятым username: сообщение всё
// равно не раскрывает чужой e-mail.
func (s *Service) classifyTaken(ctx context.Context, username string) error {
	if _, err := s.storage.UserByUsernameOrEmail(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if errors.Is(err, storage.ErrNotFound) {
		return ErrEmailTaken
	}

	return ErrUsernameTaken
}

// Login аутентифицирует пользователя по username или e-mail и выпускает
// пару токенов. Несуществующий пользователь и неверный пароль неразличимы
// снаружи: в обоих случаях возвращается ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, login, password string) (*models.TokenPair, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	user, err := s.storage.UserByUsernameOrEmail(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Фиктивное сравнение выравнивает время ответа.
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(user, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user logged in", slog.String("username", user.Username))

	return pair, nil
}

// Introspect отвечает на вопрос «действителен ли токен заданного вида
// прямо сейчас»: подпись, срок, тип и отсутствие в списке отозванных.
//
// Все дефекты самого токена (подпись, срок, тип, мусор вместо JWT)
// схлопываются в valid=false без ошибки: для вызывающего это ожидаемые
// ответы, а не сбои. Ошибка возвращается только при недоступности
// хранилища — вызывающий обязан трактовать её как «не пускать».
func (s *Service) Introspect(ctx context.Context, token string, kind models.TokenKind) (bool, error) {
	const op = "service.auth.Introspect"

	if _, err := s.verifyToken(token, kind); err != nil {
		return false, nil
	}

	revoked, err := s.isRevoked(ctx, token)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return !revoked, nil
}

// Refresh ротирует refresh-токен: проверяет его, отзывает и выпускает
// новую пару. Порядок шагов фиксирован — отзыв старого токена происходит
// СТРОГО ДО выпуска новой пары, поэтому при сбое между шагами система
// ошибается в сторону отзыва, а не в сторону двух живых токенов.
//
// Возможные ошибки: ErrInvalidToken, ErrTokenExpired, ErrTokenRevoked,
// ErrUserNotFound.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	lg := log.From(ctx)

	// 1. Подпись, срок, тип.
	claims, err := s.verifyToken(refreshToken, models.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// 2. Токен не отозван ранее.
	revoked, err := s.isRevoked(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	// 3. Subject всё ещё существует (мог быть удалён после выпуска токена).
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// 4. Отзыв старого токена. Условная вставка сериализует конкурентные
	// ротации одного токена: новую пару получает только победитель.
	inserted, err := s.revoke(ctx, refreshToken, claims.ExpiresAt.Time)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !inserted {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	// 5. Новая пара со свежим снимком ролей.
	pair, err := s.issueTokenPair(user, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("refresh token rotated",
		slog.String("username", user.Username),
		slog.String("token", redact.Token()),
	)

	return pair, nil
}

// Logout отзывает оба токена сессии. Операция безусловная и идемпотентная:
// просроченные, невалидные и уже отозванные токены не считаются ошибкой —
// результат «токены недействительны» и так достигнут. Для нечитаемого
// токена срок записи берётся консервативно: now + TTL соответствующего вида.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	const op = "service.auth.Logout"

	now := time.Now().UTC()

	if accessToken != "" {
		removeAt, ok := tokenExpiry(accessToken)
		if !ok {
			removeAt = now.Add(s.cfg.AccessTokenTTL)
		}

		if _, err := s.revoke(ctx, accessToken, removeAt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if refreshToken != "" {
		removeAt, ok := tokenExpiry(refreshToken)
		if !ok {
			removeAt = now.Add(s.cfg.RefreshTokenTTL)
		}

		if _, err := s.revoke(ctx, refreshToken, removeAt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	log.From(ctx).Info("user logged out")

	return nil
}

// issueTokenPair выпускает связанную пару access+refresh с общим моментом
// выпуска и общим снимком scope.
func (s *Service) issueTokenPair(user *models.User, now time.Time) (*models.TokenPair, error) {
	access, err := s.mintToken(user, models.KindAccess, now)
	if err != nil {
		return nil, err
	}

	refresh, err := s.mintToken(user, models.KindRefresh, now)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	}, nil
}

// revoke помещает токен в список отозванных в БД и зеркалирует запись
// в кэш. БД — источник истины: ошибка кэша логируется и не влияет на
// результат, ошибка БД — влияет.
func (s *Service) revoke(ctx context.Context, token string, removeAt time.Time) (bool, error) {
	inserted, err := s.storage.RevokeToken(ctx, token, removeAt)
	if err != nil {
		return false, err
	}

	if s.rcache != nil {
		ttl := time.Until(removeAt)
		if cerr := s.rcache.MarkRevoked(ctx, token, ttl); cerr != nil {
			log.From(ctx).Warn("revocation cache write failed",
				slog.String("error", cerr.Error()),
			)
		}
	}

	return inserted, nil
}

// isRevoked проверяет токен сперва в кэше, затем в БД.
// Попадание в кэш — достаточное доказательство отзыва; промах и ошибка
// кэша означают «спроси БД».
func (s *Service) isRevoked(ctx context.Context, token string) (bool, error) {
	if s.rcache != nil {
		hit, err := s.rcache.IsRevoked(ctx, token)
		if err == nil && hit {
			return true, nil
		}
		if err != nil {
			log.From(ctx).Warn("revocation cache read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return s.storage.IsTokenRevoked(ctx, token)
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return ErrInvalidUsername
	}

	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}

	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}

	if utf8.RuneCountInString(password) < minPasswordLen || len(password) > maxPasswordBytes {
		return ErrWeakPassword
	}

	return nil
}
