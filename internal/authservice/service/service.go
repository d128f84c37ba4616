// service содержит бизнес-логику identity-сервиса:
// регистрацию/аутентификацию пользователей, выпуск/проверку/ротацию токенов
// и работу с хранилищем через интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Эксклюзивность ротации одного refresh-токена обеспечивается условной
//     вставкой в список отозванных (storage.RevokeToken): из двух
//     конкурентных Refresh на одном токене побеждает ровно один.
//   - Ошибки возвращаются и далее маппятся транспортом на HTTP-статусы
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/mkazantseva/go-social-backend/internal/authservice/cache"
	"github.com/mkazantseva/go-social-backend/internal/authservice/config"
	"github.com/mkazantseva/go-social-backend/internal/authservice/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// Транспорт: HTTP 401, код 1002.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен некорректен по формату/подписи или не совпал
	// заявленный тип. Транспорт: HTTP 401, код 1501.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк.
	// Транспорт: HTTP 401, код 1501.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — токен отозван (logout/rotation) и недействителен
	// независимо от срока. Транспорт: HTTP 401, код 1501.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrUserNotFound — subject структурно валидного токена больше не существует
	// (гонка с удалением аккаунта). Транспорт: HTTP 404, код 1001.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken — username уже занят. Транспорт: HTTP 409, код 1015.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken — e-mail уже занят. Транспорт: HTTP 409, код 1016.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidUsername — username не проходит политику (5–20 символов).
	// Транспорт: HTTP 400, код 1010.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidEmail — e-mail имеет некорректный формат.
	// Транспорт: HTTP 400, код 1014.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности.
	// Транспорт: HTTP 400, код 1012.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: HTTP 400, код 1011.
	ErrEmptyPassword = errors.New("password is empty")
)

// Service описывает бизнес-логику identity-сервиса.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	rcache  cache.RevocationCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetRevocationCache устанавливает кэш отозванных токенов (опционально).
func (s *Service) SetRevocationCache(c cache.RevocationCache) {
	s.rcache = c
}
