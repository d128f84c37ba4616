package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mkazantseva/go-social-backend/internal/authservice/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — запись не найдена (пользователь/роль).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя вместе со связями ролей.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID; роли загружаются вместе с ним.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByUsernameOrEmail находит пользователя по username ИЛИ email
	// одним запросом (login-форма принимает и то и другое).
	UserByUsernameOrEmail(ctx context.Context, login string) (*models.User, error)
}

// RemovedTokenStorage — список отозванных токенов.
//
// Список — единственное разделяемое изменяемое состояние ядра: logout и
// ротация refresh-токенов пишут в него конкурентно из разных запросов.
type RemovedTokenStorage interface {
	// RevokeToken помещает токен в список отозванных. Вставка идемпотентна:
	// повторный отзыв — no-op, не ошибка. Возвращает true, если запись
	// появилась именно в этом вызове — это свойство используется как
	// compare-and-swap для сериализации ротации одного refresh-токена.
	RevokeToken(ctx context.Context, token string, removeAt time.Time) (bool, error)
	// IsTokenRevoked проверяет наличие токена в списке. Безопасно при
	// конкурентных RevokeToken.
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
	// DeleteExpiredRemovedTokens удаляет записи, у которых remove_at уже прошёл.
	DeleteExpiredRemovedTokens(ctx context.Context, now time.Time) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RemovedTokenStorage
	Close()
}
