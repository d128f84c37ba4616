package models

import (
	"time"

	"github.com/google/uuid"
)

// Authority — именованное право доступа (permission).
type Authority struct {
	Name        string
	Description string
}

// Role группирует authorities; у пользователя может быть несколько ролей.
type Role struct {
	Name        string
	Description string
	Authorities []Authority
}

// User — модель пользователя в системе.
//
// PasswordHash хранится в виде bcrypt-хэша; открытый пароль не сохраняется
// и не логируется. Roles загружаются из хранилища вместе с пользователем и
// используются только в момент выпуска токена (scope — снимок на момент mint).
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
