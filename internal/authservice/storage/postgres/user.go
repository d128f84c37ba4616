package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkazantseva/go-social-backend/internal/authservice/models"
	"github.com/mkazantseva/go-social-backend/internal/authservice/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SaveUser создает нового пользователя и связи с ролями в одной транзакции.
// Роли должны существовать заранее (справочник roles заполняется миграциями).
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
        INSERT INTO users(id, username, email, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `

	_, err = tx.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	for _, role := range user.Roles {
		_, err = tx.Exec(ctx,
			`INSERT INTO user_roles(user_id, role_name) VALUES ($1, $2)`,
			user.ID, role.Name,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return fmt.Errorf("%s: role %q: %w", op, role.Name, storage.ErrNotFound)
			}

			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `
        SELECT id, username, email, password_hash, created_at, updated_at
        FROM users
        WHERE id = $1
    `

	user, err := s.scanUser(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UserByUsernameOrEmail находит пользователя по username или email.
func (s *Storage) UserByUsernameOrEmail(ctx context.Context, login string) (*models.User, error) {
	const op = "storage.postgres.UserByUsernameOrEmail"

	query := `
        SELECT id, username, email, password_hash, created_at, updated_at
        FROM users
        WHERE username = $1 OR email = $1
    `

	user, err := s.scanUser(ctx, query, login)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// scanUser выполняет запрос на одного пользователя и догружает его роли.
func (s *Storage) scanUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	roles, err := s.rolesByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles

	return &user, nil
}

// rolesByUser загружает роли пользователя вместе с их authorities.
// Один запрос с LEFT JOIN: роль без authorities тоже попадает в scope.
func (s *Storage) rolesByUser(ctx context.Context, userID uuid.UUID) ([]models.Role, error) {
	query := `
        SELECT r.name, r.description, a.name, a.description
        FROM user_roles ur
        JOIN roles r ON r.name = ur.role_name
        LEFT JOIN role_authorities ra ON ra.role_name = r.name
        LEFT JOIN authorities a ON a.name = ra.authority_name
        WHERE ur.user_id = $1
        ORDER BY r.name, a.name
    `

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	byName := make(map[string]int)

	for rows.Next() {
		var (
			roleName, roleDesc string
			authName, authDesc *string
		)
		if err := rows.Scan(&roleName, &roleDesc, &authName, &authDesc); err != nil {
			return nil, err
		}

		idx, ok := byName[roleName]
		if !ok {
			roles = append(roles, models.Role{Name: roleName, Description: roleDesc})
			idx = len(roles) - 1
			byName[roleName] = idx
		}

		if authName != nil {
			auth := models.Authority{Name: *authName}
			if authDesc != nil {
				auth.Description = *authDesc
			}
			roles[idx].Authorities = append(roles[idx].Authorities, auth)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return roles, nil
}
