package postgres

import (
	"context"
	"fmt"
	"time"
)

// RevokeToken помещает токен в список отозванных.
//
// Условная вставка (ON CONFLICT DO NOTHING) даёт два свойства сразу:
//   - идемпотентность: повторный отзыв того же токена — no-op;
//   - линеаризацию ротации: из двух конкурентных refresh-вызовов на одном
//     токене ровно один увидит inserted=true, второй проиграет гонку ещё
//     до выпуска новой пары. Работает и при нескольких репликах сервиса,
//     в отличие от локов внутри процесса.
func (s *Storage) RevokeToken(ctx context.Context, token string, removeAt time.Time) (bool, error) {
	const op = "storage.postgres.RevokeToken"

	query := `
        INSERT INTO removed_tokens(token, remove_at)
        VALUES ($1, $2)
        ON CONFLICT (token) DO NOTHING
    `

	cmdTag, err := s.db.Exec(ctx, query, token, removeAt)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected() == 1, nil
}

// IsTokenRevoked проверяет наличие токена в списке отозванных.
func (s *Storage) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	const op = "storage.postgres.IsTokenRevoked"

	query := `
        SELECT EXISTS(SELECT 1 FROM removed_tokens WHERE token = $1)
    `

	var revoked bool
	if err := s.db.QueryRow(ctx, query, token).Scan(&revoked); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return revoked, nil
}

// DeleteExpiredRemovedTokens удаляет записи, чей remove_at уже прошёл.
// Запись обязана жить минимум до собственного exp токена — дальше токен
// и так не проходит проверку срока.
func (s *Storage) DeleteExpiredRemovedTokens(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.DeleteExpiredRemovedTokens"

	query := `
        DELETE FROM removed_tokens
        WHERE remove_at <= $1
    `

	_, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
