package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mkazantseva/go-social-backend/internal/authservice/models"
	"github.com/mkazantseva/go-social-backend/internal/authservice/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты пакета postgres:
// - поднимают реальный PostgreSQL через testcontainers-go (postgres:16-alpine);
// - применяют миграции из ./migrations;
// - проверяют happy-path, уникальность username/email, загрузку ролей
//   с authorities и обработку ошибок контекста.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/authservice/storage/postgres -v -race -count=1

// repoRootFromThisFile — определяет корень репозитория относительно текущего файла тестов.
func repoRootFromThisFile() string {
	// internal/authservice/storage/postgres/... -> подняться на 4 уровня до корня.
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", "..", ".."))
}

// readMigration — читает содержимое SQL-миграции из подкаталога ./migrations.
func readMigration(t *testing.T, name string) string {
	t.Helper()
	root := repoRootFromThisFile()
	path := filepath.Join(root, "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres — поднимает временный PostgreSQL, применяет миграции и
// возвращает инициализированное хранилище с функцией очистки.
// Без GO_TEST_INTEGRATION тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	// применяем миграции.
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, readMigration(t, "1_init_users.up.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, readMigration(t, "2_init_removed_tokens.up.sql"))
	require.NoError(t, err)

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

func newStoredUser(username, email string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Roles:        []models.Role{{Name: "USER"}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TestIntegration_SaveUser_And_Lookup_OK — happy-path: сохранение и поиск
// по username, email и ID; роль USER из миграции подгружается вместе
// с пользователем.
func TestIntegration_SaveUser_And_Lookup_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := newStoredUser("alice77", "alice@example.com")
	require.NoError(t, st.SaveUser(context.Background(), u))

	byUsername, err := st.UserByUsernameOrEmail(context.Background(), "alice77")
	require.NoError(t, err)
	require.Equal(t, u.ID, byUsername.ID)
	require.Len(t, byUsername.Roles, 1)
	require.Equal(t, "USER", byUsername.Roles[0].Name)

	byEmail, err := st.UserByUsernameOrEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byID, err := st.UserByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Username, byID.Username)
	require.WithinDuration(t, u.CreatedAt, byID.CreatedAt, time.Second)
}

// TestIntegration_SaveUser_UniqueViolation — конфликт уникальности
// по username и по email, ожидаем storage.ErrAlreadyExists.
func TestIntegration_SaveUser_UniqueViolation(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	require.NoError(t, st.SaveUser(context.Background(), newStoredUser("alice77", "alice@example.com")))

	err := st.SaveUser(context.Background(), newStoredUser("alice77", "other@example.com"))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	err = st.SaveUser(context.Background(), newStoredUser("bobby55", "alice@example.com"))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

// TestIntegration_SaveUser_UnknownRole — ссылка на несуществующую роль,
// ожидаем storage.ErrNotFound; транзакция откатывается целиком.
func TestIntegration_SaveUser_UnknownRole(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := newStoredUser("carol33", "carol@example.com")
	u.Roles = []models.Role{{Name: "NO_SUCH_ROLE"}}

	err := st.SaveUser(context.Background(), u)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByUsernameOrEmail(context.Background(), "carol33")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_RolesWithAuthorities — authorities ролей попадают
// в загруженного пользователя.
func TestIntegration_RolesWithAuthorities(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()

	_, err := st.db.Exec(ctx, `INSERT INTO authorities(name, description) VALUES ('POST_READ', ''), ('POST_WRITE', '')`)
	require.NoError(t, err)
	_, err = st.db.Exec(ctx, `INSERT INTO role_authorities(role_name, authority_name) VALUES ('USER', 'POST_READ'), ('USER', 'POST_WRITE')`)
	require.NoError(t, err)

	u := newStoredUser("dave1234", "dave@example.com")
	require.NoError(t, st.SaveUser(ctx, u))

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got.Roles, 1)
	require.Len(t, got.Roles[0].Authorities, 2)
}

// TestIntegration_User_NotFound — отсутствующие записи дают storage.ErrNotFound.
func TestIntegration_User_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	_, err := st.UserByUsernameOrEmail(context.Background(), "absent99")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_UserQueries_ContextCanceled — отменённый контекст
// «просачивается» в ошибки чтения как context.Canceled.
func TestIntegration_UserQueries_ContextCanceled(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.UserByUsernameOrEmail(ctx, "alice77")
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
