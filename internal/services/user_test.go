package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/lectern-api/internal/database"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userRowColumns = []string{"id", "email", "name", "role", "password", "phone", "created_at", "updated_at"}

// bcryptOf matches a query argument that is a bcrypt hash of the password.
type bcryptOf string

func (p bcryptOf) Match(v any) bool {
	hash, ok := v.(string)
	return ok && bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}

func setupUserService(t *testing.T) (*UserService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewUserService(db), mock
}

func TestUserService_GetByEmail_Found(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(userRowColumns).
		AddRow(userID, "teacher@demo.com", "Demo Teacher", "teacher", nil, nil, now, now)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("teacher@demo.com").
		WillReturnRows(rows)

	user, err := svc.GetByEmail(ctx, "teacher@demo.com")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.Nil(t, user.Password)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByEmail_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("ghost@demo.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByEmail(context.Background(), "ghost@demo.com")

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id`).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(context.Background(), userID)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Create(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(userRowColumns).
		AddRow(userID, "admin@demo.com", "Demo Admin", "admin", nil, nil, now, now)
	mock.ExpectQuery(`INSERT INTO users \(email, name, role\)`).
		WithArgs("admin@demo.com", "Demo Admin", "admin").
		WillReturnRows(rows)

	user, err := svc.Create(context.Background(), "admin@demo.com", "Demo Admin", models.RoleAdmin)

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Create_Duplicate(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("admin@demo.com", "Demo Admin", "admin").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := svc.Create(context.Background(), "admin@demo.com", "Demo Admin", models.RoleAdmin)

	assert.ErrorIs(t, err, ErrUserExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Create_OtherError(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("admin@demo.com", "Demo Admin", "admin").
		WillReturnError(assert.AnError)

	_, err := svc.Create(context.Background(), "admin@demo.com", "Demo Admin", models.RoleAdmin)

	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, ErrUserExists)
}

func TestUserService_CreateTeacher_HashesPassword(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()
	phone := "+91 99999 00000"

	var stored string
	rows := pgxmock.NewRows(userRowColumns).
		AddRow(userID, "t@school.edu", "T", "teacher", &stored, &phone, now, now)
	mock.ExpectQuery(`INSERT INTO users \(email, name, role, password, phone\)`).
		WithArgs("t@school.edu", "T", "teacher", bcryptOf("s3cret!"), &phone).
		WillReturnRows(rows)

	user, err := svc.CreateTeacher(context.Background(), "T", "t@school.edu", "s3cret!", &phone)

	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_CreateTeacher_Duplicate(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("t@school.edu", "T", "teacher", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := svc.CreateTeacher(context.Background(), "T", "t@school.edu", "s3cret!", nil)

	assert.ErrorIs(t, err, ErrUserExists)
}

func TestUserService_UpdateRole(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(userRowColumns).
		AddRow(userID, "t@school.edu", "T", "admin", nil, nil, now, now)
	mock.ExpectQuery(`UPDATE users SET role = \$1, updated_at = NOW\(\)\s+WHERE id = \$2`).
		WithArgs("admin", userID).
		WillReturnRows(rows)

	user, err := svc.UpdateRole(context.Background(), userID, models.RoleAdmin)

	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdateRoleByEmail_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`UPDATE users SET role = .+ WHERE email`).
		WithArgs("teacher", "ghost@demo.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.UpdateRoleByEmail(context.Background(), "ghost@demo.com", models.RoleTeacher)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_Update(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()
	phone := "123"

	rows := pgxmock.NewRows(userRowColumns).
		AddRow(userID, "s@demo.com", "New Name", "student", nil, &phone, now, now)
	mock.ExpectQuery(`UPDATE users SET name = \$1, phone = \$2`).
		WithArgs("New Name", &phone, userID).
		WillReturnRows(rows)

	user, err := svc.Update(context.Background(), userID, "New Name", &phone)

	require.NoError(t, err)
	assert.Equal(t, "New Name", user.Name)
	require.NotNil(t, user.Phone)
	assert.Equal(t, phone, *user.Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_ListByRole(t *testing.T) {
	svc, mock := setupUserService(t)
	now := time.Now()

	rows := pgxmock.NewRows(userRowColumns).
		AddRow(uuid.New(), "a@school.edu", "A", "teacher", nil, nil, now, now).
		AddRow(uuid.New(), "b@school.edu", "B", "teacher", nil, nil, now, now)
	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE role = \$1`).
		WithArgs("teacher").
		WillReturnRows(rows)

	users, err := svc.ListByRole(context.Background(), models.RoleTeacher)

	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Recent_Empty(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`SELECT .+ FROM users\s+ORDER BY created_at DESC\s+LIMIT`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows(userRowColumns))

	users, err := svc.Recent(context.Background(), 5)

	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}
