package directory_test

import (
	"context"
	"testing"

	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/directory"
	"wastetrack/backend/internal/models"
	"wastetrack/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, d *directory.Service, email string, role models.Role) *models.User {
	t.Helper()
	u, err := d.Register(context.Background(), directory.RegisterInput{
		Name:     "User " + email,
		Email:    email,
		Password: "secret123",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func TestRegister_HashesPasswordAndActivates(t *testing.T) {
	d := directory.NewService(storage.NewMemoryStorage())

	u := register(t, d, " Citizen@Example.com ", models.RoleCitizen)

	assert.Equal(t, "citizen@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "secret123", u.Password)
	assert.NotEmpty(t, u.ID)
}

func TestRegister_Validation(t *testing.T) {
	d := directory.NewService(storage.NewMemoryStorage())
	ctx := context.Background()

	tests := []struct {
		name string
		in   directory.RegisterInput
	}{
		{"missing name", directory.RegisterInput{Email: "a@example.com", Password: "secret123", Role: models.RoleCitizen}},
		{"bad email", directory.RegisterInput{Name: "A", Email: "not-an-email", Password: "secret123", Role: models.RoleCitizen}},
		{"short password", directory.RegisterInput{Name: "A", Email: "a@example.com", Password: "123", Role: models.RoleCitizen}},
		{"unknown role", directory.RegisterInput{Name: "A", Email: "a@example.com", Password: "secret123", Role: "ADMIN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Register(ctx, tt.in)
			assert.True(t, apperr.Is(err, apperr.KindInvalidArgument), "got %v", err)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	d := directory.NewService(storage.NewMemoryStorage())
	register(t, d, "dup@example.com", models.RoleCitizen)

	_, err := d.Register(context.Background(), directory.RegisterInput{
		Name: "Again", Email: "DUP@example.com", Password: "secret123", Role: models.RoleWorker,
	})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestResolveAndRequireRole(t *testing.T) {
	d := directory.NewService(storage.NewMemoryStorage())
	worker := register(t, d, "w@example.com", models.RoleWorker)

	got, err := d.Resolve(context.Background(), worker.ID)
	require.NoError(t, err)
	assert.NoError(t, directory.RequireRole(got, models.RoleWorker))
	assert.True(t, apperr.Is(directory.RequireRole(got, models.RoleAgent), apperr.KindUnauthorized))
	assert.True(t, apperr.Is(directory.RequireRole(nil, models.RoleAgent), apperr.KindUnauthorized))

	_, err = d.Resolve(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAuthenticate(t *testing.T) {
	d := directory.NewService(storage.NewMemoryStorage())
	ctx := context.Background()
	u := register(t, d, "agent@example.com", models.RoleAgent)

	got, err := d.Authenticate(ctx, "Agent@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = d.Authenticate(ctx, "agent@example.com", "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = d.Authenticate(ctx, "nobody@example.com", "secret123")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "unknown emails are not revealed")

	require.NoError(t, d.SetActive(ctx, u.ID, false))
	_, err = d.Authenticate(ctx, "agent@example.com", "secret123")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestListActiveByRole_FiltersInactive(t *testing.T) {
	d := directory.NewService(storage.NewMemoryStorage())
	ctx := context.Background()
	w1 := register(t, d, "w1@example.com", models.RoleWorker)
	w2 := register(t, d, "w2@example.com", models.RoleWorker)
	register(t, d, "c@example.com", models.RoleCitizen)

	require.NoError(t, d.SetActive(ctx, w2.ID, false))

	workers, err := d.ListActiveByRole(ctx, models.RoleWorker)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, w1.ID, workers[0].ID)

	all, err := d.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := d.Resolve(ctx, w2.ID)
	require.NoError(t, err)
	assert.False(t, directory.IsActive(got))
	assert.Equal(t, models.RoleWorker, got.Role, "deactivation never changes the role")
}
