package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/djhunter67/study-site/pkg/crypto"
	apperrors "github.com/djhunter67/study-site/pkg/errors"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()

	svc, err := NewUserService(openServiceTestDB(t))
	require.NoError(t, err)
	return svc
}

func TestUserServiceCreateDefaultsInactive(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{
		Email:     "  Jane.Doe@Example.COM ",
		Password:  "s3cret-pass",
		FirstName: " Jane ",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "jane.doe@example.com", user.Email)
	require.Equal(t, "Jane", user.FirstName)
	require.False(t, user.IsActive)
	require.NotEqual(t, "s3cret-pass", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "s3cret-pass"))
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Email: "jane@example.com", Password: "pass-one"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "JANE@example.com", Password: "pass-two"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserServiceCreateValidation(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Password: "something"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "jane@example.com"})
	require.Error(t, err)
}

func TestUserServiceGetByEmail(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{Email: "jane@example.com", Password: "pass"})
	require.NoError(t, err)

	found, err := svc.GetByEmail(ctx, "Jane@Example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = svc.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserServiceListFilters(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	active := true
	for _, seed := range []CreateUserInput{
		{Email: "alpha@example.com", Password: "pass", FirstName: "Alpha"},
		{Email: "beta@example.com", Password: "pass", FirstName: "Beta", IsActive: &active},
		{Email: "gamma@example.com", Password: "pass", FirstName: "Gamma", IsActive: &active},
	} {
		_, err := svc.Create(ctx, seed)
		require.NoError(t, err)
	}

	users, total, err := svc.List(ctx, ListUsersOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, users, 3)

	users, total, err = svc.List(ctx, ListUsersOptions{Filters: UserFilters{IsActive: &active}})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, users, 2)

	users, total, err = svc.List(ctx, ListUsersOptions{Filters: UserFilters{Query: "alpha"}})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "alpha@example.com", users[0].Email)

	users, _, err = svc.List(ctx, ListUsersOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestUserServiceUpdate(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Email: "jane@example.com", Password: "pass"})
	require.NoError(t, err)

	newEmail := "jane.new@example.com"
	newFirst := "Janet"
	updated, err := svc.Update(ctx, user.ID, UpdateUserInput{Email: &newEmail, FirstName: &newFirst})
	require.NoError(t, err)
	require.Equal(t, "jane.new@example.com", updated.Email)
	require.Equal(t, "Janet", updated.FirstName)

	_, err = svc.Update(ctx, "missing-id", UpdateUserInput{FirstName: &newFirst})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserServiceUpdateDuplicateEmail(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Email: "taken@example.com", Password: "pass"})
	require.NoError(t, err)
	user, err := svc.Create(ctx, CreateUserInput{Email: "jane@example.com", Password: "pass"})
	require.NoError(t, err)

	taken := "taken@example.com"
	_, err = svc.Update(ctx, user.ID, UpdateUserInput{Email: &taken})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserServiceDelete(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Email: "jane@example.com", Password: "pass"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user.ID))
	require.ErrorIs(t, svc.Delete(ctx, user.ID), ErrUserNotFound)
}

func TestUserServiceSetActive(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Email: "jane@example.com", Password: "pass"})
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(ctx, user.ID, true))

	reloaded, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, reloaded.IsActive)

	require.ErrorIs(t, svc.SetActive(ctx, "missing-id", true), ErrUserNotFound)
}

func TestUserServiceAuthenticate(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Email: "jane@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	// Unconfirmed accounts cannot log in even with correct credentials.
	_, err = svc.Authenticate(ctx, "jane@example.com", "s3cret-pass")
	require.ErrorIs(t, err, apperrors.ErrAccountInactive)

	require.NoError(t, svc.SetActive(ctx, user.ID, true))

	_, err = svc.Authenticate(ctx, "jane@example.com", "wrong-pass")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cret-pass")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	authed, err := svc.Authenticate(ctx, "Jane@Example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)
	require.NotNil(t, authed.LastLoginAt)
}
