package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/internal/repository/memory"
	"github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

func newAuthService(store *memory.Store) *AuthService {
	return NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 15,
		BcryptCost:            bcrypt.MinCost,
	}, store, nil)
}

func TestLoginIssuesToken(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, UserCreateInput{Name: "Ada", Email: " Ada@Desk.Example.com ", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "ada@desk.example.com", created.Email)
	assert.Equal(t, domain.UserRoleAgent, created.Role)

	user, token, exp, err := svc.Login(ctx, "ada@desk.example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.False(t, exp.IsZero())

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.Subject)
	assert.Equal(t, domain.UserRoleAgent, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, UserCreateInput{Email: "ada@desk.example.com", Password: "s3cret"})
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "ada@desk.example.com", "wrong")
	assert.ErrorIs(t, err, &errorutil.DomainError{Code: errorutil.CodeUnauthorized})

	_, _, _, err = svc.Login(ctx, "nobody@desk.example.com", "s3cret")
	assert.ErrorIs(t, err, &errorutil.DomainError{Code: errorutil.CodeUnauthorized})
}

func TestLoginRejectsSuspendedUser(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, store.WithinTx(ctx, func(u repository.Unit) error {
		return u.Users().Create(ctx, &domain.User{
			Email:        "gone@desk.example.com",
			PasswordHash: string(hash),
			Role:         domain.UserRoleAgent,
			Status:       domain.UserStatusSuspended,
		})
	}))

	_, _, _, err = svc.Login(ctx, "gone@desk.example.com", "s3cret")
	assert.ErrorIs(t, err, &errorutil.DomainError{Code: errorutil.CodeUnauthorized})
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc := newAuthService(memory.NewStore())
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, UserCreateInput{Email: "ada@desk.example.com", Password: "a"})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, UserCreateInput{Email: "ADA@desk.example.com", Password: "b"})
	assert.ErrorIs(t, err, &errorutil.DomainError{Code: errorutil.CodeConflict})
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	svc := newAuthService(memory.NewStore())
	ctx := context.Background()
	input := UserCreateInput{Name: "Administrator", Email: "admin@desk.example.com", Password: "changeme", Role: domain.UserRoleAdmin}

	first, err := svc.EnsureUser(ctx, input)
	require.NoError(t, err)
	second, err := svc.EnsureUser(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.UserRoleAdmin, second.Role)
}

func TestLoadUser(t *testing.T) {
	svc := newAuthService(memory.NewStore())
	ctx := context.Background()
	created, err := svc.CreateUser(ctx, UserCreateInput{Email: "ada@desk.example.com", Password: "a"})
	require.NoError(t, err)

	loaded, err := svc.LoadUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, loaded.Email)

	_, err = svc.LoadUser(ctx, "missing")
	assert.ErrorIs(t, err, errorutil.ErrNotFound)
}
