package account

import (
	"context"
	"testing"

	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/account"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/auth"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/id"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*Service, *memory.AccountRepository) {
	t.Helper()
	issuer, err := auth.NewJWTIssuer("test-secret", 0)
	require.NoError(t, err)
	repo := memory.NewAccountRepository()
	return NewService(repo, auth.NewBcryptHasher(bcrypt.MinCost), issuer, id.NewUUIDGenerator(), nil), repo
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	acc, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: " Asha@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", acc.Email)
	assert.False(t, acc.IsAdmin)

	_, err = svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	session, err := svc.Login(ctx, "ASHA@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, acc.ID, session.Account.ID)

	id, loaded, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, id.AccountID)
	assert.Equal(t, acc.ID, loaded.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	cases := []RegisterInput{
		{Email: "a@example.com", Password: "secret1"},
		{Name: "A", Password: "secret1"},
		{Name: "A", Email: "a@example.com"},
		{Name: "A", Email: "a@example.com", Password: "short"},
		{Name: "A", Email: "not-an-email", Password: "secret1"},
	}
	for _, in := range cases {
		_, err := svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%+v", in)
	}
}

func TestLoginHidesWhichPartFailed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, errWrongPass := svc.Login(ctx, "asha@example.com", "nope123")
	_, errUnknown := svc.Login(ctx, "ghost@example.com", "secret1")

	assert.ErrorIs(t, errWrongPass, apperr.ErrUnauthenticated)
	assert.ErrorIs(t, errUnknown, apperr.ErrUnauthenticated)
	assert.Equal(t, errWrongPass.Error(), errUnknown.Error())
}

func TestAuthenticateRejectsDeletedAccount(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	acc, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)
	session, err := svc.Login(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, acc.ID))
	_, _, err = svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, _, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, _, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAdminFlagComesFromStore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	acc, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)
	session, err := svc.Login(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.Bootstrap(ctx, "ASHA@example.com"))
	id, _, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin)

	require.NoError(t, svc.Bootstrap(ctx, "asha@example.com"))
	assert.ErrorIs(t, svc.Bootstrap(ctx, "ghost@example.com"), domain.ErrNotFound)

	demote := false
	updated, err := svc.Update(ctx, acc.ID, AdminPatch{IsAdmin: &demote})
	require.NoError(t, err)
	assert.False(t, updated.IsAdmin)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	acc, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "Bikash", Email: "bikash@example.com", Password: "secret1"})
	require.NoError(t, err)

	name, pass := "Asha K", "newsecret"
	updated, err := svc.UpdateProfile(ctx, acc.ID, ProfilePatch{Name: &name, Password: &pass})
	require.NoError(t, err)
	assert.Equal(t, "Asha K", updated.Name)
	_, err = svc.Login(ctx, "asha@example.com", "newsecret")
	require.NoError(t, err)

	taken := "bikash@example.com"
	_, err = svc.UpdateProfile(ctx, acc.ID, ProfilePatch{Email: &taken})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	short := "abc"
	_, err = svc.UpdateProfile(ctx, acc.ID, ProfilePatch{Password: &short})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteForbidsSelf(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	admin, err := svc.Register(ctx, RegisterInput{Name: "Admin", Email: "admin@example.com", Password: "secret1"})
	require.NoError(t, err)
	user, err := svc.Register(ctx, RegisterInput{Name: "User", Email: "user@example.com", Password: "secret1"})
	require.NoError(t, err)
	requester := domain.Identity{AccountID: admin.ID, IsAdmin: true}

	assert.ErrorIs(t, svc.Delete(ctx, admin.ID, requester), domain.ErrSelfDelete)
	require.NoError(t, svc.Delete(ctx, user.ID, requester))
	assert.ErrorIs(t, svc.Delete(ctx, user.ID, requester), domain.ErrNotFound)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
