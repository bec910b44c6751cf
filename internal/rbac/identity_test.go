package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errPrincipals struct{ err error }

func (e errPrincipals) CurrentPrincipal(context.Context) (*Principal, error) { return nil, e.err }

func TestIdentityLoaderAnonymous(t *testing.T) {
	store := newMemoryStore()
	identity, err := NewIdentityLoader(store, store).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestIdentityLoaderNormalizesRoles(t *testing.T) {
	store := newMemoryStore()
	id := store.addUser("Pembimbing_Sekolah", "siswa", "pembimbing-sekolah", "")

	identity, err := NewIdentityLoader(store, store).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, id, identity.Principal.ID)
	assert.Equal(t, id, identity.Profile.ID)
	assert.Equal(t, []Role{RolePembimbingSekolah, RoleSiswa}, identity.Roles)
}

func TestIdentityLoaderMissingProfile(t *testing.T) {
	store := newMemoryStore()
	id := store.addUser("siswa")
	delete(store.profiles, id)

	_, err := NewIdentityLoader(store, store).Load(context.Background())
	var integrity *DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "profile", integrity.Missing)
	assert.Equal(t, id, integrity.Principal)
}

func TestIdentityLoaderZeroRoles(t *testing.T) {
	store := newMemoryStore()
	store.addUser()

	_, err := NewIdentityLoader(store, store).Load(context.Background())
	require.True(t, IsDataIntegrity(err))
	assert.Contains(t, err.Error(), "has no roles")
	assert.Equal(t, FailureIntegrity, Classify(err))
}

func TestIdentityLoaderStoreErrors(t *testing.T) {
	boom := errors.New("db down")

	store := newMemoryStore()
	store.addUser("siswa")
	store.failWith = boom
	_, err := NewIdentityLoader(store, store).Load(context.Background())
	require.ErrorIs(t, err, boom)
	assert.False(t, IsDataIntegrity(err))

	_, err = NewIdentityLoader(errPrincipals{err: boom}, store).Load(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestBuilderBuild(t *testing.T) {
	store := newMemoryStore()
	id := store.addUser("pembimbing_perusahaan")
	store.grant("pembimbing_perusahaan", "Company.Profile", true)

	authz, err := store.builder().Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, authz.UserID())
	assert.True(t, authz.Roles.Has("pembimbing-perusahaan"))
	assert.True(t, authz.Permissions.Has("company.profile"))
}

func TestBuilderAnonymous(t *testing.T) {
	store := newMemoryStore()
	_, err := store.builder().Build(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.EqualValues(t, 0, store.grantQueries.Load())
}

func TestBuilderReusesScopeContext(t *testing.T) {
	store := newMemoryStore()
	store.addUser("siswa")
	ctx := WithScope(context.Background(), NewScope())
	builder := store.builder()

	assert.Nil(t, FromContext(ctx))
	first, err := builder.Build(ctx)
	require.NoError(t, err)
	assert.Same(t, first, FromContext(ctx))

	// Later changes in the store are not seen within the same request.
	store.assignments[first.UserID()] = []string{"hubdin"}
	second, err := builder.Build(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, store.grantQueries.Load())

	fresh, err := builder.Build(WithScope(context.Background(), NewScope()))
	require.NoError(t, err)
	assert.True(t, fresh.Roles.Has("hubdin"))
}

func TestAuthorizationContextUserIDNilSafe(t *testing.T) {
	var authz *AuthorizationContext
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", authz.UserID().String())
}
