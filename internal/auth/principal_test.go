package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prakerin/prakerin/internal/auth"
	"github.com/prakerin/prakerin/internal/shared"
)

type failingRepo struct{ *stubRepo }

func (failingRepo) FindByID(context.Context, uuid.UUID) (*auth.User, error) {
	return nil, errors.New("connection refused")
}

func sessionContext(userID string) context.Context {
	sess := &shared.Session{ID: "sid"}
	if userID != "" {
		sess.SetUser(userID)
	}
	return shared.ContextWithSession(context.Background(), sess)
}

func TestSessionPrincipals(t *testing.T) {
	user := &auth.User{ID: uuid.New(), Email: "hubdin@test.local", IsActive: true}
	principals := auth.NewSessionPrincipals(&stubRepo{user: user})

	t.Run("no session", func(t *testing.T) {
		p, err := principals.CurrentPrincipal(context.Background())
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("anonymous session", func(t *testing.T) {
		p, err := principals.CurrentPrincipal(sessionContext(""))
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("malformed id", func(t *testing.T) {
		p, err := principals.CurrentPrincipal(sessionContext("42"))
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("unknown user", func(t *testing.T) {
		p, err := principals.CurrentPrincipal(sessionContext(uuid.NewString()))
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("signed in", func(t *testing.T) {
		p, err := principals.CurrentPrincipal(sessionContext(user.ID.String()))
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, user.ID, p.ID)
		assert.Equal(t, user.Email, p.Email)
	})

	t.Run("inactive user", func(t *testing.T) {
		inactive := *user
		inactive.IsActive = false
		p, err := auth.NewSessionPrincipals(&stubRepo{user: &inactive}).CurrentPrincipal(sessionContext(user.ID.String()))
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("store failure", func(t *testing.T) {
		_, err := auth.NewSessionPrincipals(failingRepo{&stubRepo{}}).CurrentPrincipal(sessionContext(user.ID.String()))
		require.Error(t, err)
	})
}
