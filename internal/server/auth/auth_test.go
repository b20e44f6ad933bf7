package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/openmined/simlog/internal/db"
	"github.com/openmined/simlog/internal/server/session"
)

type MockJar struct {
	mock.Mock
}

func (m *MockJar) Valid(username, key string) bool {
	args := m.Called(username, key)
	return args.Bool(0)
}

func (m *MockJar) Remember(username, key string) {
	m.Called(username, key)
}

func (m *MockJar) Forget(username string) {
	m.Called(username)
}

var _ session.Jar = (*MockJar)(nil)

func getTestAuthConfig() *Config {
	return &Config{
		AdminPassword: "admin-secret",
		BcryptCost:    bcrypt.MinCost,
	}
}

func newTestUsers(t *testing.T) *UserStore {
	t.Helper()
	database, err := db.NewSqliteDB(db.WithPath(filepath.Join(t.TempDir(), "users.db")))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	users, err := NewUserStore(database)
	require.NoError(t, err)
	return users
}

func TestAuthService_RegisterAndVerify(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(getTestAuthConfig(), newTestUsers(t), session.New(0))

	key, err := svc.Register(ctx, "admin-secret", "alice")
	require.NoError(t, err)
	assert.Len(t, key, KeyLength)

	assert.NoError(t, svc.Verify(ctx, "alice", key))
	assert.ErrorIs(t, svc.Verify(ctx, "alice", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.Verify(ctx, "bob", key), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.Verify(ctx, "", ""), ErrInvalidCredentials)
}

func TestAuthService_ReRegisterReplacesKey(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(getTestAuthConfig(), newTestUsers(t), session.New(0))

	first, err := svc.Register(ctx, "admin-secret", "alice")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, "alice", first))

	second, err := svc.Register(ctx, "admin-secret", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	assert.ErrorIs(t, svc.Verify(ctx, "alice", first), ErrInvalidCredentials)
	assert.NoError(t, svc.Verify(ctx, "alice", second))
}

func TestAuthService_RegisterRequiresAdmin(t *testing.T) {
	svc := NewAuthService(getTestAuthConfig(), newTestUsers(t), session.New(0))

	_, err := svc.Register(context.Background(), "nope", "alice")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Register(context.Background(), "", "alice")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Register(context.Background(), "admin-secret", "a b")
	assert.ErrorIs(t, err, ErrInvalidUsername)
}

func TestAuthService_VerifyUsesJar(t *testing.T) {
	ctx := context.Background()
	users := newTestUsers(t)

	jar := &MockJar{}
	jar.On("Forget", "alice").Return()
	svc := NewAuthService(getTestAuthConfig(), users, jar)

	key, err := svc.Register(ctx, "admin-secret", "alice")
	require.NoError(t, err)

	jar.On("Valid", "alice", key).Return(false).Once()
	jar.On("Remember", "alice", key).Return().Once()
	require.NoError(t, svc.Verify(ctx, "alice", key))

	jar.On("Valid", "alice", key).Return(true).Once()
	require.NoError(t, svc.Verify(ctx, "alice", key))

	jar.AssertExpectations(t)
	jar.AssertNumberOfCalls(t, "Remember", 1)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, (&Config{}).Validate())
	assert.NoError(t, (&Config{AdminPassword: "x"}).Validate())
	assert.Error(t, (&Config{AdminPassword: "x", BcryptCost: 99}).Validate())
}
