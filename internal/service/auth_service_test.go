package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

type mockRegistrarAuth struct {
	reply *models.RegistrarLogin
	err   error
	calls int
}

func (m *mockRegistrarAuth) Login(ctx context.Context, req models.LoginRequest) (*models.RegistrarLogin, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.reply, nil
}

type mockSessionStore struct {
	sessions map[string]*session.Session
	ttl      time.Duration
	saveErr  error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: map[string]*session.Session{}}
}

func (m *mockSessionStore) Save(ctx context.Context, s *session.Session, ttl time.Duration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[s.ID] = s
	m.ttl = ttl
	return nil
}

func (m *mockSessionStore) Find(ctx context.Context, id string) (*session.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, appErrors.ErrAuth
	}
	return s, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func newTestAuthService(registrar *mockRegistrarAuth, store *mockSessionStore) *AuthService {
	return NewAuthService(registrar, store, nil, nil, NewMetricsService(), nil, AuthConfig{Secret: "test-secret", TTL: time.Hour, Issuer: "test"})
}

func TestAuthServiceLoginOpensSession(t *testing.T) {
	registrar := &mockRegistrarAuth{reply: &models.RegistrarLogin{Token: "reg-token", UserType: models.UserTypeStudent, ID: 7, Username: "21CS001"}}
	store := newMockSessionStore()
	svc := newTestAuthService(registrar, store)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "21CS001", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotContains(t, resp.AccessToken, "reg-token")
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.UserTypeStudent, resp.User.UserType)
	assert.Equal(t, time.Hour, store.ttl)
	require.Len(t, store.sessions, 1)

	sess, err := svc.Authenticate(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "reg-token", sess.Token)
	assert.Equal(t, 7, sess.UserID)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	registrar := &mockRegistrarAuth{}
	svc := newTestAuthService(registrar, newMockSessionStore())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, registrar.calls)
}

func TestAuthServiceLoginPropagatesRegistrarError(t *testing.T) {
	registrar := &mockRegistrarAuth{err: appErrors.ErrInvalidCredentials}
	store := newMockSessionStore()
	svc := newTestAuthService(registrar, store)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "x", Password: "y"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
	assert.Empty(t, store.sessions)
}

func TestAuthServiceLogoutRevokes(t *testing.T) {
	registrar := &mockRegistrarAuth{reply: &models.RegistrarLogin{Token: "t", UserType: models.UserTypeHOD, ID: 2, Username: "hod"}}
	store := newMockSessionStore()
	svc := newTestAuthService(registrar, store)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "hod", Password: "pw"})
	require.NoError(t, err)
	sess, err := svc.Authenticate(context.Background(), resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), sess))
	_, err = svc.Authenticate(context.Background(), resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrAuth))
}

func TestAuthServiceRejectsForeignToken(t *testing.T) {
	registrar := &mockRegistrarAuth{reply: &models.RegistrarLogin{Token: "t", ID: 1, Username: "a"}}
	store := newMockSessionStore()
	other := NewAuthService(registrar, store, nil, nil, nil, nil, AuthConfig{Secret: "other"})
	resp, err := other.Login(context.Background(), models.LoginRequest{Username: "a", Password: "b"})
	require.NoError(t, err)

	svc := newTestAuthService(registrar, store)
	_, err = svc.Authenticate(context.Background(), resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrAuth))

	_, err = svc.ValidateToken("not-a-jwt")
	assert.True(t, errors.Is(err, appErrors.ErrAuth))
}

func TestAuthServiceExpiredToken(t *testing.T) {
	registrar := &mockRegistrarAuth{reply: &models.RegistrarLogin{Token: "t", ID: 1, Username: "a"}}
	svc := newTestAuthService(registrar, newMockSessionStore())
	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "a", Password: "b"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = svc.Authenticate(context.Background(), resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrAuth))
}

func TestAuthServiceMe(t *testing.T) {
	svc := newTestAuthService(&mockRegistrarAuth{}, newMockSessionStore())
	_, err := svc.Me(nil)
	assert.True(t, errors.Is(err, appErrors.ErrAuth))

	info, err := svc.Me(&session.Session{UserID: 3, Username: "admin", UserType: "Admin"})
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeAdmin, info.UserType)
}

func TestAuthServiceLogoutPurgesCallerCache(t *testing.T) {
	registrar := &mockRegistrarAuth{reply: &models.RegistrarLogin{Token: "t", UserType: models.UserTypeHOD, ID: 2, Username: "hod"}}
	store := newMockSessionStore()
	kv := newMemoryCache()
	cache := NewCacheService(kv, nil, time.Minute, nil, true)
	svc := NewAuthService(registrar, store, cache, nil, nil, nil, AuthConfig{Secret: "s"})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "hod", Password: "pw"})
	require.NoError(t, err)
	sess, err := svc.Authenticate(context.Background(), resp.AccessToken)
	require.NoError(t, err)

	owner := session.WithSession(context.Background(), sess)
	other := session.WithSession(context.Background(), &session.Session{Username: "admin"})
	require.NoError(t, cache.Set(owner, CacheKeyCourses, []int{1}))
	require.NoError(t, cache.Set(owner, CacheKeyStudents, []int{2}))
	require.NoError(t, cache.Set(other, CacheKeyCourses, []int{3}))

	require.NoError(t, svc.Logout(context.Background(), sess))
	assert.NotContains(t, kv.data, "cache:hod:courses")
	assert.NotContains(t, kv.data, "cache:hod:students")
	assert.Contains(t, kv.data, "cache:admin:courses")
}
