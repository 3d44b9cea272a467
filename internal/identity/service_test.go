package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAccounts struct {
	mu      sync.Mutex
	byUID   map[string]account
	failAll error
	reads   int
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{byUID: map[string]account{}}
}

func (m *memoryAccounts) Insert(_ context.Context, a account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	for _, existing := range m.byUID {
		if existing.Email == a.Email {
			return ErrEmailExists
		}
	}
	m.byUID[a.UID] = a
	return nil
}

func (m *memoryAccounts) Delete(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	if _, ok := m.byUID[uid]; !ok {
		return ErrUserNotFound
	}
	delete(m.byUID, uid)
	return nil
}

func (m *memoryAccounts) ByEmail(_ context.Context, email string) (account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return account{}, m.failAll
	}
	for _, a := range m.byUID {
		if a.Email == email {
			return a, nil
		}
	}
	return account{}, ErrUserNotFound
}

func (m *memoryAccounts) ByUID(_ context.Context, uid string) (account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.failAll != nil {
		return account{}, m.failAll
	}
	a, ok := m.byUID[uid]
	if !ok {
		return account{}, ErrUserNotFound
	}
	return a, nil
}

func (m *memoryAccounts) SetTokensValidAfter(_ context.Context, uid string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	a, ok := m.byUID[uid]
	if !ok {
		return ErrUserNotFound
	}
	a.TokensValidAfter = t
	m.byUID[uid] = a
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T) (*Service, *memoryAccounts, *clock, *miniredis.Miniredis) {
	t.Helper()
	repo := newMemoryAccounts()
	svc, c, mr := newTestServiceWith(t, repo)
	return svc, repo, c, mr
}

func newTestServiceWith(t *testing.T, repo accountRepository) (*Service, *clock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	c := &clock{t: time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)}
	signer := NewTokenSigner("test-secret", "rpd-identity", "rpd-backend", time.Hour)
	signer.now = c.now

	svc := newService(repo, NewRevocationCache(rdb, time.Minute), signer, nil)
	svc.now = c.now
	return svc, c, mr
}

func TestService_CreateSignInVerify(t *testing.T) {
	svc, _, c, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.CreateUser(ctx, UserToCreate{Email: " Ana@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", rec.Email)
	assert.NotEmpty(t, rec.UID)

	c.t = c.t.Add(time.Minute)
	res, err := svc.SignInWithPassword(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, rec.UID, res.UID)

	tok, err := svc.VerifyIDToken(ctx, res.IDToken, true)
	require.NoError(t, err)
	assert.Equal(t, rec.UID, tok.UID)
	assert.Equal(t, "ana@example.com", tok.Email)
}

func TestService_CreateUser_Errors(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, UserToCreate{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, UserToCreate{Email: "ANA@example.com", Password: "another"})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = svc.CreateUser(ctx, UserToCreate{Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.CreateUser(ctx, UserToCreate{Email: "bob@example.com", Password: "123"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	repo.failAll = errors.New("connection reset")
	_, err = svc.CreateUser(ctx, UserToCreate{Email: "carl@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_SignIn_WrongCredentials(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, UserToCreate{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.SignInWithPassword(ctx, "ana@example.com", "wrong!")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = svc.SignInWithPassword(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestService_RevokeRefreshTokens(t *testing.T) {
	svc, _, c, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.CreateUser(ctx, UserToCreate{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	c.t = c.t.Add(time.Minute)
	res, err := svc.SignInWithPassword(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	// Populate the cache before revoking so invalidation is exercised.
	_, err = svc.VerifyIDToken(ctx, res.IDToken, true)
	require.NoError(t, err)

	c.t = c.t.Add(time.Minute)
	require.NoError(t, svc.RevokeRefreshTokens(ctx, rec.UID))

	_, err = svc.VerifyIDToken(ctx, res.IDToken, true)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// Without the revocation check the token still parses.
	tok, err := svc.VerifyIDToken(ctx, res.IDToken, false)
	require.NoError(t, err)
	assert.Equal(t, rec.UID, tok.UID)

	// A token issued after the revocation is accepted.
	c.t = c.t.Add(time.Second)
	fresh, err := svc.SignInWithPassword(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.VerifyIDToken(ctx, fresh.IDToken, true)
	assert.NoError(t, err)
}

func TestService_VerifyIDToken_UsesCache(t *testing.T) {
	svc, repo, c, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, UserToCreate{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	c.t = c.t.Add(time.Second)
	res, err := svc.SignInWithPassword(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.VerifyIDToken(ctx, res.IDToken, true)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.reads)
}

func TestService_VerifyIDToken_CacheDownFallsBackToStore(t *testing.T) {
	svc, _, c, mr := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, UserToCreate{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	c.t = c.t.Add(time.Second)
	res, err := svc.SignInWithPassword(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	mr.Close()
	_, err = svc.VerifyIDToken(ctx, res.IDToken, true)
	assert.NoError(t, err)
}

func TestService_DeleteUser(t *testing.T) {
	svc, _, c, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.CreateUser(ctx, UserToCreate{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	c.t = c.t.Add(time.Second)
	res, err := svc.SignInWithPassword(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, rec.UID))

	_, err = svc.VerifyIDToken(ctx, res.IDToken, true)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, svc.DeleteUser(ctx, rec.UID), ErrUserNotFound)
	assert.ErrorIs(t, svc.DeleteUser(ctx, ""), ErrInvalidArgument)
}

func TestService_VerifyIDToken_StoreFailure(t *testing.T) {
	svc, repo, c, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, UserToCreate{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	c.t = c.t.Add(time.Second)
	res, err := svc.SignInWithPassword(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	repo.failAll = errors.New("pq: connection refused")
	_, err = svc.VerifyIDToken(ctx, res.IDToken, true)
	assert.ErrorIs(t, err, ErrUnavailable)
}

// readHookAccounts runs afterRead once, right after the first ByUID read.
type readHookAccounts struct {
	*memoryAccounts
	afterRead func()
}

func (h *readHookAccounts) ByUID(ctx context.Context, uid string) (account, error) {
	a, err := h.memoryAccounts.ByUID(ctx, uid)
	if f := h.afterRead; f != nil {
		h.afterRead = nil
		f()
	}
	return a, err
}

func TestService_RevokeDuringVerifyIsNotUndone(t *testing.T) {
	repo := &readHookAccounts{memoryAccounts: newMemoryAccounts()}
	svc, c, _ := newTestServiceWith(t, repo)
	ctx := context.Background()

	rec, err := svc.CreateUser(ctx, UserToCreate{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	c.t = c.t.Add(time.Minute)
	old, err := svc.SignInWithPassword(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	c.t = c.t.Add(time.Minute)

	// Sign-out commits between the verifier's database read and its cache fill.
	repo.afterRead = func() {
		require.NoError(t, svc.RevokeRefreshTokens(ctx, rec.UID))
	}
	_, err = svc.VerifyIDToken(ctx, old.IDToken, true)
	require.NoError(t, err)

	_, err = svc.VerifyIDToken(ctx, old.IDToken, true)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestService_DeleteDuringVerifyIsNotUndone(t *testing.T) {
	repo := &readHookAccounts{memoryAccounts: newMemoryAccounts()}
	svc, c, _ := newTestServiceWith(t, repo)
	ctx := context.Background()

	rec, err := svc.CreateUser(ctx, UserToCreate{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	c.t = c.t.Add(time.Second)
	res, err := svc.SignInWithPassword(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	repo.afterRead = func() {
		require.NoError(t, svc.DeleteUser(ctx, rec.UID))
	}
	_, err = svc.VerifyIDToken(ctx, res.IDToken, true)
	require.NoError(t, err)

	_, err = svc.VerifyIDToken(ctx, res.IDToken, true)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_RevocationFailsWhenCacheIsDown(t *testing.T) {
	svc, repo, c, mr := newTestService(t)
	ctx := context.Background()

	rec, err := svc.CreateUser(ctx, UserToCreate{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	c.t = c.t.Add(time.Minute)

	mr.Close()
	assert.ErrorIs(t, svc.RevokeRefreshTokens(ctx, rec.UID), ErrUnavailable)

	assert.ErrorIs(t, svc.DeleteUser(ctx, rec.UID), ErrUnavailable)
	_, err = repo.ByUID(ctx, rec.UID)
	assert.NoError(t, err, "account must survive a delete that could not reach the cache")
}
