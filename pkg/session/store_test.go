package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeAuth struct {
	mu       sync.Mutex
	calls    int
	password string
	gate     chan struct{}
	err      error
	verify   func(tok *oauth2.Token) (*User, error)
}

func (f *fakeAuth) Authenticate(ctx context.Context, creds Credentials) (*Grant, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if creds.Secret != f.password {
		return nil, InvalidCredentials("Invalid email or password")
	}
	return &Grant{
		User:  User{ID: "u-1", Email: creds.Identifier, Role: "admin"},
		Token: &oauth2.Token{AccessToken: "tok-" + creds.Identifier, TokenType: "Bearer"},
	}, nil
}

func (f *fakeAuth) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type verifyingAuth struct {
	*fakeAuth
}

func (v verifyingAuth) Verify(ctx context.Context, tok *oauth2.Token) (*User, error) {
	return v.verify(tok)
}

func assertInvariant(t *testing.T, s *Store) {
	t.Helper()
	_, hasUser := s.CurrentUser()
	_, hasToken := s.Token()
	assert.Equal(t, hasUser, hasToken, "user and token must be set together")
}

func TestLoginSuccessStoresIdentity(t *testing.T) {
	store := NewStore(&fakeAuth{password: "right"})

	sess, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)
	assert.True(t, sess.Authenticated())

	user, ok := store.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "admin@x.com", user.Email)
	assert.Equal(t, "u-1", user.ID)

	tok, ok := store.Token()
	require.True(t, ok)
	assert.Equal(t, "tok-admin@x.com", tok)
	assertInvariant(t, store)
}

func TestLoginRejectedLeavesStateUntouched(t *testing.T) {
	store := NewStore(&fakeAuth{password: "right"})

	_, err := store.Login(context.Background(), "admin@x.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Invalid email or password", Message(err))
	assert.False(t, store.IsAuthenticated())
	assertInvariant(t, store)
}

func TestLoginRejectedKeepsPreviousSession(t *testing.T) {
	store := NewStore(&fakeAuth{password: "right"})
	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)

	_, err = store.Login(context.Background(), "other@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	user, ok := store.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "admin@x.com", user.Email)
}

func TestLoginMissingCredentials(t *testing.T) {
	auth := &fakeAuth{password: "right"}
	store := NewStore(auth)

	tests := []struct {
		name       string
		identifier string
		secret     string
	}{
		{name: "empty identifier", identifier: "", secret: "right"},
		{name: "blank identifier", identifier: "   ", secret: "right"},
		{name: "empty secret", identifier: "admin@x.com", secret: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Login(context.Background(), tt.identifier, tt.secret)
			assert.ErrorIs(t, err, ErrMissingCredentials)
			assert.Equal(t, MsgMissingCredentials, Message(err))
		})
	}
	assert.Zero(t, auth.Calls())
}

func TestLoginTransportErrorBecomesNetworkFailure(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	store := NewStore(&fakeAuth{err: cause})

	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetworkFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, MsgNetworkFailure, Message(err))
	assert.False(t, store.IsAuthenticated())
}

func TestLoginMalformedGrant(t *testing.T) {
	store := NewStore(authFunc(func(ctx context.Context, c Credentials) (*Grant, error) {
		return &Grant{User: User{ID: "u-1"}}, nil
	}))

	_, err := store.Login(context.Background(), "admin@x.com", "right")
	assert.ErrorIs(t, err, ErrNetworkFailure)
	assertInvariant(t, store)
}

type authFunc func(ctx context.Context, c Credentials) (*Grant, error)

func (f authFunc) Authenticate(ctx context.Context, c Credentials) (*Grant, error) {
	return f(ctx, c)
}

func TestConcurrentLoginFirstCallWins(t *testing.T) {
	auth := &fakeAuth{password: "right", gate: make(chan struct{})}
	store := NewStore(auth)

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = store.Login(context.Background(), "first@x.com", "right")
	}()

	require.Eventually(t, store.LoginPending, time.Second, time.Millisecond)

	_, err := store.Login(context.Background(), "second@x.com", "right")
	assert.ErrorIs(t, err, ErrLoginInProgress)

	close(auth.gate)
	wg.Wait()
	require.NoError(t, firstErr)

	user, ok := store.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "first@x.com", user.Email)
	assert.Equal(t, 1, auth.Calls())
	assert.False(t, store.LoginPending())
}

func TestLoginAbandonedWhenContextCancelled(t *testing.T) {
	auth := &fakeAuth{password: "right", gate: make(chan struct{})}
	store := NewStore(auth)
	events := 0
	store.Subscribe(func(Event) { events++ })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := store.Login(ctx, "admin@x.com", "right")
		done <- err
	}()
	require.Eventually(t, store.LoginPending, time.Second, time.Millisecond)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, ErrLoginAbandoned)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, store.IsAuthenticated())
	assert.Zero(t, events)
}

func TestLogoutDuringPendingLoginDiscardsResult(t *testing.T) {
	auth := &fakeAuth{password: "right", gate: make(chan struct{})}
	store := NewStore(auth)

	done := make(chan error, 1)
	go func() {
		_, err := store.Login(context.Background(), "admin@x.com", "right")
		done <- err
	}()
	require.Eventually(t, store.LoginPending, time.Second, time.Millisecond)

	store.Logout()
	close(auth.gate)

	assert.ErrorIs(t, <-done, ErrLoginAbandoned)
	assert.False(t, store.IsAuthenticated())
}

func TestLogoutClearsAndNotifiesOnce(t *testing.T) {
	store := NewStore(&fakeAuth{password: "right"})
	var kinds []EventKind
	store.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })

	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)

	store.Logout()
	store.Logout()
	store.Logout()

	_, ok := store.CurrentUser()
	assert.False(t, ok)
	assertInvariant(t, store)
	assert.Equal(t, []EventKind{EventLogin, EventLogout}, kinds)
}

func TestLogoutWhenSignedOutIsSilent(t *testing.T) {
	store := NewStore(&fakeAuth{password: "right"})
	calls := 0
	store.Subscribe(func(Event) { calls++ })

	store.Logout()

	assert.Zero(t, calls)
	assert.False(t, store.IsAuthenticated())
}

func TestListenersSeeNewStateSynchronously(t *testing.T) {
	store := NewStore(&fakeAuth{password: "right"})
	var seen []bool
	store.Subscribe(func(e Event) {
		seen = append(seen, store.IsAuthenticated())
		assert.Equal(t, e.Session.Authenticated(), store.IsAuthenticated())
	})

	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)
	require.Len(t, seen, 1, "listener must run before Login returns")
	store.Logout()

	assert.Equal(t, []bool{true, false}, seen)
}

func TestUnsubscribe(t *testing.T) {
	store := NewStore(&fakeAuth{password: "right"})
	calls := 0
	cancel := store.Subscribe(func(Event) { calls++ })
	cancel()
	cancel()

	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestReportAuthFailure(t *testing.T) {
	store := NewStore(&fakeAuth{password: "right"})
	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)

	var last Event
	store.Subscribe(func(e Event) { last = e })

	assert.False(t, store.ReportAuthFailure(errors.New("500 internal error")))
	assert.False(t, store.ReportAuthFailure(nil))
	assert.True(t, store.IsAuthenticated())

	assert.True(t, store.ReportAuthFailure(SessionExpired(errors.New("401 from /api/v1/users"))))
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, EventExpired, last.Kind)
	assert.Equal(t, MsgSessionExpired, last.Reason)

	assert.False(t, store.ReportAuthFailure(ErrSessionExpired), "already signed out")
}

func TestExpireTokenIgnoresStaleToken(t *testing.T) {
	store := NewStore(&fakeAuth{password: "right"})
	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)

	assert.False(t, store.ExpireToken("tok-someone-else", "stale"))
	assert.True(t, store.IsAuthenticated())

	assert.True(t, store.ExpireToken("tok-admin@x.com", "expired"))
	assert.False(t, store.IsAuthenticated())
}

func TestInvariantAcrossSequences(t *testing.T) {
	store := NewStore(&fakeAuth{password: "right"})
	ctx := context.Background()
	steps := []func(){
		func() { _, _ = store.Login(ctx, "a@x.com", "right") },
		func() { store.Logout() },
		func() { _, _ = store.Login(ctx, "a@x.com", "wrong") },
		func() { _, _ = store.Login(ctx, "b@x.com", "right") },
		func() { _, _ = store.Login(ctx, "b@x.com", "") },
		func() { store.Expire("test") },
		func() { store.Logout() },
	}
	for _, step := range steps {
		step()
		assertInvariant(t, store)
	}
}

func TestPersisterRoundTrip(t *testing.T) {
	persister := NewMemoryPersister()
	auth := &fakeAuth{password: "right"}

	first := NewStore(auth, WithPersister(persister))
	_, err := first.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)

	second := NewStore(auth, WithPersister(persister))
	var kinds []EventKind
	second.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })

	sess, err := second.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "admin@x.com", sess.User.Email)
	assert.Equal(t, []EventKind{EventRestored}, kinds)

	second.Logout()
	stored, err := persister.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored, "logout must invalidate the durable token")
}

func TestRestoreDiscardsExpiredToken(t *testing.T) {
	now := time.Date(2025, 7, 17, 10, 0, 0, 0, time.UTC)
	persister := NewMemoryPersister()
	require.NoError(t, persister.Save(context.Background(), Session{
		User:  &User{ID: "u-1", Email: "admin@x.com"},
		Token: &oauth2.Token{AccessToken: "old", Expiry: now.Add(-time.Minute)},
	}))

	store := NewStore(&fakeAuth{}, WithPersister(persister), WithClock(func() time.Time { return now }))
	_, err := store.Restore(context.Background())

	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, store.IsAuthenticated())
	stored, _ := persister.Load(context.Background())
	assert.Nil(t, stored)
}

func TestRestoreVerifiesWithBackend(t *testing.T) {
	persister := NewMemoryPersister()
	require.NoError(t, persister.Save(context.Background(), Session{
		User:  &User{ID: "u-1", Email: "admin@x.com"},
		Token: &oauth2.Token{AccessToken: "revoked"},
	}))

	auth := verifyingAuth{&fakeAuth{verify: func(tok *oauth2.Token) (*User, error) {
		return nil, SessionExpired(errors.New("401"))
	}}}
	store := NewStore(auth, WithPersister(persister))

	_, err := store.Restore(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, store.IsAuthenticated())
}

func TestRestoreNeverReplacesSignedInSession(t *testing.T) {
	persister := NewMemoryPersister()
	store := NewStore(&fakeAuth{password: "right"}, WithPersister(persister))
	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)

	require.NoError(t, persister.Save(context.Background(), Session{
		User:  &User{ID: "u-2", Email: "other@x.com"},
		Token: &oauth2.Token{AccessToken: "other"},
	}))

	sess, err := store.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin@x.com", sess.User.Email)
}

type failingPersister struct{ MemoryPersister }

func (f *failingPersister) Save(ctx context.Context, s Session) error {
	return errors.New("redis: connection refused")
}

func TestPersistFailureDoesNotFailLogin(t *testing.T) {
	var ops []string
	store := NewStore(&fakeAuth{password: "right"},
		WithPersister(&failingPersister{}),
		WithErrorHandler(func(op string, err error) { ops = append(ops, op) }),
	)

	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, []string{"save"}, ops)
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewStore(&fakeAuth{password: "right"})
	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)

	snap := store.Snapshot()
	snap.User.Email = "mutated@x.com"
	snap.Token.AccessToken = "mutated"

	user, _ := store.CurrentUser()
	tok, _ := store.Token()
	assert.Equal(t, "admin@x.com", user.Email)
	assert.Equal(t, "tok-admin@x.com", tok)
}

// blockingVerifier parks Verify until release is closed and reports each entry on entered.
func blockingVerifier(result func() (*User, error)) (verifyingAuth, chan struct{}, chan struct{}) {
	entered := make(chan struct{})
	release := make(chan struct{})
	auth := verifyingAuth{&fakeAuth{password: "right", verify: func(tok *oauth2.Token) (*User, error) {
		close(entered)
		<-release
		return result()
	}}}
	return auth, entered, release
}

func seedSession(t *testing.T, p Persister, token string) {
	t.Helper()
	require.NoError(t, p.Save(context.Background(), Session{
		User:  &User{ID: "u-1", Email: "admin@x.com"},
		Token: &oauth2.Token{AccessToken: token},
	}))
}

func TestLogoutDuringRestoreKeepsSessionCleared(t *testing.T) {
	persister := NewMemoryPersister()
	seedSession(t, persister, "durable")
	auth, entered, release := blockingVerifier(func() (*User, error) {
		return &User{ID: "u-1", Email: "admin@x.com"}, nil
	})
	store := NewStore(auth, WithPersister(persister))

	var kinds []EventKind
	store.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })

	done := make(chan error, 1)
	go func() {
		_, err := store.Restore(context.Background())
		done <- err
	}()

	<-entered
	store.Logout()
	close(release)

	assert.ErrorIs(t, <-done, ErrLoginAbandoned)
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, kinds)
	stored, err := persister.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestRejectedRestoreKeepsNewerLogin(t *testing.T) {
	persister := NewMemoryPersister()
	seedSession(t, persister, "revoked")
	auth, entered, release := blockingVerifier(func() (*User, error) {
		return nil, SessionExpired(errors.New("401"))
	})
	store := NewStore(auth, WithPersister(persister))

	done := make(chan error, 1)
	go func() {
		_, err := store.Restore(context.Background())
		done <- err
	}()

	<-entered
	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-done, ErrSessionExpired)
	tok, ok := store.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok-admin@x.com", tok)

	stored, err := persister.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "tok-admin@x.com", stored.Token.AccessToken)
}

func TestSyncDropsSessionClearedElsewhere(t *testing.T) {
	persister := NewMemoryPersister()
	auth := &fakeAuth{password: "right"}
	here := NewStore(auth, WithPersister(persister))
	elsewhere := NewStore(auth, WithPersister(persister))

	_, err := here.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)
	_, err = elsewhere.Restore(context.Background())
	require.NoError(t, err)

	var kinds []EventKind
	here.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })

	elsewhere.Logout()
	sess, err := here.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
	assert.False(t, here.IsAuthenticated())
	assert.Equal(t, []EventKind{EventSynced}, kinds)
	assertInvariant(t, here)

	// nothing left to reconcile
	_, err = here.Sync(context.Background())
	require.NoError(t, err)
	assert.Len(t, kinds, 1)
}

func TestSyncAdoptsSessionStoredElsewhere(t *testing.T) {
	persister := NewMemoryPersister()
	auth := &fakeAuth{password: "right"}
	here := NewStore(auth, WithPersister(persister))
	elsewhere := NewStore(auth, WithPersister(persister))

	_, err := elsewhere.Login(context.Background(), "ops@x.com", "right")
	require.NoError(t, err)

	sess, err := here.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, sess.Authenticated())
	assert.Equal(t, "ops@x.com", sess.User.Email)

	tok, _ := here.Token()
	assert.Equal(t, "tok-ops@x.com", tok)
}

func TestSyncKeepsMatchingSession(t *testing.T) {
	persister := NewMemoryPersister()
	store := NewStore(&fakeAuth{password: "right"}, WithPersister(persister))
	_, err := store.Login(context.Background(), "admin@x.com", "right")
	require.NoError(t, err)

	var kinds []EventKind
	store.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })

	sess, err := store.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
	assert.Empty(t, kinds)
}

func TestSyncWaitsOutPendingLogin(t *testing.T) {
	persister := NewMemoryPersister()
	seedSession(t, persister, "other")
	auth := &fakeAuth{password: "right", gate: make(chan struct{})}
	store := NewStore(auth, WithPersister(persister))

	done := make(chan error, 1)
	go func() {
		_, err := store.Login(context.Background(), "admin@x.com", "right")
		done <- err
	}()
	require.Eventually(t, store.LoginPending, time.Second, 5*time.Millisecond)

	_, err := store.Sync(context.Background())
	require.NoError(t, err)

	assert.False(t, store.IsAuthenticated())

	close(auth.gate)
	require.NoError(t, <-done)
	tok, _ := store.Token()
	assert.Equal(t, "tok-admin@x.com", tok)
}
