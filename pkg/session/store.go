// Package session holds the console's authentication state: who is signed in and with
// which token. A Store is the single writer of that state; everything else reads
// snapshots or subscribes to change events.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const persistTimeout = 5 * time.Second

var errMalformedGrant = errors.New("authentication endpoint returned no user or no token")

// Authenticator calls the backend authentication endpoint.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Grant, error)
}

// Verifier is optionally implemented by an Authenticator to re-check a restored token.
// It must return an error matching ErrSessionExpired when the backend rejects the token.
type Verifier interface {
	Verify(ctx context.Context, token *oauth2.Token) (*User, error)
}

// Persister keeps a session across process restarts. Load returns (nil, nil) when
// nothing is stored; Clear must succeed when nothing is stored.
type Persister interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

type Option func(*Store)

func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithErrorHandler receives persistence failures, which never fail a store operation.
func WithErrorHandler(fn func(op string, err error)) Option {
	return func(s *Store) { s.onError = fn }
}

type listenerEntry struct {
	id int
	fn Listener
}

type Store struct {
	auth      Authenticator
	persister Persister
	now       func() time.Time
	onError   func(op string, err error)

	// writeMu serialises every mutation together with its persistence and
	// notification, so listeners observe changes in the order they happened.
	writeMu sync.Mutex

	mu         sync.RWMutex
	state      Session
	pending    bool
	generation uint64
	listeners  []listenerEntry
	nextID     int
}

func NewStore(auth Authenticator, opts ...Option) *Store {
	s := &Store{
		auth:    auth,
		now:     time.Now,
		onError: func(string, error) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates against the backend and, on success, replaces the session.
//
// Login is not reentrant: while a call is pending every other call fails at once with
// ErrLoginInProgress and the pending call stays authoritative. If ctx is cancelled, or
// the session is cleared while the call is pending, the answer is discarded and
// ErrLoginAbandoned is returned. Failures never touch the stored state.
func (s *Store) Login(ctx context.Context, identifier, secret string) (Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		return Session{}, ErrMissingCredentials
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return Session{}, ErrLoginInProgress
	}
	s.pending = true
	gen := s.generation
	s.mu.Unlock()

	grant, err := s.auth.Authenticate(ctx, Credentials{Identifier: identifier, Secret: secret})

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.pending = false
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.mu.Unlock()
		return Session{}, NewAuthError(KindLoginAbandoned, "", ctxErr)
	}
	if gen != s.generation {
		s.mu.Unlock()
		return Session{}, NewAuthError(KindLoginAbandoned, "", errors.New("session changed while login was pending"))
	}
	if err != nil {
		s.mu.Unlock()
		return Session{}, classify(err)
	}
	if grant == nil || grant.Token == nil || grant.Token.AccessToken == "" || (grant.User.ID == "" && grant.User.Email == "") {
		s.mu.Unlock()
		return Session{}, NetworkFailure(errMalformedGrant)
	}

	user := grant.User
	token := *grant.Token
	s.state = Session{User: &user, Token: &token}
	s.generation++
	snap := s.state.clone()
	s.mu.Unlock()

	s.save(ctx, snap)
	s.notify(Event{Kind: EventLogin, Session: snap, OccurredAt: s.now()})
	return snap, nil
}

// Logout clears the session. Calling it while signed out has no observable effect.
func (s *Store) Logout() {
	s.clear(EventLogout, "", "")
}

// Expire clears the session as an expiry and reports whether anything was cleared.
func (s *Store) Expire(reason string) bool {
	return s.clear(EventExpired, reason, "")
}

// ExpireToken expires the session only while accessToken is still the current token,
// so a late 401 for an old token cannot sign out a newer session. An empty
// accessToken behaves like Expire.
func (s *Store) ExpireToken(accessToken, reason string) bool {
	return s.clear(EventExpired, reason, accessToken)
}

// ReportAuthFailure is how screens hand their API errors to the store. Only errors
// matching ErrSessionExpired clear the session.
func (s *Store) ReportAuthFailure(err error) bool {
	if err == nil || !errors.Is(err, ErrSessionExpired) {
		return false
	}
	return s.Expire(Message(err))
}

func (s *Store) clear(kind EventKind, reason, onlyToken string) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if onlyToken != "" && s.state.AccessToken() != onlyToken {
		s.mu.Unlock()
		return false
	}
	wasAuthenticated := s.state.Authenticated()
	s.state = Session{}
	// Bumping the generation also abandons a pending login.
	s.generation++
	s.mu.Unlock()

	// A durable token may exist even if it was never restored into memory.
	s.erase()
	if !wasAuthenticated {
		return false
	}
	s.notify(Event{Kind: kind, Reason: reason, OccurredAt: s.now()})
	return true
}

// Restore loads a persisted session. An expired token is discarded and reported as
// ErrSessionExpired. When the authenticator is also a Verifier the token is checked
// with the backend; a network failure there keeps the stored session. A session that
// is already signed in is never replaced.
//
// Any mutation that lands while Restore is loading or verifying wins: the restored
// session is dropped with ErrLoginAbandoned and a rejected token is only erased if
// nothing was stored since.
func (s *Store) Restore(ctx context.Context) (Session, error) {
	if s.persister == nil {
		return s.Snapshot(), nil
	}
	s.mu.RLock()
	gen := s.generation
	s.mu.RUnlock()

	stored, err := s.persister.Load(ctx)
	if err != nil {
		return s.Snapshot(), NetworkFailure(err)
	}
	if stored == nil || !stored.Authenticated() {
		return s.Snapshot(), nil
	}
	if Expired(stored.Token, s.now()) {
		s.eraseUnchanged(gen)
		return s.Snapshot(), ErrSessionExpired
	}

	if v, ok := s.auth.(Verifier); ok {
		user, verr := v.Verify(ctx, stored.Token)
		switch {
		case errors.Is(verr, ErrSessionExpired):
			s.eraseUnchanged(gen)
			return s.Snapshot(), verr
		case verr == nil && user != nil:
			stored.User = user
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.state.Authenticated() {
		snap := s.state.clone()
		s.mu.Unlock()
		return snap, nil
	}
	if gen != s.generation {
		snap := s.state.clone()
		s.mu.Unlock()
		return snap, NewAuthError(KindLoginAbandoned, "", errors.New("session changed while restore was pending"))
	}
	s.state = stored.clone()
	s.generation++
	snap := s.state.clone()
	s.mu.Unlock()

	s.notify(Event{Kind: EventRestored, Session: snap, OccurredAt: s.now()})
	return snap, nil
}

// Sync reconciles memory with a persister shared by other processes. A session that
// is gone from the persister, or expired there, is dropped; a different stored session
// replaces the one in memory. Listeners receive EventSynced since the process that made
// the change already announced it. Sync does nothing while a login is pending.
func (s *Store) Sync(ctx context.Context) (Session, error) {
	if s.persister == nil {
		return s.Snapshot(), nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	current := s.state.AccessToken()
	pending := s.pending
	s.mu.RUnlock()
	if pending {
		return s.Snapshot(), nil
	}

	pctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	stored, err := s.persister.Load(pctx)
	if err != nil {
		return s.Snapshot(), NetworkFailure(err)
	}
	if stored != nil && (!stored.Authenticated() || Expired(stored.Token, s.now())) {
		stored = nil
	}
	if stored == nil && current == "" {
		return s.Snapshot(), nil
	}
	if stored != nil && stored.Token.AccessToken == current {
		return s.Snapshot(), nil
	}

	s.mu.Lock()
	if s.pending {
		snap := s.state.clone()
		s.mu.Unlock()
		return snap, nil
	}
	if stored == nil {
		s.state = Session{}
	} else {
		s.state = stored.clone()
	}
	s.generation++
	snap := s.state.clone()
	s.mu.Unlock()

	s.notify(Event{Kind: EventSynced, Session: snap, OccurredAt: s.now()})
	return snap, nil
}

func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// CurrentUser is the synchronous read used by the guard and by screens.
func (s *Store) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state.Authenticated() {
		return User{}, false
	}
	return *s.state.User, true
}

func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state.Authenticated() {
		return "", false
	}
	return s.state.Token.AccessToken, true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated()
}

// LoginPending reports whether a login call is waiting for the backend.
func (s *Store) LoginPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// Subscribe registers fn for every future change and returns its cancel function.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) notify(evt Event) {
	s.mu.RLock()
	listeners := make([]listenerEntry, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l.fn(evt)
	}
}

func (s *Store) save(ctx context.Context, snap Session) {
	if s.persister == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.persister.Save(pctx, snap); err != nil {
		s.onError("save", err)
	}
}

// eraseUnchanged clears the persister unless the session changed after gen was read.
func (s *Store) eraseUnchanged(gen uint64) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	changed := gen != s.generation
	s.mu.RUnlock()
	if changed {
		return
	}
	s.erase()
}

func (s *Store) erase() {
	if s.persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.persister.Clear(ctx); err != nil {
		s.onError("clear", err)
	}
}
