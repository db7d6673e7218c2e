package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"athletics-registry/internal/localstore"
	"athletics-registry/internal/models"
	"athletics-registry/internal/policy"
)

// UserSlot is the local slot holding the signed session token.
const UserSlot = "athleticsUser"

type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

var ErrLoginInProgress = errors.New("sign in already in progress")

// Store is the session of one client.
type Store struct {
	auth  *Authenticator
	slots localstore.Slots
	key   []byte
	ttl   time.Duration
	log   *zap.Logger

	mu        sync.Mutex
	state     State
	identity  models.Identity
	token     string
	expiresAt time.Time
}

// New resolves the starting state from the user slot before returning. A
// token that fails verification is removed.
func New(auth *Authenticator, slots localstore.Slots, key []byte, ttl time.Duration, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if slots == nil {
		slots = localstore.NewMemory()
	}
	s := &Store{auth: auth, slots: slots, key: key, ttl: ttl, log: log}
	raw, ok := slots.Get(UserSlot)
	if !ok || raw == "" {
		return s
	}
	id, exp, err := ParseToken(key, raw)
	if err != nil {
		log.Warn("discarding stored session", zap.Error(err))
		_ = slots.Remove(UserSlot)
		return s
	}
	s.state, s.identity, s.token, s.expiresAt = Authenticated, id, raw, exp
	return s
}

// Login checks the credentials and persists the identity on success. A
// signed-in session is dropped first.
func (s *Store) Login(ctx context.Context, username, password string) (models.Identity, error) {
	s.mu.Lock()
	if s.state == Authenticating {
		s.mu.Unlock()
		return models.Identity{}, ErrLoginInProgress
	}
	if s.state == Authenticated {
		s.clearLocked()
	}
	s.state = Authenticating
	s.mu.Unlock()

	id, err := s.auth.Authenticate(ctx, username, password)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Unauthenticated
		return models.Identity{}, err
	}
	token, exp, err := IssueToken(s.key, id, s.ttl)
	if err != nil {
		s.state = Unauthenticated
		return models.Identity{}, err
	}
	if err := s.slots.Set(UserSlot, token); err != nil {
		s.log.Warn("persist session", zap.Error(err))
	}
	s.state, s.identity, s.token, s.expiresAt = Authenticated, id, token, exp
	return id, nil
}

func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	s.state = Unauthenticated
	s.identity = models.Identity{}
	s.token = ""
	s.expiresAt = time.Time{}
	if err := s.slots.Remove(UserSlot); err != nil {
		s.log.Warn("clear session", zap.Error(err))
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.state
}

// Identity is the signed-in user, if any.
func (s *Store) Identity() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	if s.state != Authenticated {
		return models.Identity{}, false
	}
	return s.identity, true
}

// Token is the signed session token, empty when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.token
}

func (s *Store) IsAdmin() bool {
	id, ok := s.Identity()
	return ok && id.IsAdmin()
}

// Context attaches the signed-in identity for policy checks.
func (s *Store) Context(ctx context.Context) context.Context {
	if id, ok := s.Identity(); ok {
		return policy.WithIdentity(ctx, id)
	}
	return ctx
}

func (s *Store) expireLocked() {
	if s.state == Authenticated && !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) {
		s.log.Info("session expired", zap.String("username", s.identity.Username))
		s.clearLocked()
	}
}
