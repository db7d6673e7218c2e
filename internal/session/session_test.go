package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"athletics-registry/internal/localstore"
	"athletics-registry/internal/memstore"
	"athletics-registry/internal/models"
	"athletics-registry/internal/policy"
	"athletics-registry/internal/store"
	"athletics-registry/internal/tabular"
)

var testKey = []byte("test-secret")

func seeded(t *testing.T) (*memstore.Store, *Authenticator) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	mem := memstore.New()
	mem.Seed(models.TableLogin, &tabular.Sheet{
		Headers: models.LoginColumns,
		Rows: [][]any{
			{"alice", "pw1", "admin"},
			{"bob", string(hash), "user"},
		},
	})
	return mem, NewAuthenticator(store.NewLocal(mem, nil), nil)
}

func TestAuthenticate(t *testing.T) {
	_, auth := seeded(t)
	ctx := context.Background()

	id, err := auth.Authenticate(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("alice: %v", err)
	}
	if id.ID != 1 || id.Role != models.RoleAdmin || !id.IsAdmin() {
		t.Fatalf("alice = %+v", id)
	}

	if _, err := auth.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if err := ErrInvalidCredentials; err.Error() != "Invalid username or password" {
		t.Fatalf("message = %q", err.Error())
	}

	id, err = auth.Authenticate(ctx, "bob", "pw2")
	if err != nil || id.Role != models.RoleUser || id.ID != 2 {
		t.Fatalf("bob: %+v %v", id, err)
	}
	if _, err := auth.Authenticate(ctx, "carol", "pw1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestRegister(t *testing.T) {
	mem, auth := seeded(t)
	ctx := context.Background()

	err := auth.Register(ctx, "alice", "other")
	if !errors.Is(err, ErrDuplicateUsername) || tabular.KindOf(err) != tabular.KindConflict {
		t.Fatalf("duplicate: %v", err)
	}
	sh, _ := mem.Read(ctx, models.TableLogin)
	if sh.Len() != 2 {
		t.Fatalf("duplicate registration inserted a row")
	}

	if err := auth.Register(ctx, "carol", "pw3"); err != nil {
		t.Fatalf("register: %v", err)
	}
	sh, _ = mem.Read(ctx, models.TableLogin)
	row := sh.Records()[2]
	if row.String(models.ColUserType) != "user" || row.String(models.ColPassword) == "pw3" {
		t.Fatalf("stored row = %v", row)
	}
	if id, err := auth.Authenticate(ctx, "carol", "pw3"); err != nil || id.ID != 3 {
		t.Fatalf("carol: %+v %v", id, err)
	}
}

func TestRegisterFirstUserCreatesTable(t *testing.T) {
	mem := memstore.New()
	auth := NewAuthenticator(store.NewLocal(mem, nil), nil)
	if err := auth.Register(context.Background(), "dina", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	sh, err := mem.Read(context.Background(), models.TableLogin)
	if err != nil {
		t.Fatal(err)
	}
	if len(sh.Headers) != 3 || sh.Headers[0] != models.ColUsername || sh.Headers[2] != models.ColUserType {
		t.Fatalf("headers = %v", sh.Headers)
	}
}

func TestStoreLifecycle(t *testing.T) {
	_, auth := seeded(t)
	slots := localstore.NewMemory()
	s := New(auth, slots, testKey, time.Hour, nil)
	ctx := context.Background()

	if s.State() != Unauthenticated {
		t.Fatalf("initial state = %v", s.State())
	}
	if _, err := s.Login(ctx, "alice", "nope"); err == nil || s.State() != Unauthenticated {
		t.Fatalf("failed login: %v %v", err, s.State())
	}
	if _, err := s.Login(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.State() != Authenticated || !s.IsAdmin() {
		t.Fatalf("after login: %v", s.State())
	}
	if id, ok := policy.IdentityFrom(s.Context(ctx)); !ok || id.Username != "alice" {
		t.Fatalf("context identity = %+v", id)
	}

	restored := New(auth, slots, testKey, time.Hour, nil)
	if id, ok := restored.Identity(); !ok || id.Username != "alice" || restored.State() != Authenticated {
		t.Fatalf("restored = %+v %v", id, ok)
	}

	s.Logout()
	if _, ok := slots.Get(UserSlot); ok || s.State() != Unauthenticated {
		t.Fatalf("logout left state behind")
	}
}

func TestStoreRejectsTamperedSlot(t *testing.T) {
	_, auth := seeded(t)
	slots := localstore.NewMemory()

	forged, _, err := IssueToken([]byte("other-key"), models.Identity{ID: 9, Username: "mallory", Role: models.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	_ = slots.Set(UserSlot, forged)
	s := New(auth, slots, testKey, time.Hour, nil)
	if s.State() != Unauthenticated {
		t.Fatalf("forged token accepted")
	}
	if _, ok := slots.Get(UserSlot); ok {
		t.Fatalf("forged token kept")
	}

	_ = slots.Set(UserSlot, `{"id":"1","username":"alice","userType":"admin"}`)
	if New(auth, slots, testKey, time.Hour, nil).IsAdmin() {
		t.Fatalf("raw JSON slot trusted")
	}
}

func TestExpiredToken(t *testing.T) {
	tok, _, err := IssueToken(testKey, models.Identity{Username: "alice", Role: models.RoleAdmin}, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := ParseToken(testKey, tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: %v", err)
	}
}
