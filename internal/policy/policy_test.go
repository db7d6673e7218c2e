package policy

import (
	"context"
	"errors"
	"testing"

	"athletics-registry/internal/models"
)

func TestAuthorize(t *testing.T) {
	admin := WithIdentity(context.Background(), models.Identity{Username: "alice", Role: models.RoleAdmin})
	user := WithIdentity(context.Background(), models.Identity{Username: "bob", Role: models.RoleUser})

	if err := Authorize(context.Background(), CreateParticipant); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous: %v", err)
	}
	if err := Authorize(user, CreateParticipant); err != nil {
		t.Fatalf("user may register participants: %v", err)
	}
	for _, a := range []Action{CreateEvent, UpdateEvent, UpdateParticipant, DeleteParticipant, ExportParticipants, GenerateHeats} {
		if err := Authorize(user, a); !errors.Is(err, ErrForbidden) {
			t.Fatalf("user %s: %v", a, err)
		}
		if err := Authorize(admin, a); err != nil {
			t.Fatalf("admin %s: %v", a, err)
		}
	}
}

func TestRoleIsExact(t *testing.T) {
	if Allowed(models.Identity{Username: "x", Role: "Admin"}, CreateEvent) {
		t.Fatalf("role comparison must be exact")
	}
}
