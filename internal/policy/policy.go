// Package policy decides which signed-in roles may perform which writes.
package policy

import (
	"context"
	"errors"
	"fmt"

	"athletics-registry/internal/models"
)

type Action string

const (
	CreateEvent        Action = "event.create"
	UpdateEvent        Action = "event.update"
	ListParticipants   Action = "participant.list"
	CreateParticipant  Action = "participant.create"
	UpdateParticipant  Action = "participant.update"
	DeleteParticipant  Action = "participant.delete"
	ExportParticipants Action = "participant.export"
	GenerateHeats      Action = "heats.generate"
)

var (
	ErrUnauthenticated = errors.New("not signed in")
	ErrForbidden       = errors.New("not allowed")
)

// Denied wraps ErrUnauthenticated or ErrForbidden with the refused action.
type Denied struct {
	Action Action
	Err    error
}

func (d *Denied) Error() string { return fmt.Sprintf("%s: %v", d.Action, d.Err) }

func (d *Denied) Unwrap() error { return d.Err }

var adminOnly = map[Action]bool{
	CreateEvent:        true,
	UpdateEvent:        true,
	UpdateParticipant:  true,
	DeleteParticipant:  true,
	ExportParticipants: true,
	GenerateHeats:      true,
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(models.Identity)
	return id, ok
}

// Authorize checks the identity carried by ctx against action.
func Authorize(ctx context.Context, action Action) error {
	id, ok := IdentityFrom(ctx)
	if !ok || id.Username == "" {
		return &Denied{Action: action, Err: ErrUnauthenticated}
	}
	if adminOnly[action] && !id.IsAdmin() {
		return &Denied{Action: action, Err: ErrForbidden}
	}
	return nil
}

// Allowed is Authorize for display decisions.
func Allowed(id models.Identity, action Action) bool {
	return Authorize(WithIdentity(context.Background(), id), action) == nil
}
