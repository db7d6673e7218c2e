// Package session checks credentials against the Login table and keeps the
// signed-in identity of one client.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"athletics-registry/internal/models"
	"athletics-registry/internal/store"
	"athletics-registry/internal/tabular"
)

var (
	ErrInvalidCredentials = &authError{msg: "Invalid username or password", kind: tabular.KindValidation}
	ErrDuplicateUsername  = &authError{msg: "Username already exists", kind: tabular.KindConflict}
)

type authError struct {
	msg  string
	kind tabular.Kind
}

func (e *authError) Error() string { return e.msg }

func (e *authError) Kind() tabular.Kind { return e.kind }

type Authenticator struct {
	st  store.Store
	log *zap.Logger
}

func NewAuthenticator(st store.Store, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{st: st, log: log}
}

// Authenticate scans the whole Login table. The role is taken verbatim from
// the matching row.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (models.Identity, error) {
	username = strings.TrimSpace(username)
	creds, err := a.credentials(ctx)
	if err != nil {
		return models.Identity{}, err
	}
	for _, c := range creds {
		if c.Username != username {
			continue
		}
		if a.passwordMatches(c, password) {
			a.log.Info("signed in", zap.String("username", username), zap.String("role", string(c.Role)))
			return models.Identity{ID: c.ID, Username: c.Username, Role: c.Role}, nil
		}
	}
	a.log.Info("sign in refused", zap.String("username", username))
	return models.Identity{}, ErrInvalidCredentials
}

// Register adds a user-role credential unless the username is taken.
func (a *Authenticator) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return &models.ValidationError{Field: models.ColUsername, Message: "is required"}
	}
	if strings.TrimSpace(password) == "" {
		return &models.ValidationError{Field: models.ColPassword, Message: "is required"}
	}
	creds, err := a.credentials(ctx)
	if err != nil {
		return err
	}
	for _, c := range creds {
		if c.Username == username {
			return ErrDuplicateUsername
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	row := tabular.Fields{
		{Name: models.ColUsername, Value: username},
		{Name: models.ColPassword, Value: string(hash)},
		{Name: models.ColUserType, Value: string(models.RoleUser)},
	}
	if err := models.CheckColumns(models.TableLogin, row); err != nil {
		return err
	}
	res, err := a.st.InsertRecord(ctx, models.TableLogin, row)
	if err != nil {
		return fmt.Errorf("register %s: %w", username, err)
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("register %s: %w", username, err)
	}
	a.log.Info("user registered", zap.String("username", username))
	return nil
}

func (a *Authenticator) credentials(ctx context.Context) ([]models.Credential, error) {
	res, err := a.st.FetchTable(ctx, models.TableLogin)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", models.TableLogin, err)
	}
	if err := res.Err(); err != nil {
		if errors.Is(err, tabular.ErrTableNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch %s: %w", models.TableLogin, err)
	}
	out := make([]models.Credential, 0, len(res.Data))
	for _, rec := range res.Data {
		out = append(out, models.CredentialFromRecord(rec))
	}
	return out, nil
}

func (a *Authenticator) passwordMatches(c models.Credential, password string) bool {
	if isBcrypt(c.Password) {
		return bcrypt.CompareHashAndPassword([]byte(c.Password), []byte(password)) == nil
	}
	if c.Password == "" {
		return false
	}
	a.log.Warn("plaintext credential in Login table", zap.String("username", c.Username))
	return subtle.ConstantTimeCompare([]byte(c.Password), []byte(password)) == 1
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
