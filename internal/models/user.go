package models

import "athletics-registry/internal/tabular"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Credential is one row of the Login table. Password is either a bcrypt hash
// or, for rows written before hashing, the plain value.
type Credential struct {
	ID       int
	Username string
	Password string
	Role     Role
}

func CredentialFromRecord(r tabular.Record) Credential {
	return Credential{
		ID:       r.ID(),
		Username: r.String(ColUsername),
		Password: r.String(ColPassword),
		Role:     Role(r.String(ColUserType)),
	}
}

// Identity is the signed-in user as seen by the rest of the system.
type Identity struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"userType"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
