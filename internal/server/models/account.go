// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"time"
)

// Role is the closed set of account kinds. New roles need a new constant
// and a matching CHECK constraint in the accounts table.
type Role int16

const (
	RoleMonitoredUser    Role = 1
	RoleResponsibleParty Role = 2
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleMonitoredUser || r == RoleResponsibleParty
}

func (r Role) String() string {
	switch r {
	case RoleMonitoredUser:
		return "monitored_user"
	case RoleResponsibleParty:
		return "responsible_party"
	default:
		return fmt.Sprintf("role(%d)", int16(r))
	}
}

// Account is a registered identity. PasswordHash never leaves the server:
// it is excluded from JSON.
type Account struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public returns a copy of a with the credential hash cleared.
func (a Account) Public() Account {
	a.PasswordHash = ""
	return a
}
