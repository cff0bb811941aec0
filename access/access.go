// Package access defines identity resolution for Keeper: access keys
// (bearer tokens), users, role grants, and the Resolver that turns a
// credential into a resolved Identity consumed by the CRUD pipelines.
package access

import (
	"time"

	"github.com/xraph/keeper/id"
)

// User is an account record in the user store.
type User struct {
	ID           id.UserID      `json:"id" db:"id"`
	Username     string         `json:"username" db:"username"`
	Email        string         `json:"email,omitempty" db:"email"`
	IsActive     bool           `json:"is_active" db:"is_active"`
	IsAdmin      bool           `json:"is_admin" db:"is_admin"`
	DefaultGroup string         `json:"default_group,omitempty" db:"default_group"`
	Groups       []string       `json:"groups,omitempty" db:"groups"`
	Profile      map[string]any `json:"profile,omitempty" db:"profile"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// AccessKey is an issued login/API grant tied to a user, with an expiry.
// Token issuance happens upstream; Keeper only validates and consumes keys.
type AccessKey struct {
	ID        id.AccessKeyID `json:"id" db:"id"`
	UserID    id.UserID      `json:"user_id" db:"user_id"`
	Token     string         `json:"token" db:"token"`
	ExpiresAt time.Time      `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// Expired reports whether the key's expiry has passed at the given time.
func (k *AccessKey) Expired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}

// RoleGrant binds a user group to a service reference (a collection name,
// a service-registry entry id, or a specific record id) with CRUD
// capability bits. Permission for a request is the OR across all grants
// that match the target.
type RoleGrant struct {
	ID         id.RoleGrantID `json:"id" db:"id"`
	Group      string         `json:"group" db:"group"`
	ServiceRef string         `json:"service_ref" db:"service_ref"`
	Category   string         `json:"category,omitempty" db:"category"`
	CanRead    bool           `json:"can_read" db:"can_read"`
	CanCreate  bool           `json:"can_create" db:"can_create"`
	CanUpdate  bool           `json:"can_update" db:"can_update"`
	CanDelete  bool           `json:"can_delete" db:"can_delete"`
	IsActive   bool           `json:"is_active" db:"is_active"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// Allows reports whether this grant permits the named capability.
func (g RoleGrant) Allows(capability Capability) bool {
	switch capability {
	case CapRead:
		return g.CanRead
	case CapCreate:
		return g.CanCreate
	case CapUpdate:
		return g.CanUpdate
	case CapDelete:
		return g.CanDelete
	default:
		return false
	}
}

// Capability is a single CRUD permission bit on a role grant.
type Capability string

// Capability constants.
const (
	CapRead   Capability = "read"
	CapCreate Capability = "create"
	CapUpdate Capability = "update"
	CapDelete Capability = "delete"
)

// Credential identifies the caller of a pipeline invocation: either a
// bearer token or a pre-authenticated user descriptor from a server-side
// session. Exactly one of the two forms should be populated.
type Credential struct {
	// Token is a bearer token issued against the access-key store.
	Token string `json:"token,omitempty"`

	// UserID identifies an already-authenticated user (server-side login).
	UserID string `json:"user_id,omitempty"`

	// LoggedIn marks the user descriptor as carrying a live session.
	LoggedIn bool `json:"logged_in,omitempty"`
}

// IsZero reports whether no credential was supplied.
func (c Credential) IsZero() bool {
	return c.Token == "" && c.UserID == ""
}

// Identity is the resolved trust context for one pipeline invocation.
// An Identity is either active and identified, or the request that
// carried its credential is rejected outright.
type Identity struct {
	Active  bool        `json:"active"`
	UserID  id.UserID   `json:"user_id"`
	IsAdmin bool        `json:"is_admin"`
	Group   string      `json:"group,omitempty"`
	Groups  []string    `json:"groups,omitempty"`
	Grants  []RoleGrant `json:"grants,omitempty"`
}

// GrantRefs returns the service references of all grants carrying the
// named capability.
func (i *Identity) GrantRefs(capability Capability) []string {
	refs := make([]string, 0, len(i.Grants))
	for _, g := range i.Grants {
		if g.Allows(capability) {
			refs = append(refs, g.ServiceRef)
		}
	}
	return refs
}

// ListFilter contains filters for listing role grants.
type ListFilter struct {
	Group      string `json:"group,omitempty"`
	ServiceRef string `json:"service_ref,omitempty"`
	IsActive   *bool  `json:"is_active,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}
