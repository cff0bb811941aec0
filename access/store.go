package access

import (
	"context"
	"errors"
)

// Storage errors.
var (
	ErrKeyNotFound   = errors.New("access: key not found")
	ErrUserNotFound  = errors.New("access: user not found")
	ErrGrantNotFound = errors.New("access: grant not found")
)

// Store persists users, access keys, and role grants. Backends live
// under store/; the Resolver only reads through this interface.
type Store interface {
	// GetAccessKeyByToken looks up the access key holding the given
	// bearer token. Returns ErrKeyNotFound when no key matches.
	GetAccessKeyByToken(ctx context.Context, token string) (*AccessKey, error)

	// GetAccessKeyByUser looks up the most recently issued access key
	// for the given user. Returns ErrKeyNotFound when none exists.
	GetAccessKeyByUser(ctx context.Context, userID string) (*AccessKey, error)

	// GetActiveUser loads the user with the given id only when the
	// account is active. Returns ErrUserNotFound for missing or
	// deactivated accounts.
	GetActiveUser(ctx context.Context, userID string) (*User, error)

	// ListRoleGrants returns grants matching the filter.
	ListRoleGrants(ctx context.Context, filter ListFilter) ([]RoleGrant, error)
}
