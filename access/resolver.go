package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Resolution errors. Callers map these onto their own response taxonomy.
var (
	ErrUnauthorized = errors.New("access: unauthorized")
	ErrTokenExpired = errors.New("access: token expired")
)

// Resolver turns a request credential into a resolved Identity. It is
// safe for concurrent use; each call performs at most three store reads
// (key, user, grants).
type Resolver struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger used for degraded-path warnings.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates the credential and loads the caller's identity.
//
// A bearer token resolves through its access key: the key must exist
// and be unexpired, and the user behind it must be active. A user
// descriptor must carry a live session and is re-checked against the
// key store so a revoked or expired session cannot keep acting.
//
// A missing grant store entry is not fatal: the identity resolves with
// empty grants and only ownership or admin status can authorize it.
func (r *Resolver) Resolve(ctx context.Context, cred Credential) (*Identity, error) {
	if cred.IsZero() {
		return nil, ErrUnauthorized
	}

	var key *AccessKey
	var err error
	switch {
	case cred.Token != "":
		key, err = r.store.GetAccessKeyByToken(ctx, cred.Token)
	case cred.LoggedIn:
		key, err = r.store.GetAccessKeyByUser(ctx, cred.UserID)
	default:
		// A user descriptor without a live session carries no proof.
		return nil, ErrUnauthorized
	}
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("access: resolve key: %w", err)
	}
	if key.Expired(r.now()) {
		return nil, ErrTokenExpired
	}

	user, err := r.store.GetActiveUser(ctx, key.UserID.String())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("access: resolve user: %w", err)
	}

	identity := &Identity{
		Active:  true,
		UserID:  user.ID,
		IsAdmin: user.IsAdmin,
		Group:   user.DefaultGroup,
		Groups:  user.Groups,
	}

	if user.DefaultGroup != "" {
		active := true
		grants, err := r.store.ListRoleGrants(ctx, ListFilter{
			Group:    user.DefaultGroup,
			IsActive: &active,
		})
		if err != nil {
			// Degrade to ownership/admin-only rather than failing the
			// whole request on a grant-store read error.
			r.logger.Warn("keeper: role grant lookup failed, resolving without grants",
				"user_id", user.ID.String(),
				"group", user.DefaultGroup,
				"error", err)
		} else {
			identity.Grants = grants
		}
	}

	return identity, nil
}
