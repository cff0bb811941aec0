package keeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/audit"
	"github.com/xraph/keeper/plugin"
	"github.com/xraph/keeper/store"
)

// Engine is the central access layer. It coordinates identity
// resolution, permission checks, integrity gates, the store, the query
// cache, the audit log, and extension hooks.
type Engine struct {
	store    store.Store
	resolver *access.Resolver
	cache    Cache
	auditLog *audit.Logger
	plugins  *plugin.Registry
	logger   *slog.Logger
	config   Config
	now      func() time.Time
}

// NewEngine creates a new Keeper engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("keeper: store is required")
	}
	if e.resolver == nil {
		e.resolver = access.NewResolver(e.store, access.WithLogger(e.logger))
	}
	if e.auditLog == nil {
		e.auditLog = audit.NewLogger(e.store, e.logger)
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown, notifying plugins.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// resolve turns the request credential into an identity, mapping
// resolution failures onto result statuses.
func (e *Engine) resolve(ctx context.Context, cred access.Credential) (*access.Identity, *Result) {
	identity, err := e.resolver.Resolve(ctx, cred)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrTokenExpired):
			return nil, e.failMsg(StatusUnauthorized, "access token has expired", err)
		case errors.Is(err, access.ErrUnauthorized):
			return nil, e.fail(StatusUnauthorized, err)
		default:
			return nil, e.fail(StatusReadError, err)
		}
	}
	return identity, nil
}

// invalidate drops cached result sets for a collection after a mutation.
func (e *Engine) invalidate(ctx context.Context, coll string) {
	if e.cache != nil {
		e.cache.Invalidate(ctx, coll)
	}
}

// record writes one audit entry through the fire-and-forget logger.
func (e *Engine) record(ctx context.Context, coll, kind, actor string, doc, before Record) {
	e.auditLog.Record(ctx, &audit.Entry{
		Collection: coll,
		Kind:       kind,
		Document:   doc,
		Before:     before,
		ActorID:    actor,
	})
}
