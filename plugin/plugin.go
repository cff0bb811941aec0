// Package plugin defines the plugin system for Keeper.
// Plugins are notified of lifecycle events (record saved, record
// deleted, query executed) and can react — logging, metrics, tracing,
// secondary indexing, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import "context"

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Save lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeSave is called before a save pipeline mutates the store.
// The req parameter is *keeper.Request (passed as any to avoid import cycle).
type BeforeSave interface {
	OnBeforeSave(ctx context.Context, req any) error
}

// AfterSave is called after a save pipeline completes.
// The req parameter is *keeper.Request; result is *keeper.Result.
type AfterSave interface {
	OnAfterSave(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Delete lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeDelete is called before a delete pipeline removes records.
type BeforeDelete interface {
	OnBeforeDelete(ctx context.Context, req any) error
}

// AfterDelete is called after a delete pipeline completes.
type AfterDelete interface {
	OnAfterDelete(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Query lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeQuery is called before a read pipeline consults cache or store.
type BeforeQuery interface {
	OnBeforeQuery(ctx context.Context, req any) error
}

// AfterQuery is called after a read pipeline completes.
type AfterQuery interface {
	OnAfterQuery(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
