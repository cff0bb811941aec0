package plugin

import (
	"context"
	"log/slog"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeSaveEntry struct {
	name string
	hook BeforeSave
}
type afterSaveEntry struct {
	name string
	hook AfterSave
}
type beforeDeleteEntry struct {
	name string
	hook BeforeDelete
}
type afterDeleteEntry struct {
	name string
	hook AfterDelete
}
type beforeQueryEntry struct {
	name string
	hook BeforeQuery
}
type afterQueryEntry struct {
	name string
	hook AfterQuery
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeSave   []beforeSaveEntry
	afterSave    []afterSaveEntry
	beforeDelete []beforeDeleteEntry
	afterDelete  []afterDeleteEntry
	beforeQuery  []beforeQueryEntry
	afterQuery   []afterQueryEntry
	shutdown     []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeSave); ok {
		r.beforeSave = append(r.beforeSave, beforeSaveEntry{name, h})
	}
	if h, ok := p.(AfterSave); ok {
		r.afterSave = append(r.afterSave, afterSaveEntry{name, h})
	}
	if h, ok := p.(BeforeDelete); ok {
		r.beforeDelete = append(r.beforeDelete, beforeDeleteEntry{name, h})
	}
	if h, ok := p.(AfterDelete); ok {
		r.afterDelete = append(r.afterDelete, afterDeleteEntry{name, h})
	}
	if h, ok := p.(BeforeQuery); ok {
		r.beforeQuery = append(r.beforeQuery, beforeQueryEntry{name, h})
	}
	if h, ok := p.(AfterQuery); ok {
		r.afterQuery = append(r.afterQuery, afterQueryEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// EmitBeforeSave notifies all plugins that implement BeforeSave.
func (r *Registry) EmitBeforeSave(ctx context.Context, req any) {
	for _, e := range r.beforeSave {
		if err := e.hook.OnBeforeSave(ctx, req); err != nil {
			r.logHookError("OnBeforeSave", e.name, err)
		}
	}
}

// EmitAfterSave notifies all plugins that implement AfterSave.
func (r *Registry) EmitAfterSave(ctx context.Context, req, result any) {
	for _, e := range r.afterSave {
		if err := e.hook.OnAfterSave(ctx, req, result); err != nil {
			r.logHookError("OnAfterSave", e.name, err)
		}
	}
}

// EmitBeforeDelete notifies all plugins that implement BeforeDelete.
func (r *Registry) EmitBeforeDelete(ctx context.Context, req any) {
	for _, e := range r.beforeDelete {
		if err := e.hook.OnBeforeDelete(ctx, req); err != nil {
			r.logHookError("OnBeforeDelete", e.name, err)
		}
	}
}

// EmitAfterDelete notifies all plugins that implement AfterDelete.
func (r *Registry) EmitAfterDelete(ctx context.Context, req, result any) {
	for _, e := range r.afterDelete {
		if err := e.hook.OnAfterDelete(ctx, req, result); err != nil {
			r.logHookError("OnAfterDelete", e.name, err)
		}
	}
}

// EmitBeforeQuery notifies all plugins that implement BeforeQuery.
func (r *Registry) EmitBeforeQuery(ctx context.Context, req any) {
	for _, e := range r.beforeQuery {
		if err := e.hook.OnBeforeQuery(ctx, req); err != nil {
			r.logHookError("OnBeforeQuery", e.name, err)
		}
	}
}

// EmitAfterQuery notifies all plugins that implement AfterQuery.
func (r *Registry) EmitAfterQuery(ctx context.Context, req, result any) {
	for _, e := range r.afterQuery {
		if err := e.hook.OnAfterQuery(ctx, req, result); err != nil {
			r.logHookError("OnAfterQuery", e.name, err)
		}
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
