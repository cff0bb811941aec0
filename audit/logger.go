package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/keeper/id"
)

// Logger records audit entries without letting audit failures bleed
// into the transaction they describe. A write error is logged and
// swallowed; the mutation it attends has already committed.
type Logger struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewLogger creates a Logger writing to the given store. A nil store
// yields a Logger that drops every entry.
func NewLogger(store Store, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record persists an audit entry, filling in the id and timestamp.
func (l *Logger) Record(ctx context.Context, e *Entry) {
	if l == nil || l.store == nil || e == nil {
		return
	}
	if e.ID.IsNil() {
		e.ID = id.NewAuditLogID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now()
	}
	if err := l.store.CreateAuditLog(ctx, e); err != nil {
		l.logger.Warn("keeper: audit log write failed",
			"collection", e.Collection,
			"kind", e.Kind,
			"actor_id", e.ActorID,
			"error", err)
	}
}
