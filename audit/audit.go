// Package audit defines the transaction audit log Entry entity and the
// fire-and-forget Logger the CRUD pipelines write through.
package audit

import (
	"time"

	"github.com/xraph/keeper/id"
)

// Entry kinds.
const (
	KindCreate = "create"
	KindUpdate = "update"
	KindDelete = "delete"
	KindRead   = "read"
)

// Entry is a single CRUD transaction audit record.
type Entry struct {
	ID         id.AuditLogID  `json:"id" db:"id"`
	Collection string         `json:"collection" db:"collection"`
	Kind       string         `json:"kind" db:"kind"`
	Document   map[string]any `json:"document,omitempty" db:"document"`
	Before     map[string]any `json:"before,omitempty" db:"before"`
	ActorID    string         `json:"actor_id" db:"actor_id"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying audit logs.
type QueryFilter struct {
	Collection string     `json:"collection,omitempty"`
	Kind       string     `json:"kind,omitempty"`
	ActorID    string     `json:"actor_id,omitempty"`
	After      *time.Time `json:"after,omitempty"`
	Before     *time.Time `json:"before,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
