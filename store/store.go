// Package store defines the aggregate persistence interface. Generic
// documents move through RecordStore; typed entities (users, access
// keys, role grants, audit logs) have their own store interfaces in
// their packages. The composite Store composes them all.
// Backends: Mongo and Memory.
package store

import (
	"context"
	"errors"

	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/audit"
)

// ErrNotFound is returned by FindOne when no document matches.
var ErrNotFound = errors.New("store: record not found")

// Record is a schemaless document. The "id" key holds the document id
// as a string; backends map it onto their native primary key.
type Record = map[string]any

// Filter selects documents. Values are matched by equality except for
// operator maps ($in, $nin, $ne, $exists, $gt, $gte, $lt, $lte), which
// backends interpret the Mongo way.
type Filter = map[string]any

// FindOptions shapes a Find or Stream call.
type FindOptions struct {
	Skip       int64
	Limit      int64
	Projection []string
	Sort       []SortField
}

// SortField orders results by one field.
type SortField struct {
	Field string
	Desc  bool
}

// Cursor iterates a streamed result set. Close must be called when
// iteration ends, on error paths included.
type Cursor interface {
	// Next advances to the next document, reporting whether one exists.
	Next(ctx context.Context) bool

	// Record returns the current document.
	Record() Record

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases the cursor.
	Close(ctx context.Context) error
}

// RecordStore persists schemaless documents, one namespace per
// collection name.
type RecordStore interface {
	// FindOne returns the first document matching the filter.
	// Returns ErrNotFound when nothing matches.
	FindOne(ctx context.Context, coll string, filter Filter) (Record, error)

	// Find returns documents matching the filter, shaped by opts.
	Find(ctx context.Context, coll string, filter Filter, opts FindOptions) ([]Record, error)

	// Count returns the number of documents matching the filter.
	Count(ctx context.Context, coll string, filter Filter) (int64, error)

	// InsertMany persists new documents and returns the inserted count.
	InsertMany(ctx context.Context, coll string, docs []Record) (int64, error)

	// UpdateOne overwrites the fields of the document with the given id.
	// Returns ErrNotFound when the id matches nothing.
	UpdateOne(ctx context.Context, coll string, docID string, fields Record) error

	// UpdateMany applies the fields to every document matching the
	// filter and returns the matched count.
	UpdateMany(ctx context.Context, coll string, filter Filter, fields Record) (int64, error)

	// DeleteByIDs removes the documents with the given ids and returns
	// the deleted count.
	DeleteByIDs(ctx context.Context, coll string, docIDs []string) (int64, error)

	// DeleteMany removes every document matching the filter and returns
	// the deleted count. An empty filter clears the collection.
	DeleteMany(ctx context.Context, coll string, filter Filter) (int64, error)

	// Stream returns a cursor over documents matching the filter.
	Stream(ctx context.Context, coll string, filter Filter, opts FindOptions) (Cursor, error)
}

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// (mongo, memory) implements all of them.
type Store interface {
	RecordStore
	access.Store
	audit.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
