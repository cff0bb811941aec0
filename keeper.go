// Package keeper provides an authorization-gated CRUD access layer over
// schemaless document collections.
//
// Every mutation runs through a fixed gate sequence: the caller's
// credential must resolve to an active identity, the identity must hold
// permission for the target records, new documents must not collide
// with uniqueness probes, and deletions must not orphan dependent
// records. The first failing gate stops the pipeline; callers always
// receive a structured Result rather than a bare error.
//
//	eng, err := keeper.NewEngine(
//	    keeper.WithStore(memStore),
//	)
//	res := eng.Save(ctx, &keeper.Request{
//	    Collection:   "articles",
//	    Credential:   access.Credential{Token: token},
//	    Records:      []keeper.Record{{"title": "hello"}},
//	    ExistFilters: []keeper.Filter{{"title": "hello"}},
//	})
package keeper

import (
	"github.com/xraph/keeper/id"
	"github.com/xraph/keeper/store"
)

// Record is a schemaless document. The "id" key carries the document id.
type Record = store.Record

// Filter selects documents, in the store's filter syntax.
type Filter = store.Filter

// SortField orders read results by one field.
type SortField = store.SortField

// ID is the primary identifier type for all Keeper entities.
type ID = id.ID

// Status classifies the outcome of a pipeline invocation.
type Status string

const (
	// StatusSuccess means the operation completed.
	StatusSuccess Status = "success"

	// StatusValidationError means the request was malformed.
	StatusValidationError Status = "validationError"

	// StatusUnauthorized means the credential was missing, invalid,
	// expired, or lacked permission for the target records.
	StatusUnauthorized Status = "unauthorized"

	// StatusRecordExists means a uniqueness probe matched an existing
	// document.
	StatusRecordExists Status = "recordExists"

	// StatusNotFound means the target records do not exist. For reads
	// this is a terminal outcome, not an error.
	StatusNotFound Status = "notFound"

	// StatusSubItems means dependent child records block a deletion.
	StatusSubItems Status = "subItems"

	// StatusReadError means the underlying store failed during a read.
	StatusReadError Status = "readError"

	// StatusWriteError means the underlying store failed during a write.
	StatusWriteError Status = "writeError"
)

// Result is the outcome of a pipeline invocation. Every pipeline
// returns one; callers branch on Status rather than on error values.
type Result struct {
	Status   Status   `json:"status"`
	Message  string   `json:"message"`
	Records  []Record `json:"records,omitempty"`
	DocCount int      `json:"doc_count"`

	// Cause carries the underlying error for failed outcomes, for
	// errors.Is inspection. It is nil on success.
	Cause error `json:"-"`
}

// OK reports whether the operation completed.
func (r *Result) OK() bool { return r.Status == StatusSuccess }

// Err returns the underlying error for failed outcomes, or nil.
func (r *Result) Err() error {
	if r.Status == StatusSuccess {
		return nil
	}
	return r.Cause
}

// System field names stamped onto documents by the save pipelines.
const (
	fieldID        = "id"
	fieldCreatedBy = "createdBy"
	fieldCreatedAt = "createdAt"
	fieldUpdatedBy = "updatedBy"
	fieldUpdatedAt = "updatedAt"
	fieldParentID  = "parentId"
	fieldIsAdmin   = "isAdmin"
)
