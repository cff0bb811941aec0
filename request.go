package keeper

import (
	"fmt"
	"strings"

	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/id"
	"github.com/xraph/keeper/store"
)

// Request describes one pipeline invocation against a collection.
// Which fields matter depends on the pipeline: Save reads Records and
// ExistFilters, Delete reads DocIDs (or Filter for admins) and
// ChildCollections, the read pipelines use Filter and the shaping
// fields.
type Request struct {
	// Collection is the target record collection.
	Collection string `json:"collection"`

	// Credential identifies the caller.
	Credential access.Credential `json:"credential"`

	// Records are the documents to create or update. A document with an
	// "id" field updates the existing record; one without is created.
	Records []Record `json:"records,omitempty"`

	// DocIDs are the target document ids for deletes and id-scoped reads.
	DocIDs []string `json:"doc_ids,omitempty"`

	// Filter selects documents for reads, and for admin-only
	// filter-wide mutations.
	Filter Filter `json:"filter,omitempty"`

	// ExistFilters are uniqueness probes checked before a save, one per
	// submitted record. A probe that matches an existing document other
	// than the record being updated aborts the save.
	ExistFilters []Filter `json:"exist_filters,omitempty"`

	// ChildCollections are collections whose documents may reference
	// this collection's ids through their parentId field.
	ChildCollections []string `json:"child_collections,omitempty"`

	// Projection limits which fields reads return.
	Projection []string `json:"projection,omitempty"`

	// Sort orders read results.
	Sort []store.SortField `json:"sort,omitempty"`

	// Skip and Limit page read results.
	Skip  int64 `json:"skip,omitempty"`
	Limit int64 `json:"limit,omitempty"`

	// RecursiveDelete is accepted for wire compatibility and ignored;
	// deletions never cascade.
	RecursiveDelete bool `json:"recursive_delete,omitempty"`
}

// internalPrefix guards Keeper's own collections from the record pipelines.
const internalPrefix = "keeper_"

// normalize validates the request and returns a copy with the shaping
// fields clamped to configured bounds.
func (r *Request) normalize(cfg Config) (*Request, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	out := *r

	out.Collection = strings.TrimSpace(out.Collection)
	if out.Collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrInvalidRequest)
	}
	if strings.HasPrefix(out.Collection, internalPrefix) {
		return nil, fmt.Errorf("%w: collection %q is reserved", ErrInvalidRequest, out.Collection)
	}

	if out.Limit <= 0 || out.Limit > cfg.maxQueryLimit() {
		out.Limit = cfg.maxQueryLimit()
	}
	if out.Skip < 0 {
		out.Skip = 0
	}
	if len(out.Records) > cfg.maxBulkSize() {
		return nil, fmt.Errorf("%w: at most %d records per request", ErrInvalidRequest, cfg.maxBulkSize())
	}

	// Document ids travel in DocIDs, never in the filter.
	if _, ok := out.Filter[fieldID]; ok {
		f := make(Filter, len(out.Filter))
		for k, v := range out.Filter {
			if k != fieldID {
				f[k] = v
			}
		}
		out.Filter = f
	}

	for _, docID := range out.DocIDs {
		if _, err := id.ParseAny(docID); err != nil {
			return nil, fmt.Errorf("%w: invalid document id %q", ErrInvalidRequest, docID)
		}
	}
	for _, rec := range out.Records {
		if raw, ok := rec[fieldID]; ok {
			docID, isString := raw.(string)
			if !isString {
				return nil, fmt.Errorf("%w: document id must be a string", ErrInvalidRequest)
			}
			// An empty id marks a create candidate, not a target.
			if docID == "" {
				continue
			}
			if _, err := id.ParseAny(docID); err != nil {
				return nil, fmt.Errorf("%w: invalid document id %q", ErrInvalidRequest, docID)
			}
		}
	}

	return &out, nil
}

// partition splits the submitted records into creations (no id, or an
// empty one, which is dropped) and updates (id present).
func partition(records []Record) (creates, updates []Record) {
	for _, rec := range records {
		if recordID(rec) != "" {
			updates = append(updates, rec)
			continue
		}
		if _, ok := rec[fieldID]; ok {
			rec = cloneRecord(rec)
			delete(rec, fieldID)
		}
		creates = append(creates, rec)
	}
	return creates, updates
}

// recordID returns the string id of a document, if present.
func recordID(rec Record) string {
	docID, _ := rec[fieldID].(string)
	return docID
}
