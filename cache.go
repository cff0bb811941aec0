package keeper

import (
	"context"

	"github.com/xraph/keeper/store"
)

// Fingerprint identifies one query result set for caching. It includes
// the acting identity so scoped result sets never cross identities.
type Fingerprint struct {
	Collection string            `json:"collection"`
	Actor      string            `json:"actor"`
	Filter     Filter            `json:"filter,omitempty"`
	Projection []string          `json:"projection,omitempty"`
	Sort       []store.SortField `json:"sort,omitempty"`
	Skip       int64             `json:"skip"`
	Limit      int64             `json:"limit"`
}

// Cache provides caching for query result sets. The total match count
// travels with the records so a cached page reports the same count as
// the read that populated it.
type Cache interface {
	// Get returns a cached result set and its total match count, if
	// available.
	Get(ctx context.Context, fp Fingerprint) ([]Record, int, bool)

	// Set stores a result set and its total match count.
	Set(ctx context.Context, fp Fingerprint, records []Record, count int)

	// Invalidate removes all cached result sets for a collection.
	Invalidate(ctx context.Context, coll string)
}
