package keeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xraph/keeper/store"
)

// checkUnique runs the uniqueness probes against the collection. A
// probe that matches a stored document aborts the save, unless the
// match is one of the documents this request is itself updating.
func (e *Engine) checkUnique(ctx context.Context, coll string, probes []Filter, updating map[string]struct{}) *Result {
	for _, probe := range probes {
		if len(probe) == 0 {
			continue
		}
		existing, err := e.store.FindOne(ctx, coll, probe)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return e.fail(StatusReadError, err)
		}
		if _, own := updating[recordID(existing)]; own {
			continue
		}
		return e.failMsg(StatusRecordExists,
			fmt.Sprintf("record with %s already exists", describeProbe(probe)),
			ErrRecordExists)
	}
	return nil
}

// describeProbe renders a probe as "key: value | key: value" so the
// caller can see which constraint collided.
func describeProbe(probe Filter) string {
	keys := make([]string, 0, len(probe))
	for k := range probe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, probe[k]))
	}
	return strings.Join(parts, " | ")
}

// checkDeletable verifies that no dependent records reference the
// documents about to be deleted: neither same-collection children nor
// documents in the declared child collections.
func (e *Engine) checkDeletable(ctx context.Context, coll string, docIDs []string, children []string) *Result {
	ref := Filter{fieldParentID: map[string]any{"$in": docIDs}}

	n, err := e.store.Count(ctx, coll, ref)
	if err != nil {
		return e.fail(StatusReadError, err)
	}
	if n > 0 {
		return e.failMsg(StatusSubItems,
			fmt.Sprintf("%d record(s) in %s reference the target record(s)", n, coll),
			ErrSubItems)
	}

	var offenders []string
	for _, child := range children {
		if child == "" || child == coll {
			continue
		}
		n, err := e.store.Count(ctx, child, ref)
		if err != nil {
			return e.fail(StatusReadError, err)
		}
		if n > 0 {
			offenders = append(offenders, child)
		}
	}
	if len(offenders) > 0 {
		return e.failMsg(StatusSubItems,
			fmt.Sprintf("dependent records exist in: %s", strings.Join(offenders, ", ")),
			ErrSubItems)
	}
	return nil
}
