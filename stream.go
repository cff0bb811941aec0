package keeper

import (
	"context"

	"github.com/xraph/keeper/store"
)

// Stream reads documents as a cursor instead of a materialized slice,
// for result sets too large to hold in memory. Identity scoping works
// exactly as in Get; the cache is bypassed, streamed result sets are
// never stored. The caller must close the cursor.
//
// On failure the cursor is nil and the Result carries the outcome.
func (e *Engine) Stream(ctx context.Context, req *Request) (store.Cursor, *Result) {
	norm, err := req.normalize(e.config)
	if err != nil {
		return nil, e.failMsg(StatusValidationError, err.Error(), err)
	}
	req = norm

	identity, res := e.resolve(ctx, req.Credential)
	if res != nil {
		return nil, res
	}

	if e.plugins != nil {
		e.plugins.EmitBeforeQuery(ctx, req)
	}

	scoped := e.scopeFilter(ctx, identity, req)
	cur, err := e.store.Stream(ctx, req.Collection, scoped, store.FindOptions{
		Skip:       req.Skip,
		Limit:      req.Limit,
		Projection: req.Projection,
		Sort:       req.Sort,
	})
	if err != nil {
		return nil, e.fail(StatusReadError, err)
	}

	e.logRead(ctx, req.Collection, identity.UserID.String(), 0)
	return cur, e.success(nil, 0)
}

// StreamOpen is the unauthenticated counterpart of Stream, for
// collections the deployment exposes publicly. No identity scoping is
// applied and reads are logged against the fixed lookup actor.
func (e *Engine) StreamOpen(ctx context.Context, req *Request) (store.Cursor, *Result) {
	norm, err := req.normalize(e.config)
	if err != nil {
		return nil, e.failMsg(StatusValidationError, err.Error(), err)
	}
	req = norm

	if e.plugins != nil {
		e.plugins.EmitBeforeQuery(ctx, req)
	}

	cur, err := e.store.Stream(ctx, req.Collection, baseFilter(req), store.FindOptions{
		Skip:       req.Skip,
		Limit:      req.Limit,
		Projection: req.Projection,
		Sort:       req.Sort,
	})
	if err != nil {
		return nil, e.fail(StatusReadError, err)
	}

	e.logRead(ctx, req.Collection, lookupActor, 0)
	return cur, e.success(nil, 0)
}
