package keeper

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/audit"
	"github.com/xraph/keeper/store"
)

// Delete removes documents by id, or by filter for admins. Every
// target must exist and be permitted to the caller, and no dependent
// record may reference a target through its parentId, in the same
// collection or in any declared child collection. The first failing
// gate stops the pipeline before anything is removed.
//
// RecursiveDelete on the request is accepted and ignored; deletions
// never cascade.
func (e *Engine) Delete(ctx context.Context, req *Request) *Result {
	norm, err := req.normalize(e.config)
	if err != nil {
		return e.failMsg(StatusValidationError, err.Error(), err)
	}
	req = norm
	if len(req.DocIDs) == 0 && len(req.Filter) == 0 {
		return e.failMsg(StatusValidationError,
			"document ids or a filter are required", ErrInvalidRequest)
	}

	identity, res := e.resolve(ctx, req.Credential)
	if res != nil {
		return res
	}

	if e.plugins != nil {
		e.plugins.EmitBeforeDelete(ctx, req)
	}
	result := e.delete(ctx, req, identity)
	if e.plugins != nil {
		e.plugins.EmitAfterDelete(ctx, req, result)
	}
	return result
}

func (e *Engine) delete(ctx context.Context, req *Request, identity *access.Identity) *Result {
	currents, res := e.loadDeleteTargets(ctx, req, identity)
	if res != nil {
		return res
	}

	docIDs := make([]string, len(currents))
	for i, rec := range currents {
		docIDs[i] = recordID(rec)
	}

	for _, current := range currents {
		if !e.canAct(ctx, identity, req.Collection, access.CapDelete, current) {
			return e.fail(StatusUnauthorized, ErrAccessDenied)
		}
	}

	if res := e.checkDeletable(ctx, req.Collection, docIDs, req.ChildCollections); res != nil {
		return res
	}

	n, err := e.store.DeleteByIDs(ctx, req.Collection, docIDs)
	if err != nil {
		return e.fail(StatusWriteError, err)
	}

	actor := identity.UserID.String()
	if e.config.logDelete() {
		for _, current := range currents {
			e.record(ctx, req.Collection, audit.KindDelete, actor, nil, current)
		}
	}
	e.invalidate(ctx, req.Collection)
	return e.success(nil, int(n))
}

// loadDeleteTargets snapshots every document about to be deleted. The
// id-scoped path requires all named documents to exist; the filter
// path is admin-only since a filter cannot be ownership-checked before
// its matches are known.
func (e *Engine) loadDeleteTargets(ctx context.Context, req *Request, identity *access.Identity) ([]Record, *Result) {
	if len(req.DocIDs) > 0 {
		currents := make([]Record, 0, len(req.DocIDs))
		for _, docID := range req.DocIDs {
			current, err := e.store.FindOne(ctx, req.Collection, Filter{fieldID: docID})
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, e.failMsg(StatusNotFound,
						fmt.Sprintf("record %s not found", docID), ErrRecordNotFound)
				}
				return nil, e.fail(StatusReadError, err)
			}
			currents = append(currents, current)
		}
		return currents, nil
	}

	if !identity.IsAdmin {
		return nil, e.fail(StatusUnauthorized, ErrAdminRequired)
	}
	currents, err := e.store.Find(ctx, req.Collection, req.Filter, store.FindOptions{
		Limit: e.config.maxQueryLimit(),
	})
	if err != nil {
		return nil, e.fail(StatusReadError, err)
	}
	if len(currents) == 0 {
		return nil, e.fail(StatusNotFound, ErrRecordNotFound)
	}
	return currents, nil
}
