package keeper

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/audit"
	"github.com/xraph/keeper/id"
	"github.com/xraph/keeper/store"
)

// Save creates and updates documents in one request. Submitted records
// without an "id" field are created; records carrying an id update the
// stored document. The pipeline stops at the first failing gate:
// request validation, identity resolution, uniqueness probes, then
// per-record permission. Nothing is written unless every gate passes.
func (e *Engine) Save(ctx context.Context, req *Request) *Result {
	norm, err := req.normalize(e.config)
	if err != nil {
		return e.failMsg(StatusValidationError, err.Error(), err)
	}
	req = norm
	if len(req.Records) == 0 {
		return e.failMsg(StatusValidationError, "no records submitted", ErrInvalidRequest)
	}

	identity, res := e.resolve(ctx, req.Credential)
	if res != nil {
		return res
	}

	if e.plugins != nil {
		e.plugins.EmitBeforeSave(ctx, req)
	}
	result := e.save(ctx, req, identity)
	if e.plugins != nil {
		e.plugins.EmitAfterSave(ctx, req, result)
	}
	return result
}

func (e *Engine) save(ctx context.Context, req *Request, identity *access.Identity) *Result {
	if len(req.Filter) > 0 {
		return e.saveByFilter(ctx, req, identity)
	}

	creates, updates := partition(req.Records)

	// Probes must cover every submitted record; a shortfall is rejected
	// rather than leaving records unchecked.
	if len(req.Records) > len(req.ExistFilters) {
		return e.failMsg(StatusValidationError,
			"uniqueness probes must cover every submitted record", ErrInvalidRequest)
	}

	updating := make(map[string]struct{}, len(updates))
	for _, rec := range updates {
		updating[recordID(rec)] = struct{}{}
	}
	if res := e.checkUnique(ctx, req.Collection, req.ExistFilters, updating); res != nil {
		return res
	}

	// Each update target is loaded exactly once; the same snapshot
	// feeds the permission check, the privilege guard, and the audit
	// trail.
	currents := make(map[string]Record, len(updates))
	for _, rec := range updates {
		docID := recordID(rec)
		current, err := e.store.FindOne(ctx, req.Collection, Filter{fieldID: docID})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return e.failMsg(StatusNotFound,
					fmt.Sprintf("record %s not found", docID), ErrRecordNotFound)
			}
			return e.fail(StatusReadError, err)
		}
		if !e.canAct(ctx, identity, req.Collection, access.CapUpdate, current) {
			return e.fail(StatusUnauthorized, ErrAccessDenied)
		}
		currents[docID] = current
	}
	if len(creates) > 0 && !e.canCreate(ctx, identity, req.Collection) {
		return e.fail(StatusUnauthorized, ErrAccessDenied)
	}

	actor := identity.UserID.String()
	now := e.now()
	count := 0
	saved := make([]Record, 0, len(req.Records))

	if len(creates) > 0 {
		docs := make([]Record, len(creates))
		for i, rec := range creates {
			doc := cloneRecord(rec)
			doc[fieldID] = id.NewRecordID().String()
			doc[fieldCreatedBy] = actor
			doc[fieldCreatedAt] = now
			docs[i] = doc
		}
		n, err := e.store.InsertMany(ctx, req.Collection, docs)
		if err != nil {
			return e.fail(StatusWriteError, err)
		}
		count += int(n)
		saved = append(saved, docs...)
		if e.config.logCreate() {
			for _, doc := range docs {
				e.record(ctx, req.Collection, audit.KindCreate, actor, doc, nil)
			}
		}
	}

	for _, rec := range updates {
		docID := recordID(rec)
		current := currents[docID]

		fields := cloneRecord(rec)
		delete(fields, fieldID)
		delete(fields, fieldCreatedBy)
		delete(fields, fieldCreatedAt)
		e.guardPrivilege(identity, req.Collection, fields, current)
		fields[fieldUpdatedBy] = actor
		fields[fieldUpdatedAt] = now

		if err := e.store.UpdateOne(ctx, req.Collection, docID, fields); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return e.failMsg(StatusNotFound,
					fmt.Sprintf("record %s not found", docID), ErrRecordNotFound)
			}
			return e.fail(StatusWriteError, err)
		}
		count++

		merged := cloneRecord(current)
		for k, v := range fields {
			merged[k] = v
		}
		saved = append(saved, merged)
		if e.config.logUpdate() {
			e.record(ctx, req.Collection, audit.KindUpdate, actor, merged, current)
		}
	}

	e.invalidate(ctx, req.Collection)
	return e.success(saved, count)
}

// saveByFilter applies one field set to every document matching the
// filter. Reserved for admins; there is no per-record ownership to
// lean on when the target set is open-ended.
func (e *Engine) saveByFilter(ctx context.Context, req *Request, identity *access.Identity) *Result {
	if !identity.IsAdmin {
		return e.fail(StatusUnauthorized, ErrAdminRequired)
	}
	if len(req.Records) != 1 {
		return e.failMsg(StatusValidationError,
			"filter-wide update takes exactly one field set", ErrInvalidRequest)
	}
	if recordID(req.Records[0]) != "" {
		return e.failMsg(StatusValidationError,
			"filter-wide update cannot target a document id", ErrInvalidRequest)
	}
	if res := e.checkUnique(ctx, req.Collection, req.ExistFilters, nil); res != nil {
		return res
	}

	actor := identity.UserID.String()
	fields := cloneRecord(req.Records[0])
	delete(fields, fieldCreatedBy)
	delete(fields, fieldCreatedAt)
	fields[fieldUpdatedBy] = actor
	fields[fieldUpdatedAt] = e.now()

	n, err := e.store.UpdateMany(ctx, req.Collection, req.Filter, fields)
	if err != nil {
		return e.fail(StatusWriteError, err)
	}
	if n == 0 {
		return e.fail(StatusNotFound, ErrRecordNotFound)
	}

	if e.config.logUpdate() {
		e.record(ctx, req.Collection, audit.KindUpdate, actor, fields, Record(req.Filter))
	}
	e.invalidate(ctx, req.Collection)
	return e.success(nil, int(n))
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec)+4)
	for k, v := range rec {
		out[k] = v
	}
	return out
}
