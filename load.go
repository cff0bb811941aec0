package keeper

import (
	"context"
	"fmt"

	"github.com/xraph/keeper/id"
)

// Load replaces the entire contents of a collection with the submitted
// documents, for seeding and ETL. The collection is cleared first, so
// the operation is reserved for admins. Submitted documents keep their
// ids when they carry one; the rest are assigned fresh ids. The batch
// is capped by Config.MaxBulkSize.
func (e *Engine) Load(ctx context.Context, req *Request) *Result {
	norm, err := req.normalize(e.config)
	if err != nil {
		return e.failMsg(StatusValidationError, err.Error(), err)
	}
	req = norm
	if len(req.Records) == 0 {
		return e.failMsg(StatusValidationError, "no records submitted", ErrInvalidRequest)
	}
	if len(req.Records) > e.config.maxBulkSize() {
		return e.failMsg(StatusValidationError,
			fmt.Sprintf("bulk load capped at %d records", e.config.maxBulkSize()),
			ErrInvalidRequest)
	}

	identity, res := e.resolve(ctx, req.Credential)
	if res != nil {
		return res
	}
	if !identity.IsAdmin {
		return e.fail(StatusUnauthorized, ErrAdminRequired)
	}

	actor := identity.UserID.String()
	now := e.now()
	docs := make([]Record, len(req.Records))
	for i, rec := range req.Records {
		doc := cloneRecord(rec)
		if recordID(doc) == "" {
			doc[fieldID] = id.NewRecordID().String()
		}
		if _, ok := doc[fieldCreatedBy]; !ok {
			doc[fieldCreatedBy] = actor
		}
		if _, ok := doc[fieldCreatedAt]; !ok {
			doc[fieldCreatedAt] = now
		}
		docs[i] = doc
	}

	if _, err := e.store.DeleteMany(ctx, req.Collection, Filter{}); err != nil {
		return e.fail(StatusWriteError, err)
	}
	n, err := e.store.InsertMany(ctx, req.Collection, docs)
	if err != nil {
		return e.fail(StatusWriteError, err)
	}

	e.invalidate(ctx, req.Collection)
	return e.success(nil, int(n))
}
