package keeper

import (
	"context"
	"strings"

	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/audit"
	"github.com/xraph/keeper/id"
	"github.com/xraph/keeper/store"
)

// lookupActor is the audit actor recorded for unauthenticated lookups.
const lookupActor = "public-lookup"

// Get reads documents the caller is entitled to see. Admins read the
// filter as given; identities holding a read grant on the collection do
// too; identities granted specific documents are restricted to those;
// everyone else sees only documents they created. An empty result is a
// notFound outcome, not an error.
func (e *Engine) Get(ctx context.Context, req *Request) *Result {
	norm, err := req.normalize(e.config)
	if err != nil {
		return e.failMsg(StatusValidationError, err.Error(), err)
	}
	req = norm

	identity, res := e.resolve(ctx, req.Credential)
	if res != nil {
		return res
	}

	if e.plugins != nil {
		e.plugins.EmitBeforeQuery(ctx, req)
	}
	scoped := e.scopeFilter(ctx, identity, req)
	result := e.fetch(ctx, req, scoped, identity.UserID.String())
	if e.plugins != nil {
		e.plugins.EmitAfterQuery(ctx, req, result)
	}
	return result
}

// GetOpen reads documents without authentication, for collections the
// deployment exposes publicly. No identity scoping is applied and reads
// are logged against a fixed lookup actor.
func (e *Engine) GetOpen(ctx context.Context, req *Request) *Result {
	norm, err := req.normalize(e.config)
	if err != nil {
		return e.failMsg(StatusValidationError, err.Error(), err)
	}
	req = norm

	if e.plugins != nil {
		e.plugins.EmitBeforeQuery(ctx, req)
	}
	result := e.fetch(ctx, req, baseFilter(req), lookupActor)
	if e.plugins != nil {
		e.plugins.EmitAfterQuery(ctx, req, result)
	}
	return result
}

// fetch serves a scoped query from cache when possible, falling back to
// the store and repopulating the cache.
func (e *Engine) fetch(ctx context.Context, req *Request, scoped Filter, actor string) *Result {
	fp := Fingerprint{
		Collection: req.Collection,
		Actor:      actor,
		Filter:     scoped,
		Projection: req.Projection,
		Sort:       req.Sort,
		Skip:       req.Skip,
		Limit:      req.Limit,
	}
	if e.cache != nil {
		if records, count, ok := e.cache.Get(ctx, fp); ok {
			e.logRead(ctx, req.Collection, actor, len(records))
			return e.success(records, count)
		}
	}

	records, err := e.store.Find(ctx, req.Collection, scoped, store.FindOptions{
		Skip:       req.Skip,
		Limit:      req.Limit,
		Projection: req.Projection,
		Sort:       req.Sort,
	})
	if err != nil {
		return e.fail(StatusReadError, err)
	}
	if len(records) == 0 {
		return e.fail(StatusNotFound, ErrRecordNotFound)
	}
	count, err := e.store.Count(ctx, req.Collection, scoped)
	if err != nil {
		return e.fail(StatusReadError, err)
	}

	if e.cache != nil {
		e.cache.Set(ctx, fp, records, int(count))
	}
	e.logRead(ctx, req.Collection, actor, len(records))

	res := e.success(records, int(count))
	return res
}

func (e *Engine) logRead(ctx context.Context, coll, actor string, count int) {
	if !e.config.logRead() {
		return
	}
	e.record(ctx, coll, audit.KindRead, actor, Record{"docCount": count}, nil)
}

// baseFilter combines the request filter with any id targeting.
func baseFilter(req *Request) Filter {
	f := make(Filter, len(req.Filter)+1)
	for k, v := range req.Filter {
		f[k] = v
	}
	if len(req.DocIDs) > 0 {
		f[fieldID] = map[string]any{"$in": req.DocIDs}
	}
	return f
}

// scopeFilter narrows the request filter to what the identity may read.
func (e *Engine) scopeFilter(ctx context.Context, identity *access.Identity, req *Request) Filter {
	f := baseFilter(req)
	if identity.IsAdmin {
		return f
	}
	if grantCovers(identity, access.CapRead, req.Collection, e.serviceRefID(ctx, req.Collection)) {
		return f
	}

	// Grants naming individual documents restrict the id set.
	if refs := recordRefs(identity.GrantRefs(access.CapRead)); len(refs) > 0 {
		if len(req.DocIDs) > 0 {
			refs = intersect(refs, req.DocIDs)
		}
		f[fieldID] = map[string]any{"$in": refs}
		return f
	}

	// Ownership scope: only documents the identity created.
	f[fieldCreatedBy] = identity.UserID.String()
	return f
}

// recordRefs keeps only grant references that are document ids.
func recordRefs(refs []string) []string {
	out := refs[:0:0]
	for _, ref := range refs {
		if strings.HasPrefix(ref, string(id.PrefixRecord)+"_") {
			out = append(out, ref)
		}
	}
	return out
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
