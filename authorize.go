package keeper

import (
	"context"
	"errors"

	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/store"
)

// serviceRefID looks up the service-registry document for a collection.
// Its id is an additional reference a role grant may point at. A missing
// registry entry just means grants must name the collection directly.
func (e *Engine) serviceRefID(ctx context.Context, coll string) string {
	doc, err := e.store.FindOne(ctx, e.config.serviceCollection(), Filter{"name": coll})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("keeper: service registry lookup failed", "collection", coll, "error", err)
		}
		return ""
	}
	return recordID(doc)
}

// grantCovers reports whether any grant with the capability points at
// one of the references.
func grantCovers(identity *access.Identity, capability access.Capability, refs ...string) bool {
	for _, g := range identity.Grants {
		if !g.Allows(capability) {
			continue
		}
		for _, ref := range refs {
			if ref != "" && g.ServiceRef == ref {
				return true
			}
		}
	}
	return false
}

// canCreate reports whether the identity may create documents in the
// collection: admins always, others through a create grant naming the
// collection or its service-registry entry.
func (e *Engine) canCreate(ctx context.Context, identity *access.Identity, coll string) bool {
	if identity.IsAdmin {
		return true
	}
	return grantCovers(identity, access.CapCreate, coll, e.serviceRefID(ctx, coll))
}

// canAct reports whether the identity may apply the capability to an
// existing document: admins always, owners always, others through a
// grant naming the document, the collection, or its registry entry.
func (e *Engine) canAct(ctx context.Context, identity *access.Identity, coll string, capability access.Capability, current Record) bool {
	if identity.IsAdmin {
		return true
	}
	if e.owns(identity, coll, current) {
		return true
	}
	return grantCovers(identity, capability, recordID(current), coll, e.serviceRefID(ctx, coll))
}

// owns reports record ownership. A document is owned by the identity
// that created it; in the user collection a document describing the
// actor also counts as owned, so accounts can maintain themselves.
func (e *Engine) owns(identity *access.Identity, coll string, rec Record) bool {
	actor := identity.UserID.String()
	if createdBy, _ := rec[fieldCreatedBy].(string); createdBy != "" && createdBy == actor {
		return true
	}
	if coll == e.config.userCollection() {
		if recordID(rec) == actor {
			return true
		}
		if userID, _ := rec["userId"].(string); userID != "" && userID == actor {
			return true
		}
	}
	return false
}

// guardPrivilege keeps non-admin writers from toggling the admin flag
// on user documents: the submitted value is reset to whatever the
// stored document already holds.
func (e *Engine) guardPrivilege(identity *access.Identity, coll string, fields, current Record) {
	if identity.IsAdmin || coll != e.config.userCollection() {
		return
	}
	if _, submitted := fields[fieldIsAdmin]; !submitted {
		return
	}
	if prior, ok := current[fieldIsAdmin]; ok {
		fields[fieldIsAdmin] = prior
	} else {
		delete(fields, fieldIsAdmin)
	}
}
