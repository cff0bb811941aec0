// Package memory provides an in-memory implementation of the Keeper
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/audit"
	"github.com/xraph/keeper/id"
	"github.com/xraph/keeper/store"
)

// Compile-time interface checks.
var (
	_ store.RecordStore = (*Store)(nil)
	_ access.Store      = (*Store)(nil)
	_ audit.Store       = (*Store)(nil)
	_ store.Store       = (*Store)(nil)
)

// Store is a thread-safe in-memory store for records and all typed
// Keeper entities.
type Store struct {
	mu sync.RWMutex

	collections map[string]map[string]store.Record // coll -> docID -> doc
	users       map[string]*access.User
	accessKeys  map[string]*access.AccessKey
	roleGrants  map[string]*access.RoleGrant
	auditLogs   map[string]*audit.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]store.Record),
		users:       make(map[string]*access.User),
		accessKeys:  make(map[string]*access.AccessKey),
		roleGrants:  make(map[string]*access.RoleGrant),
		auditLogs:   make(map[string]*audit.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Record Store
// ──────────────────────────────────────────────────

func (s *Store) FindOne(_ context.Context, coll string, filter store.Filter) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.sorted(coll) {
		if matches(doc, filter) {
			return copyRecord(doc), nil
		}
	}
	return nil, fmt.Errorf("collection %s: %w", coll, store.ErrNotFound)
}

func (s *Store) Find(_ context.Context, coll string, filter store.Filter, opts store.FindOptions) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(coll, filter, opts), nil
}

func (s *Store) Count(_ context.Context, coll string, filter store.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, doc := range s.collections[coll] {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertMany(_ context.Context, coll string, docs []store.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.collections[coll]
	if bucket == nil {
		bucket = make(map[string]store.Record)
		s.collections[coll] = bucket
	}
	for _, doc := range docs {
		docID, _ := doc["id"].(string)
		if docID == "" {
			return 0, fmt.Errorf("memory: insert into %s: missing id", coll)
		}
		bucket[docID] = copyRecord(doc)
	}
	return int64(len(docs)), nil
}

func (s *Store) UpdateOne(_ context.Context, coll string, docID string, fields store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[coll][docID]
	if !ok {
		return fmt.Errorf("record %s: %w", docID, store.ErrNotFound)
	}
	applyFields(doc, fields)
	return nil
}

func (s *Store) UpdateMany(_ context.Context, coll string, filter store.Filter, fields store.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, doc := range s.collections[coll] {
		if matches(doc, filter) {
			applyFields(doc, fields)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteByIDs(_ context.Context, coll string, docIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.collections[coll]
	var n int64
	for _, docID := range docIDs {
		if _, ok := bucket[docID]; ok {
			delete(bucket, docID)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteMany(_ context.Context, coll string, filter store.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.collections[coll]
	var n int64
	for docID, doc := range bucket {
		if matches(doc, filter) {
			delete(bucket, docID)
			n++
		}
	}
	return n, nil
}

func (s *Store) Stream(_ context.Context, coll string, filter store.Filter, opts store.FindOptions) (store.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &sliceCursor{docs: s.find(coll, filter, opts), pos: -1}, nil
}

// find snapshots matching documents under the read lock already held
// by the caller.
func (s *Store) find(coll string, filter store.Filter, opts store.FindOptions) []store.Record {
	var out []store.Record
	for _, doc := range s.sorted(coll) {
		if matches(doc, filter) {
			out = append(out, copyRecord(doc))
		}
	}
	sortRecords(out, opts.Sort)
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(out)) {
			out = nil
		} else {
			out = out[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int64(len(out)) > opts.Limit {
		out = out[:opts.Limit]
	}
	if len(opts.Projection) > 0 {
		for i, doc := range out {
			out[i] = project(doc, opts.Projection)
		}
	}
	return out
}

// sorted returns the collection's documents in id order so iteration
// is deterministic across calls.
func (s *Store) sorted(coll string) []store.Record {
	bucket := s.collections[coll]
	ids := make([]string, 0, len(bucket))
	for docID := range bucket {
		ids = append(ids, docID)
	}
	sort.Strings(ids)
	docs := make([]store.Record, 0, len(ids))
	for _, docID := range ids {
		docs = append(docs, bucket[docID])
	}
	return docs
}

type sliceCursor struct {
	docs []store.Record
	pos  int
}

func (c *sliceCursor) Next(_ context.Context) bool {
	if c.pos+1 >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Record() store.Record { return c.docs[c.pos] }

func (c *sliceCursor) Err() error { return nil }

func (c *sliceCursor) Close(_ context.Context) error { return nil }

// ──────────────────────────────────────────────────
// Access Store
// ──────────────────────────────────────────────────

func (s *Store) GetAccessKeyByToken(_ context.Context, token string) (*access.AccessKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.accessKeys {
		if k.Token == token {
			cp := *k
			return &cp, nil
		}
	}
	return nil, access.ErrKeyNotFound
}

func (s *Store) GetAccessKeyByUser(_ context.Context, userID string) (*access.AccessKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *access.AccessKey
	for _, k := range s.accessKeys {
		if k.UserID.String() != userID {
			continue
		}
		if latest == nil || k.CreatedAt.After(latest.CreatedAt) {
			latest = k
		}
	}
	if latest == nil {
		return nil, access.ErrKeyNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *Store) GetActiveUser(_ context.Context, userID string) (*access.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok || !u.IsActive {
		return nil, access.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) ListRoleGrants(_ context.Context, filter access.ListFilter) ([]access.RoleGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []access.RoleGrant
	for _, g := range s.roleGrants {
		if filter.Group != "" && g.Group != filter.Group {
			continue
		}
		if filter.ServiceRef != "" && g.ServiceRef != filter.ServiceRef {
			continue
		}
		if filter.IsActive != nil && g.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	out = paginate(out, filter.Offset, filter.Limit)
	return out, nil
}

// PutUser seeds or replaces a user. Test and bootstrap helper.
func (s *Store) PutUser(u *access.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID.String()] = &cp
}

// PutAccessKey seeds or replaces an access key. Test and bootstrap helper.
func (s *Store) PutAccessKey(k *access.AccessKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *k
	s.accessKeys[k.ID.String()] = &cp
}

// PutRoleGrant seeds or replaces a role grant. Test and bootstrap helper.
func (s *Store) PutRoleGrant(g *access.RoleGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.roleGrants[g.ID.String()] = &cp
}

// ──────────────────────────────────────────────────
// Audit Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditLog(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs[e.ID.String()] = copyEntry(e)
	return nil
}

func (s *Store) GetAuditLog(_ context.Context, logID id.AuditLogID) (*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.auditLogs[logID.String()]
	if !ok {
		return nil, fmt.Errorf("audit log %s: %w", logID, store.ErrNotFound)
	}
	return copyEntry(e), nil
}

func (s *Store) ListAuditLogs(_ context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*audit.Entry
	for _, e := range s.auditLogs {
		if auditMatches(e, filter) {
			out = append(out, copyEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filter != nil {
		out = paginate(out, filter.Offset, filter.Limit)
	}
	return out, nil
}

func (s *Store) CountAuditLogs(_ context.Context, filter *audit.QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.auditLogs {
		if auditMatches(e, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) PurgeAuditLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, e := range s.auditLogs {
		if e.CreatedAt.Before(before) {
			delete(s.auditLogs, key)
			n++
		}
	}
	return n, nil
}

func auditMatches(e *audit.Entry, f *audit.QueryFilter) bool {
	if f == nil {
		return true
	}
	if f.Collection != "" && e.Collection != f.Collection {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.After != nil && !e.CreatedAt.After(*f.After) {
		return false
	}
	if f.Before != nil && !e.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func copyRecord(doc store.Record) store.Record {
	cp := make(store.Record, len(doc))
	for k, v := range doc {
		if nested, ok := v.(map[string]any); ok {
			cp[k] = copyRecord(nested)
			continue
		}
		cp[k] = v
	}
	return cp
}

func copyEntry(e *audit.Entry) *audit.Entry {
	cp := *e
	if e.Document != nil {
		cp.Document = copyRecord(e.Document)
	}
	if e.Before != nil {
		cp.Before = copyRecord(e.Before)
	}
	return &cp
}

func applyFields(doc store.Record, fields store.Record) {
	for k, v := range fields {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
}

func project(doc store.Record, fields []string) store.Record {
	out := make(store.Record, len(fields)+1)
	if docID, ok := doc["id"]; ok {
		out["id"] = docID
	}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

func sortRecords(docs []store.Record, fields []store.SortField) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, f := range fields {
			c := compare(docs[i][f.Field], docs[j][f.Field])
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
