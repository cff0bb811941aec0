// Package mongo provides the MongoDB implementation of the Keeper
// composite store. Typed entities (users, access keys, role grants,
// audit logs) go through Grove models; generic record collections go
// through the raw driver since their shape is not known ahead of time.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/audit"
	"github.com/xraph/keeper/id"
	"github.com/xraph/keeper/store"
)

// Collection name constants for typed entities.
const (
	colUsers      = "keeper_users"
	colAccessKeys = "keeper_access_keys"
	colRoleGrants = "keeper_role_grants"
	colAuditLogs  = "keeper_audit_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite Keeper store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all keeper collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("keeper/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all keeper collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colUsers: {
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "default_group", Value: 1}}},
			{Keys: bson.D{{Key: "is_active", Value: 1}}},
		},
		colAccessKeys: {
			{
				Keys:    bson.D{{Key: "token", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
		colRoleGrants: {
			{Keys: bson.D{{Key: "group", Value: 1}, {Key: "is_active", Value: 1}}},
			{Keys: bson.D{{Key: "service_ref", Value: 1}}},
		},
		colAuditLogs: {
			{Keys: bson.D{{Key: "collection", Value: 1}}},
			{Keys: bson.D{{Key: "actor_id", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Record operations (raw driver, schemaless)
// ──────────────────────────────────────────────────

func (s *Store) FindOne(ctx context.Context, coll string, filter store.Filter) (store.Record, error) {
	var doc bson.M
	err := s.mdb.Collection(coll).FindOne(ctx, encodeFilter(filter)).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("collection %s: %w", coll, store.ErrNotFound)
		}
		return nil, fmt.Errorf("keeper: find record: %w", err)
	}
	return decodeRecord(doc), nil
}

func (s *Store) Find(ctx context.Context, coll string, filter store.Filter, opts store.FindOptions) ([]store.Record, error) {
	cur, err := s.mdb.Collection(coll).Find(ctx, encodeFilter(filter), findOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("keeper: find records: %w", err)
	}
	defer cur.Close(ctx) //nolint:errcheck

	var out []store.Record
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("keeper: decode record: %w", err)
		}
		out = append(out, decodeRecord(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("keeper: find records: %w", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, coll string, filter store.Filter) (int64, error) {
	count, err := s.mdb.Collection(coll).CountDocuments(ctx, encodeFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("keeper: count records: %w", err)
	}
	return count, nil
}

func (s *Store) InsertMany(ctx context.Context, coll string, docs []store.Record) (int64, error) {
	encoded := make([]any, len(docs))
	for i, doc := range docs {
		encoded[i] = encodeRecord(doc)
	}
	res, err := s.mdb.Collection(coll).InsertMany(ctx, encoded)
	if err != nil {
		return 0, fmt.Errorf("keeper: insert records: %w", err)
	}
	return int64(len(res.InsertedIDs)), nil
}

func (s *Store) UpdateOne(ctx context.Context, coll string, docID string, fields store.Record) error {
	res, err := s.mdb.Collection(coll).UpdateOne(ctx,
		bson.M{"_id": docID},
		bson.M{"$set": encodeFields(fields)})
	if err != nil {
		return fmt.Errorf("keeper: update record: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("record %s: %w", docID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdateMany(ctx context.Context, coll string, filter store.Filter, fields store.Record) (int64, error) {
	res, err := s.mdb.Collection(coll).UpdateMany(ctx,
		encodeFilter(filter),
		bson.M{"$set": encodeFields(fields)})
	if err != nil {
		return 0, fmt.Errorf("keeper: update records: %w", err)
	}
	return res.MatchedCount, nil
}

func (s *Store) DeleteByIDs(ctx context.Context, coll string, docIDs []string) (int64, error) {
	res, err := s.mdb.Collection(coll).DeleteMany(ctx,
		bson.M{"_id": bson.M{"$in": docIDs}})
	if err != nil {
		return 0, fmt.Errorf("keeper: delete records: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) DeleteMany(ctx context.Context, coll string, filter store.Filter) (int64, error) {
	res, err := s.mdb.Collection(coll).DeleteMany(ctx, encodeFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("keeper: delete records: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) Stream(ctx context.Context, coll string, filter store.Filter, opts store.FindOptions) (store.Cursor, error) {
	cur, err := s.mdb.Collection(coll).Find(ctx, encodeFilter(filter), findOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("keeper: stream records: %w", err)
	}
	return &mongoCursor{cur: cur}, nil
}

type mongoCursor struct {
	cur     *mongod.Cursor
	current store.Record
	err     error
}

func (c *mongoCursor) Next(ctx context.Context) bool {
	if !c.cur.Next(ctx) {
		return false
	}
	var doc bson.M
	if err := c.cur.Decode(&doc); err != nil {
		c.err = fmt.Errorf("keeper: decode record: %w", err)
		return false
	}
	c.current = decodeRecord(doc)
	return true
}

func (c *mongoCursor) Record() store.Record { return c.current }

func (c *mongoCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *mongoCursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}

// encodeRecord maps the portable "id" key onto Mongo's "_id".
func encodeRecord(doc store.Record) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		if k == "id" {
			out["_id"] = v
			continue
		}
		out[k] = v
	}
	return out
}

// decodeRecord maps "_id" back onto the portable "id" key.
func decodeRecord(doc bson.M) store.Record {
	out := make(store.Record, len(doc))
	for k, v := range doc {
		if k == "_id" {
			out["id"] = v
			continue
		}
		out[k] = v
	}
	return out
}

// encodeFilter rewrites "id" to "_id" at the top level of a filter.
func encodeFilter(filter store.Filter) bson.M {
	out := make(bson.M, len(filter))
	for k, v := range filter {
		if k == "id" {
			out["_id"] = v
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return bson.M{}
	}
	return out
}

// encodeFields drops "id" from a partial update so the primary key is
// never rewritten.
func encodeFields(fields store.Record) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

func findOptions(opts store.FindOptions) *options.FindOptionsBuilder {
	fo := options.Find()
	if opts.Skip > 0 {
		fo = fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo = fo.SetLimit(opts.Limit)
	}
	if len(opts.Sort) > 0 {
		sort := make(bson.D, 0, len(opts.Sort))
		for _, f := range opts.Sort {
			order := 1
			if f.Desc {
				order = -1
			}
			sort = append(sort, bson.E{Key: f.Field, Value: order})
		}
		fo = fo.SetSort(sort)
	}
	if len(opts.Projection) > 0 {
		proj := make(bson.M, len(opts.Projection))
		for _, f := range opts.Projection {
			proj[f] = 1
		}
		fo = fo.SetProjection(proj)
	}
	return fo
}

// ──────────────────────────────────────────────────
// Access operations
// ──────────────────────────────────────────────────

func (s *Store) GetAccessKeyByToken(ctx context.Context, token string) (*access.AccessKey, error) {
	var m accessKeyModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"token": token}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, access.ErrKeyNotFound
		}
		return nil, fmt.Errorf("keeper: get access key by token: %w", err)
	}
	return accessKeyFromModel(&m), nil
}

func (s *Store) GetAccessKeyByUser(ctx context.Context, userID string) (*access.AccessKey, error) {
	var models []accessKeyModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"user_id": userID}).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("keeper: get access key by user: %w", err)
	}
	if len(models) == 0 {
		return nil, access.ErrKeyNotFound
	}
	return accessKeyFromModel(&models[0]), nil
}

func (s *Store) GetActiveUser(ctx context.Context, userID string) (*access.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID, "is_active": true}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, access.ErrUserNotFound
		}
		return nil, fmt.Errorf("keeper: get active user: %w", err)
	}
	return userFromModel(&m), nil
}

func (s *Store) ListRoleGrants(ctx context.Context, filter access.ListFilter) ([]access.RoleGrant, error) {
	var models []roleGrantModel
	f := bson.M{}
	if filter.Group != "" {
		f["group"] = filter.Group
	}
	if filter.ServiceRef != "" {
		f["service_ref"] = filter.ServiceRef
	}
	if filter.IsActive != nil {
		f["is_active"] = *filter.IsActive
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter.Limit > 0 {
		q = q.Limit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Skip(int64(filter.Offset))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("keeper: list role grants: %w", err)
	}
	result := make([]access.RoleGrant, len(models))
	for i := range models {
		result[i] = roleGrantFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Audit log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditLog(ctx context.Context, e *audit.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	m := auditLogToModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("keeper: create audit log: %w", err)
	}
	return nil
}

func (s *Store) GetAuditLog(ctx context.Context, logID id.AuditLogID) (*audit.Entry, error) {
	var m auditLogModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": logID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("audit log %s: %w", logID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("keeper: get audit log: %w", err)
	}
	return auditLogFromModel(&m), nil
}

func (s *Store) ListAuditLogs(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditLogModel
	f := auditFilter(filter)
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("keeper: list audit logs: %w", err)
	}
	result := make([]*audit.Entry, len(models))
	for i := range models {
		result[i] = auditLogFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAuditLogs(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	count, err := s.mdb.NewFind((*auditLogModel)(nil)).
		Filter(auditFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("keeper: count audit logs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeAuditLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*auditLogModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("keeper: purge audit logs: %w", err)
	}
	return res.DeletedCount(), nil
}

func auditFilter(filter *audit.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.Collection != "" {
		f["collection"] = filter.Collection
	}
	if filter.Kind != "" {
		f["kind"] = filter.Kind
	}
	if filter.ActorID != "" {
		f["actor_id"] = filter.ActorID
	}
	if filter.After != nil || filter.Before != nil {
		dateFilter := bson.M{}
		if filter.After != nil {
			dateFilter["$gte"] = *filter.After
		}
		if filter.Before != nil {
			dateFilter["$lte"] = *filter.Before
		}
		f["created_at"] = dateFilter
	}
	return f
}
