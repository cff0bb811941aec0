package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/audit"
	"github.com/xraph/keeper/id"
	"github.com/xraph/keeper/store"
)

func seedArticles(t *testing.T, s *Store) []string {
	t.Helper()
	docs := []store.Record{
		{"id": "rec_a", "title": "alpha", "views": 10, "owner": "usr_1"},
		{"id": "rec_b", "title": "beta", "views": 25, "owner": "usr_1"},
		{"id": "rec_c", "title": "gamma", "views": 5, "owner": "usr_2"},
	}
	if _, err := s.InsertMany(context.Background(), "articles", docs); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}
	return []string{"rec_a", "rec_b", "rec_c"}
}

func TestRecordCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedArticles(t, s)

	doc, err := s.FindOne(ctx, "articles", store.Filter{"title": "beta"})
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if doc["id"] != "rec_b" {
		t.Fatalf("id = %v, want rec_b", doc["id"])
	}

	if _, err := s.FindOne(ctx, "articles", store.Filter{"title": "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := s.UpdateOne(ctx, "articles", "rec_b", store.Record{"title": "beta2"}); err != nil {
		t.Fatalf("UpdateOne: %v", err)
	}
	doc, _ = s.FindOne(ctx, "articles", store.Filter{"id": "rec_b"})
	if doc["title"] != "beta2" {
		t.Fatalf("title = %v, want beta2", doc["title"])
	}

	n, err := s.DeleteByIDs(ctx, "articles", []string{"rec_a", "rec_zzz"})
	if err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}

	count, _ := s.Count(ctx, "articles", store.Filter{})
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestFindShaping(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedArticles(t, s)

	docs, err := s.Find(ctx, "articles", store.Filter{}, store.FindOptions{
		Sort:  []store.SortField{{Field: "views", Desc: true}},
		Skip:  1,
		Limit: 1,
	})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(docs) != 1 || docs[0]["id"] != "rec_a" {
		t.Fatalf("docs = %v, want the middle document by views", docs)
	}

	docs, _ = s.Find(ctx, "articles", store.Filter{}, store.FindOptions{
		Projection: []string{"title"},
	})
	if _, ok := docs[0]["views"]; ok {
		t.Fatal("projection leaked the views field")
	}
	if _, ok := docs[0]["id"]; !ok {
		t.Fatal("projection dropped the id field")
	}
}

func TestFilterOperators(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedArticles(t, s)

	tests := []struct {
		name   string
		filter store.Filter
		want   int64
	}{
		{"in", store.Filter{"id": map[string]any{"$in": []string{"rec_a", "rec_c"}}}, 2},
		{"nin", store.Filter{"owner": map[string]any{"$nin": []string{"usr_1"}}}, 1},
		{"ne", store.Filter{"owner": map[string]any{"$ne": "usr_1"}}, 1},
		{"gt", store.Filter{"views": map[string]any{"$gt": 9}}, 2},
		{"lte", store.Filter{"views": map[string]any{"$lte": 10}}, 2},
		{"exists true", store.Filter{"title": map[string]any{"$exists": true}}, 3},
		{"exists false", store.Filter{"rating": map[string]any{"$exists": false}}, 3},
		{"plain map is equality", store.Filter{"title": map[string]any{"nested": 1}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Count(ctx, "articles", tt.filter)
			if err != nil {
				t.Fatalf("Count: %v", err)
			}
			if n != tt.want {
				t.Fatalf("count = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestDeleteManyAndClear(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedArticles(t, s)

	n, err := s.DeleteMany(ctx, "articles", store.Filter{"owner": "usr_1"})
	if err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted = %d, want 2", n)
	}

	n, _ = s.DeleteMany(ctx, "articles", store.Filter{})
	if n != 1 {
		t.Fatalf("clear deleted = %d, want 1", n)
	}
}

func TestStreamCursor(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedArticles(t, s)

	cur, err := s.Stream(ctx, "articles", store.Filter{"owner": "usr_1"}, store.FindOptions{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer cur.Close(ctx)

	var seen int
	for cur.Next(ctx) {
		if cur.Record()["owner"] != "usr_1" {
			t.Fatalf("unexpected document %v", cur.Record())
		}
		seen++
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor err: %v", err)
	}
	if seen != 2 {
		t.Fatalf("streamed %d documents, want 2", seen)
	}
}

func TestInsertIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	doc := store.Record{"id": "rec_x", "title": "orig"}
	if _, err := s.InsertMany(ctx, "articles", []store.Record{doc}); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	// Mutating the caller's map must not reach the stored copy.
	doc["title"] = "mutated"
	got, _ := s.FindOne(ctx, "articles", store.Filter{"id": "rec_x"})
	if got["title"] != "orig" {
		t.Fatal("store shared memory with the caller")
	}

	// And mutating a returned document must not reach the store.
	got["title"] = "mutated"
	again, _ := s.FindOne(ctx, "articles", store.Filter{"id": "rec_x"})
	if again["title"] != "orig" {
		t.Fatal("store shared memory with a reader")
	}
}

func TestAccessStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	userID := id.NewUserID()
	s.PutUser(&access.User{ID: userID, Username: "rollo", IsActive: true, DefaultGroup: "ops"})

	older := &access.AccessKey{ID: id.NewAccessKeyID(), UserID: userID, Token: "tok-old", CreatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := &access.AccessKey{ID: id.NewAccessKeyID(), UserID: userID, Token: "tok-new", CreatedAt: time.Now().UTC()}
	s.PutAccessKey(older)
	s.PutAccessKey(newer)

	k, err := s.GetAccessKeyByToken(ctx, "tok-old")
	if err != nil {
		t.Fatalf("GetAccessKeyByToken: %v", err)
	}
	if k.ID != older.ID {
		t.Fatalf("key = %s, want %s", k.ID, older.ID)
	}

	k, err = s.GetAccessKeyByUser(ctx, userID.String())
	if err != nil {
		t.Fatalf("GetAccessKeyByUser: %v", err)
	}
	if k.ID != newer.ID {
		t.Fatal("expected the most recent key")
	}

	if _, err := s.GetAccessKeyByToken(ctx, "tok-none"); !errors.Is(err, access.ErrKeyNotFound) {
		t.Fatalf("err = %v, want ErrKeyNotFound", err)
	}

	u, err := s.GetActiveUser(ctx, userID.String())
	if err != nil {
		t.Fatalf("GetActiveUser: %v", err)
	}
	u.IsActive = false
	s.PutUser(u)
	if _, err := s.GetActiveUser(ctx, userID.String()); !errors.Is(err, access.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound for inactive user", err)
	}
}

func TestListRoleGrants(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.PutRoleGrant(&access.RoleGrant{ID: id.NewRoleGrantID(), Group: "ops", ServiceRef: "articles", CanRead: true, IsActive: true})
	s.PutRoleGrant(&access.RoleGrant{ID: id.NewRoleGrantID(), Group: "ops", ServiceRef: "drafts", CanRead: true, IsActive: false})
	s.PutRoleGrant(&access.RoleGrant{ID: id.NewRoleGrantID(), Group: "sales", ServiceRef: "orders", CanRead: true, IsActive: true})

	active := true
	grants, err := s.ListRoleGrants(ctx, access.ListFilter{Group: "ops", IsActive: &active})
	if err != nil {
		t.Fatalf("ListRoleGrants: %v", err)
	}
	if len(grants) != 1 || grants[0].ServiceRef != "articles" {
		t.Fatalf("grants = %v, want the single active ops grant", grants)
	}
}

func TestAuditStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()
	for i, kind := range []string{audit.KindCreate, audit.KindUpdate, audit.KindDelete} {
		e := &audit.Entry{
			ID:         id.NewAuditLogID(),
			Collection: "articles",
			Kind:       kind,
			ActorID:    "usr_1",
			CreatedAt:  now.Add(time.Duration(i-2) * time.Hour),
		}
		if err := s.CreateAuditLog(ctx, e); err != nil {
			t.Fatalf("CreateAuditLog: %v", err)
		}
	}

	n, err := s.CountAuditLogs(ctx, &audit.QueryFilter{Collection: "articles"})
	if err != nil {
		t.Fatalf("CountAuditLogs: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	logs, err := s.ListAuditLogs(ctx, &audit.QueryFilter{Kind: audit.KindUpdate})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(logs))
	}

	purged, err := s.PurgeAuditLogs(ctx, now.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("PurgeAuditLogs: %v", err)
	}
	if purged != 2 {
		t.Fatalf("purged = %d, want 2", purged)
	}
}
