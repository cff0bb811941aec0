package keeper_test

import (
	"context"
	"testing"

	"github.com/xraph/keeper"
	"github.com/xraph/keeper/id"
)

func TestLoadReplacesCollection(t *testing.T) {
	w := newTestEngine(t)
	ctx := context.Background()

	saveOne(t, w, tokEditor, "articles", keeper.Record{"title": "stale"})

	keep := id.NewRecordID().String()
	res := w.eng.Load(ctx, &keeper.Request{
		Collection: "articles",
		Credential: cred(tokAdmin),
		Records: []keeper.Record{
			{"id": keep, "title": "seeded"},
			{"title": "minted"},
		},
	})
	if !res.OK() {
		t.Fatalf("load: %s: %s", res.Status, res.Message)
	}
	if res.DocCount != 2 {
		t.Fatalf("docCount = %d, want 2", res.DocCount)
	}

	n, err := w.store.Count(ctx, "articles", keeper.Filter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("stored = %d, want 2", n)
	}

	seeded, err := w.store.FindOne(ctx, "articles", keeper.Filter{"id": keep})
	if err != nil {
		t.Fatalf("seeded doc missing: %v", err)
	}
	if seeded["createdBy"] != w.admin.String() {
		t.Fatalf("createdBy = %v, want %s", seeded["createdBy"], w.admin)
	}
}

func TestLoadAdminOnly(t *testing.T) {
	w := newTestEngine(t)

	res := w.eng.Load(context.Background(), &keeper.Request{
		Collection: "articles",
		Credential: cred(tokEditor),
		Records:    []keeper.Record{{"title": "x"}},
	})
	if res.Status != keeper.StatusUnauthorized {
		t.Fatalf("status = %s, want %s", res.Status, keeper.StatusUnauthorized)
	}
}

func TestLoadBulkSizeCap(t *testing.T) {
	w := newTestEngine(t, keeper.WithConfig(func() keeper.Config {
		cfg := keeper.DefaultConfig()
		cfg.MaxBulkSize = 2
		return cfg
	}()))

	res := w.eng.Load(context.Background(), &keeper.Request{
		Collection: "articles",
		Credential: cred(tokAdmin),
		Records:    []keeper.Record{{"a": 1}, {"a": 2}, {"a": 3}},
	})
	if res.Status != keeper.StatusValidationError {
		t.Fatalf("status = %s, want %s", res.Status, keeper.StatusValidationError)
	}
}
