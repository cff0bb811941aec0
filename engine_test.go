package keeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/keeper"
	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/id"
	"github.com/xraph/keeper/store/memory"
)

// Tokens issued by newTestEngine.
const (
	tokAdmin   = "tok-admin"
	tokEditor  = "tok-editor"
	tokPlain   = "tok-plain"
	tokExpired = "tok-expired"
)

type testWorld struct {
	eng    *keeper.Engine
	store  *memory.Store
	admin  id.UserID
	editor id.UserID
	plain  id.UserID
}

// newTestEngine builds an engine over a seeded memory store: an admin,
// an editor whose group holds create/read/update grants on "articles",
// and a plain user with no grants. One access key per user, plus an
// expired key for the plain user.
func newTestEngine(t *testing.T, opts ...keeper.Option) *testWorld {
	t.Helper()
	s := memory.New()

	w := &testWorld{
		store:  s,
		admin:  id.NewUserID(),
		editor: id.NewUserID(),
		plain:  id.NewUserID(),
	}
	s.PutUser(&access.User{ID: w.admin, Username: "root", IsActive: true, IsAdmin: true})
	s.PutUser(&access.User{ID: w.editor, Username: "edna", IsActive: true, DefaultGroup: "editors"})
	s.PutUser(&access.User{ID: w.plain, Username: "pat", IsActive: true})

	future := time.Now().UTC().Add(time.Hour)
	s.PutAccessKey(&access.AccessKey{ID: id.NewAccessKeyID(), UserID: w.admin, Token: tokAdmin, ExpiresAt: future})
	s.PutAccessKey(&access.AccessKey{ID: id.NewAccessKeyID(), UserID: w.editor, Token: tokEditor, ExpiresAt: future})
	s.PutAccessKey(&access.AccessKey{ID: id.NewAccessKeyID(), UserID: w.plain, Token: tokPlain, ExpiresAt: future})
	s.PutAccessKey(&access.AccessKey{ID: id.NewAccessKeyID(), UserID: w.plain, Token: tokExpired,
		ExpiresAt: time.Now().UTC().Add(-time.Hour), CreatedAt: time.Now().UTC().Add(-2 * time.Hour)})

	s.PutRoleGrant(&access.RoleGrant{
		ID: id.NewRoleGrantID(), Group: "editors", ServiceRef: "articles",
		CanRead: true, CanCreate: true, CanUpdate: true, IsActive: true,
	})

	eng, err := keeper.NewEngine(append([]keeper.Option{keeper.WithStore(s)}, opts...)...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	w.eng = eng
	return w
}

func cred(token string) access.Credential {
	return access.Credential{Token: token}
}

// saveOne creates a single document, probing title uniqueness, and
// returns the stored record.
func saveOne(t *testing.T, w *testWorld, token, coll string, doc keeper.Record) keeper.Record {
	t.Helper()
	res := w.eng.Save(context.Background(), &keeper.Request{
		Collection:   coll,
		Credential:   cred(token),
		Records:      []keeper.Record{doc},
		ExistFilters: []keeper.Filter{{"title": doc["title"]}},
	})
	if !res.OK() {
		t.Fatalf("save: %s: %s", res.Status, res.Message)
	}
	if len(res.Records) != 1 {
		t.Fatalf("saved records = %d, want 1", len(res.Records))
	}
	return res.Records[0]
}

func TestNewEngineRequiresStore(t *testing.T) {
	if _, err := keeper.NewEngine(); err == nil {
		t.Fatal("expected error without a store")
	}
}

type shutdownPlugin struct {
	down bool
}

func (p *shutdownPlugin) Name() string { return "shutdown-probe" }

func (p *shutdownPlugin) OnShutdown(_ context.Context) error {
	p.down = true
	return nil
}

func TestEngineStopNotifiesPlugins(t *testing.T) {
	p := &shutdownPlugin{}
	w := newTestEngine(t, keeper.WithPlugin(p))

	if err := w.eng.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !p.down {
		t.Fatal("shutdown hook was not called")
	}
}
