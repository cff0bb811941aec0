package plugin

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

type recordingPlugin struct {
	name   string
	events []string
	err    error
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) OnBeforeSave(_ context.Context, _ any) error {
	p.events = append(p.events, "beforeSave")
	return p.err
}

func (p *recordingPlugin) OnAfterSave(_ context.Context, _, _ any) error {
	p.events = append(p.events, "afterSave")
	return p.err
}

func (p *recordingPlugin) OnBeforeDelete(_ context.Context, _ any) error {
	p.events = append(p.events, "beforeDelete")
	return p.err
}

func (p *recordingPlugin) OnAfterQuery(_ context.Context, _, _ any) error {
	p.events = append(p.events, "afterQuery")
	return p.err
}

func (p *recordingPlugin) OnShutdown(_ context.Context) error {
	p.events = append(p.events, "shutdown")
	return p.err
}

type saveOnlyPlugin struct {
	calls int
}

func (p *saveOnlyPlugin) Name() string { return "save-only" }

func (p *saveOnlyPlugin) OnBeforeSave(_ context.Context, _ any) error {
	p.calls++
	return nil
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(slog.Default())
	p := &recordingPlugin{name: "recorder"}
	r.Register(p)

	r.EmitBeforeSave(ctx, nil)
	r.EmitAfterSave(ctx, nil, nil)
	r.EmitBeforeDelete(ctx, nil)
	r.EmitAfterDelete(ctx, nil, nil) // not implemented; must be a no-op
	r.EmitAfterQuery(ctx, nil, nil)
	r.EmitShutdown(ctx)

	want := []string{"beforeSave", "afterSave", "beforeDelete", "afterQuery", "shutdown"}
	if len(p.events) != len(want) {
		t.Fatalf("events = %v, want %v", p.events, want)
	}
	for i, ev := range want {
		if p.events[i] != ev {
			t.Fatalf("events[%d] = %s, want %s", i, p.events[i], ev)
		}
	}
}

func TestRegistryOptIn(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(slog.Default())
	p := &saveOnlyPlugin{}
	r.Register(p)

	r.EmitBeforeSave(ctx, nil)
	r.EmitBeforeQuery(ctx, nil)
	r.EmitShutdown(ctx)

	if p.calls != 1 {
		t.Fatalf("calls = %d, want 1", p.calls)
	}
	if len(r.Plugins()) != 1 {
		t.Fatalf("plugins = %d, want 1", len(r.Plugins()))
	}
}

func TestRegistryHookErrorsAreSwallowed(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(slog.Default())
	failing := &recordingPlugin{name: "failing", err: errors.New("boom")}
	after := &saveOnlyPlugin{}
	r.Register(failing)
	r.Register(after)

	// A failing hook must not stop later plugins from being notified.
	r.EmitBeforeSave(ctx, nil)
	if after.calls != 1 {
		t.Fatalf("calls = %d, want 1", after.calls)
	}
}
