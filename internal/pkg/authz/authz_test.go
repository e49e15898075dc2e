package authz

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestNewStatic_DefaultPolicies(t *testing.T) {
	e, err := NewStatic(DefaultPolicies...)
	if err != nil {
		t.Fatalf("new static: %v", err)
	}

	tests := []struct {
		sub, obj, act string
		want          bool
	}{
		{"USER", ObjectAccountPassword, ActionUpdate, true},
		{"USER", ObjectAccountPassword, "delete", false},
		{"USER", "account:profile", ActionUpdate, false},
		{"ADMIN", "anything", "any", true},
		{"GUEST", ObjectAccountPassword, ActionUpdate, false},
	}

	for _, tt := range tests {
		got, err := e.Enforce(tt.sub, tt.obj, tt.act)
		if err != nil {
			t.Fatalf("enforce(%s, %s, %s): %v", tt.sub, tt.obj, tt.act, err)
		}
		if got != tt.want {
			t.Fatalf("enforce(%s, %s, %s) = %v, want %v", tt.sub, tt.obj, tt.act, got, tt.want)
		}
	}
}

func TestNewStatic_Empty(t *testing.T) {
	e, err := NewStatic()
	if err != nil {
		t.Fatalf("new static: %v", err)
	}
	if ok, _ := e.Enforce("ADMIN", "x", "y"); ok {
		t.Fatalf("an empty enforcer must deny")
	}
}

func TestTrimRule(t *testing.T) {
	got := trimRule([]string{"USER", "account:password", "update", "", "", ""})
	if !slices.Equal(got, []string{"USER", "account:password", "update"}) {
		t.Fatalf("trim = %v", got)
	}
	if got := trimRule([]string{"", ""}); len(got) != 0 {
		t.Fatalf("trim all empty = %v", got)
	}
}

func TestRuleArgs_PadsToSixFields(t *testing.T) {
	args := ruleArgs("p", []string{"USER", "obj", "act"})
	if len(args) != 7 {
		t.Fatalf("len = %d", len(args))
	}
	if args[0] != "p" || args[1] != "USER" || args[6] != "" {
		t.Fatalf("args = %v", args)
	}
}

const rulesTable = `
create table identity_casbin_rules (
	id bigserial primary key,
	ptype text not null,
	v0 text not null default '',
	v1 text not null default '',
	v2 text not null default '',
	v3 text not null default '',
	v4 text not null default '',
	v5 text not null default '',
	unique (ptype, v0, v1, v2, v3, v4, v5)
)`

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("authz"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, rulesTable); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return pool
}

func TestPgxAdapter(t *testing.T) {
	pool := newTestPool(t)
	adapter := NewPgxAdapter(pool, "")

	if _, err := New(adapter); !errors.Is(err, ErrNoPolicies) {
		t.Fatalf("empty table err = %v, want ErrNoPolicies", err)
	}

	for _, p := range DefaultPolicies {
		if err := adapter.AddPolicy("p", "p", []string{p.Subject, p.Object, p.Action}); err != nil {
			t.Fatalf("add policy: %v", err)
		}
	}
	// duplicates are ignored
	if err := adapter.AddPolicy("p", "p", []string{"USER", ObjectAccountPassword, ActionUpdate}); err != nil {
		t.Fatalf("add duplicate: %v", err)
	}

	e, err := New(adapter)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if adapter.Loaded() != 2 {
		t.Fatalf("loaded = %d, want 2", adapter.Loaded())
	}
	if ok, _ := e.Enforce("USER", ObjectAccountPassword, ActionUpdate); !ok {
		t.Fatalf("USER should update account:password")
	}

	if err := adapter.RemoveFilteredPolicy("p", "p", 0, "ADMIN"); err != nil {
		t.Fatalf("remove filtered: %v", err)
	}
	if err := adapter.RemovePolicy("p", "p", []string{"USER", ObjectAccountPassword, ActionUpdate}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := New(adapter); !errors.Is(err, ErrNoPolicies) {
		t.Fatalf("after removal err = %v, want ErrNoPolicies", err)
	}

	if err := adapter.RemoveFilteredPolicy("p", "p", 5, "a", "b"); err == nil {
		t.Fatalf("out of range filter should fail")
	}
}
