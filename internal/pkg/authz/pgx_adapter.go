package authz

import (
	"context"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
	"go.uber.org/atomic"
)

const (
	defaultTableName = "identity_casbin_rules"
	fieldCount       = 6

	selectSQL     = "select ptype, v0, v1, v2, v3, v4, v5 from %s order by id"
	insertSQL     = "insert into %s (ptype, v0, v1, v2, v3, v4, v5) values ($1, $2, $3, $4, $5, $6, $7) on conflict do nothing"
	deleteAllSQL  = "delete from %s"
	deleteRuleSQL = "delete from %s where ptype = $1 and v0 = $2 and v1 = $3 and v2 = $4 and v3 = $5 and v4 = $6 and v5 = $7"
)

// Querier is the pgx surface the adapter needs; *pgxpool.Pool satisfies it.
type Querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgxAdapter is a casbin persist.Adapter over a single rules table with the
// columns id, ptype and v0..v5.
type PgxAdapter struct {
	db     Querier
	table  string
	loaded *atomic.Int64
}

var _ persist.Adapter = (*PgxAdapter)(nil)

// NewPgxAdapter returns an adapter over table, or identity_casbin_rules when
// table is empty.
func NewPgxAdapter(db Querier, table string) *PgxAdapter {
	if strings.TrimSpace(table) == "" {
		table = defaultTableName
	}
	return &PgxAdapter{db: db, table: lo.SnakeCase(table), loaded: atomic.NewInt64(0)}
}

// Loaded returns the number of rules read by the last LoadPolicy.
func (a *PgxAdapter) Loaded() int {
	return int(a.loaded.Load())
}

// LoadPolicy reads every rule into m.
func (a *PgxAdapter) LoadPolicy(m model.Model) error {
	ctx := context.Background()

	rows, err := a.db.Query(ctx, fmt.Sprintf(selectSQL, a.table))
	if err != nil {
		return err
	}
	defer rows.Close()

	var n int64
	for rows.Next() {
		var ptype string
		vs := make([]string, fieldCount)
		if err := rows.Scan(&ptype, &vs[0], &vs[1], &vs[2], &vs[3], &vs[4], &vs[5]); err != nil {
			return err
		}

		line := append([]string{ptype}, trimRule(vs)...)
		if err := persist.LoadPolicyArray(line, m); err != nil {
			return err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	a.loaded.Store(n)
	return nil
}

// SavePolicy replaces the table content with the rules in m.
func (a *PgxAdapter) SavePolicy(m model.Model) error {
	ctx := context.Background()

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(deleteAllSQL, a.table)); err != nil {
		return err
	}

	for _, sec := range []string{"p", "g"} {
		for ptype, ast := range m[sec] {
			for _, rule := range ast.Policy {
				if _, err := tx.Exec(ctx, fmt.Sprintf(insertSQL, a.table), ruleArgs(ptype, rule)...); err != nil {
					return err
				}
			}
		}
	}

	return tx.Commit(ctx)
}

// AddPolicy inserts one rule; an existing identical rule is left as is.
func (a *PgxAdapter) AddPolicy(_ string, ptype string, rule []string) error {
	_, err := a.db.Exec(context.Background(), fmt.Sprintf(insertSQL, a.table), ruleArgs(ptype, rule)...)
	return err
}

// RemovePolicy deletes one rule.
func (a *PgxAdapter) RemovePolicy(_ string, ptype string, rule []string) error {
	_, err := a.db.Exec(context.Background(), fmt.Sprintf(deleteRuleSQL, a.table), ruleArgs(ptype, rule)...)
	return err
}

// RemoveFilteredPolicy deletes the rules whose fields from fieldIndex match
// fieldValues; empty values match anything.
func (a *PgxAdapter) RemoveFilteredPolicy(_ string, ptype string, fieldIndex int, fieldValues ...string) error {
	if fieldIndex < 0 || fieldIndex+len(fieldValues) > fieldCount {
		return fmt.Errorf("authz: filter out of range: index %d with %d values", fieldIndex, len(fieldValues))
	}

	where := []string{"ptype = $1"}
	args := []any{ptype}
	for i, v := range fieldValues {
		if v == "" {
			continue
		}
		args = append(args, v)
		where = append(where, fmt.Sprintf("v%d = $%d", fieldIndex+i, len(args)))
	}

	sql := fmt.Sprintf("delete from %s where %s", a.table, strings.Join(where, " and "))
	_, err := a.db.Exec(context.Background(), sql, args...)
	return err
}

func ruleArgs(ptype string, rule []string) []any {
	vs := make([]string, fieldCount)
	copy(vs, rule)
	return append([]any{ptype}, lo.ToAnySlice(vs)...)
}

// trimRule drops trailing empty fields so casbin sees the rule's real arity.
func trimRule(vs []string) []string {
	end := len(vs)
	for end > 0 && vs[end-1] == "" {
		end--
	}
	return vs[:end]
}
