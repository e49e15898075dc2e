// Package authz decides whether a role may perform an action on an object,
// using a casbin RBAC model whose policies live in postgres.
package authz

import (
	"errors"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/samber/lo"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

const (
	ObjectAccountPassword = "account:password"
	ActionUpdate          = "update"
	Wildcard              = "*"
)

// ErrNoPolicies is returned by New when the adapter loaded nothing.
var ErrNoPolicies = errors.New("authz: no policies loaded")

// Policy is one allow rule.
type Policy struct {
	Subject string
	Object  string
	Action  string
}

// DefaultPolicies are seeded by the schema and used when the table is empty.
var DefaultPolicies = []Policy{
	{Subject: "USER", Object: ObjectAccountPassword, Action: ActionUpdate},
	{Subject: "ADMIN", Object: Wildcard, Action: Wildcard},
}

// Authorizer is the subset of *casbin.Enforcer callers need.
type Authorizer interface {
	Enforce(rvals ...any) (bool, error)
}

var _ Authorizer = (*casbin.Enforcer)(nil)

type counter interface {
	Loaded() int
}

// New builds an enforcer over adapter. Adapters that report how many rules
// they loaded fail with ErrNoPolicies when that count is zero.
func New(adapter persist.Adapter) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}

	if c, ok := adapter.(counter); ok && c.Loaded() == 0 {
		return nil, ErrNoPolicies
	}

	return e, nil
}

// NewStatic builds an in-memory enforcer holding policies.
func NewStatic(policies ...Policy) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	rules := lo.Map(policies, func(p Policy, _ int) []string {
		return []string{p.Subject, p.Object, p.Action}
	})
	if len(rules) == 0 {
		return e, nil
	}

	if _, err := e.AddPolicies(rules); err != nil {
		return nil, err
	}

	return e, nil
}
