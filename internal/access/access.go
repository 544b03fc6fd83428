// Package access holds the backoffice RBAC policy, evaluated with casbin.
package access

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"vowly/pkg/requestcontext"
)

//go:embed model.conf
var modelText string

const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleCustomer   = "customer"
)

const (
	ObjectActivity = "activity"

	ActionReadAll = "read_all"
	ActionReadOwn = "read_own"
)

// Scope is how much of the activity log a principal may read.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwn
	ScopeAll
)

type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load access model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, fmt.Errorf("seed access policies: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// Allowed reports whether any of the principal's roles grants act on obj.
func (a *Authorizer) Allowed(p requestcontext.Principal, obj, act string) (bool, error) {
	for _, role := range p.Roles {
		ok, err := a.enforcer.Enforce(subject(role), obj, act)
		if err != nil {
			return false, fmt.Errorf("enforce %s %s: %w", obj, act, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ActivityScope resolves the widest activity read permission held.
func (a *Authorizer) ActivityScope(p requestcontext.Principal) (Scope, error) {
	all, err := a.Allowed(p, ObjectActivity, ActionReadAll)
	if err != nil {
		return ScopeNone, err
	}
	if all {
		return ScopeAll, nil
	}
	own, err := a.Allowed(p, ObjectActivity, ActionReadOwn)
	if err != nil {
		return ScopeNone, err
	}
	if own {
		return ScopeOwn, nil
	}
	return ScopeNone, nil
}

func subject(role string) string {
	return "role:" + strings.ToLower(strings.TrimSpace(role))
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{subject(RoleAdmin), ObjectActivity, ActionReadAll},
		{subject(RoleAdmin), ObjectActivity, ActionReadOwn},
		{subject(RoleCustomer), ObjectActivity, ActionReadOwn},
	}
	if _, err := enforcer.AddPolicies(policies); err != nil {
		return err
	}
	// Superadmins inherit every admin permission.
	if _, err := enforcer.AddGroupingPolicy(subject(RoleSuperadmin), subject(RoleAdmin)); err != nil {
		return err
	}
	return nil
}
