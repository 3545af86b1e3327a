package middleware

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
)

// Casbin objects guarded by the router
const (
	ObjUsers      = "users"
	ObjCourses    = "courses"
	ObjInvoices   = "invoices"
	ObjPayments   = "payments"
	ObjExpenses   = "expenses"
	ObjRevenues   = "revenues"
	ObjStatistics = "statistics"
	ObjAudit      = "audit"
)

// Casbin actions
const (
	ActRead   = "read"
	ActCreate = "create"
	ActManage = "manage"
	ActRefund = "refund"
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

// defaultPolicies lets USER read and create its own courses, invoices and
// payments. ADMIN inherits USER and holds every action on every object.
var defaultPolicies = [][]string{
	{string(model.RoleUser), ObjCourses, ActRead},
	{string(model.RoleUser), ObjCourses, ActCreate},
	{string(model.RoleUser), ObjInvoices, ActRead},
	{string(model.RoleUser), ObjPayments, ActRead},
	{string(model.RoleUser), ObjPayments, ActCreate},
	{string(model.RoleAdmin), "*", "*"},
}

// RBAC evaluates route guards against the in-memory casbin policy
type RBAC struct {
	enforcer *casbin.Enforcer
}

func NewRBAC() (*RBAC, error) {
	m, err := casbinmodel.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rbac model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	if _, err := e.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	if _, err := e.AddGroupingPolicy(string(model.RoleAdmin), string(model.RoleUser)); err != nil {
		return nil, fmt.Errorf("failed to load role inheritance: %w", err)
	}

	return &RBAC{enforcer: e}, nil
}

// Allowed reports whether role may perform act on obj
func (r *RBAC) Allowed(role, obj, act string) (bool, error) {
	return r.enforcer.Enforce(role, obj, act)
}

// Guard must run after AuthMiddleware.Required
func (r *RBAC) Guard(obj, act string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := GetUserRole(c)
		if !ok {
			return response.Unauthorized(c, "Authentication required")
		}

		allowed, err := r.Allowed(role, obj, act)
		if err != nil {
			logger.FromFiber(c).Error().Err(err).Str("role", role).Msg("policy evaluation failed")
			return response.InternalServerError(c, "")
		}
		if !allowed {
			return response.Forbidden(c, "Insufficient permissions")
		}

		return c.Next()
	}
}
