package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRBACPolicies(t *testing.T) {
	rbac, err := NewRBAC()
	require.NoError(t, err)

	user := string(model.RoleUser)
	admin := string(model.RoleAdmin)

	cases := []struct {
		role, obj, act string
		want           bool
	}{
		{user, ObjCourses, ActRead, true},
		{user, ObjPayments, ActCreate, true},
		{user, ObjPayments, ActRefund, false},
		{user, ObjExpenses, ActManage, false},
		{user, ObjStatistics, ActRead, false},
		{admin, ObjPayments, ActRefund, true},
		{admin, ObjExpenses, ActManage, true},
		{admin, ObjCourses, ActRead, true},
		{"GUEST", ObjCourses, ActRead, false},
	}

	for _, tc := range cases {
		got, err := rbac.Allowed(tc.role, tc.obj, tc.act)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s %s %s", tc.role, tc.obj, tc.act)
	}
}

func TestGuard(t *testing.T) {
	rbac, err := NewRBAC()
	require.NoError(t, err)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role := c.Get("X-Test-Role"); role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Get("/expenses", rbac.Guard(ObjExpenses, ActManage), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/expenses", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/expenses", nil)
	req.Header.Set("X-Test-Role", "USER")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/expenses", nil)
	req.Header.Set("X-Test-Role", "ADMIN")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
