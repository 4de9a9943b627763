package handler

import (
	"inventrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

type RoleHandler struct {
	userService service.UserService
}

func NewRoleHandler(userService service.UserService) *RoleHandler {
	return &RoleHandler{userService: userService}
}

// GetRoles returns all available roles with their default privileges
// GET /api/v1/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	roles, err := h.userService.ListRoles(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": roles})
}

// GetPrivileges returns every privilege a user can be granted
// GET /api/v1/privileges
func (h *RoleHandler) GetPrivileges(c *fiber.Ctx) error {
	privileges, err := h.userService.ListPrivileges(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": privileges})
}
