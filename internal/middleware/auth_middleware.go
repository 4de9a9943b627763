package middleware

import (
	"context"
	"errors"
	"strings"

	"inventrack/internal/service"
	"inventrack/pkg/jwt"
	"inventrack/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Keys RequireAuth stores in c.Locals
const (
	LocalUserID     = "user_id"
	LocalUserEmail  = "user_email"
	LocalUserName   = "user_name"
	LocalPrivileges = "user_privileges"
)

// Authenticator resolves a bearer token to fresh claims
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

// RequireAuth validates the bearer token and sets user info in context
func RequireAuth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := auth.Authenticate(c.UserContext(), parts[1])
		switch {
		case err == nil:
		case errors.Is(err, service.ErrSessionReplaced):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Session expired (logged in on another device)"})
		case errors.Is(err, service.ErrUserInactive):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User account is inactive"})
		case errors.Is(err, service.ErrStorage):
			logger.FromFiber(c).Error("authenticate", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
		default:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals(LocalUserID, claims.UserID.String())
		c.Locals(LocalUserEmail, claims.Email)
		c.Locals(LocalUserName, claims.Name)
		c.Locals(LocalPrivileges, claims.Privileges)

		return c.Next()
	}
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(LocalPrivileges).([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, p := range privileges {
			if p == requiredPrivilege {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires '" + requiredPrivilege + "' privilege",
		})
	}
}

// RequireAnyPrivilege checks if the user has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(LocalPrivileges).([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, userPriv := range privileges {
			for _, reqPriv := range requiredPrivileges {
				if userPriv == reqPriv {
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(requiredPrivileges, ", ") + " privileges",
		})
	}
}
