package handler

import (
	"inventrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles user authentication. Logging in ends any other session.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	response, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(response)
}

// ChangePassword changes the caller's own password
// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req service.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.authService.ChangePassword(c.UserContext(), who.ID, &req); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// ValidateTokenRequest represents the validate token request body
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateToken handles JWT token validation
// POST /api/v1/auth/validate-token
func (h *AuthHandler) ValidateToken(c *fiber.Ctx) error {
	var req ValidateTokenRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Token is required"})
	}

	response, err := h.authService.ValidateToken(c.UserContext(), req.Token)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(response)
}
