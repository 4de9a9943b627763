package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"inventrack/internal/middleware"
	"inventrack/internal/service"
	"inventrack/pkg/jwt"
	"inventrack/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError maps service errors to the API error shapes
func respondError(c *fiber.Ctx, err error) error {
	var (
		insufficient *service.InsufficientStockError
		invalid      *service.ValidationError
	)
	switch {
	case errors.Is(err, errInvalidJSON):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message":   insufficient.Error(),
			"errors":    fiber.Map{"quantity": insufficient.Error()},
			"available": insufficient.Available,
		})
	case errors.As(err, &invalid):
		return validationFailed(c, invalid.Fields)
	case errors.Is(err, service.ErrInvalidInput):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error(), "errors": fiber.Map{}})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUserInactive), errors.Is(err, service.ErrSessionReplaced),
		errors.Is(err, jwt.ErrInvalidToken), errors.Is(err, jwt.ErrMissingToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	logger.FromFiber(c).Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

// validationFailed writes 422 with the first message as the summary line
func validationFailed(c *fiber.Ctx, fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	message := "The given data was invalid."
	if len(keys) > 0 {
		message = fields[keys[0]]
	}
	switch extra := len(keys) - 1; {
	case extra == 1:
		message += " (and 1 more error)"
	case extra > 1:
		message += fmt.Sprintf(" (and %d more errors)", extra)
	}

	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": message, "errors": fields})
}

var errInvalidJSON = errors.New("Invalid JSON")

// parseBody decodes the JSON body. A value of the wrong type is reported as
// a field error, anything else that is not JSON is a 400.
func parseBody(c *fiber.Ctx, out interface{}) error {
	err := c.BodyParser(out)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return service.NewValidationError(typeErr.Field,
			fmt.Sprintf("The %s field must be %s.", strings.ReplaceAll(typeErr.Field, "_", " "), kindLabel(typeErr.Type.Kind())))
	}
	return errInvalidJSON
}

func kindLabel(k reflect.Kind) string {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "true or false"
	case reflect.Slice, reflect.Array:
		return "an array"
	}
	return "valid"
}

// actor builds the acting user from what RequireAuth stored
func actor(c *fiber.Ctx) (service.Actor, bool) {
	raw, _ := c.Locals(middleware.LocalUserID).(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return service.Actor{}, false
	}
	name, _ := c.Locals(middleware.LocalUserName).(string)
	email, _ := c.Locals(middleware.LocalUserEmail).(string)
	return service.Actor{ID: id, Name: name, Email: email}, true
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}

func paramID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}
