package handler

import (
	"inventrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CategoryHandler struct {
	service service.CatalogService
}

func NewCategoryHandler(s service.CatalogService) *CategoryHandler {
	return &CategoryHandler{service: s}
}

// GetCategories lists categories with product counts.
// Query params: search, page; all=true returns every category unpaginated
// GET /api/v1/categories
func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	if c.QueryBool("all") {
		categories, err := h.service.AllCategories(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"data": categories})
	}

	page, err := h.service.ListCategories(c.UserContext(), c.Query("search"), c.QueryInt("page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/categories/:id
func (h *CategoryHandler) GetCategory(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid category ID"})
	}
	category, err := h.service.GetCategory(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": category})
}

// POST /api/v1/categories
func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req service.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	category, err := h.service.CreateCategory(c.UserContext(), &req, who)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Category created successfully", "data": category})
}

// PUT /api/v1/categories/:id
func (h *CategoryHandler) UpdateCategory(c *fiber.Ctx) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid category ID"})
	}
	var req service.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	category, err := h.service.UpdateCategory(c.UserContext(), id, &req, who)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Category updated successfully", "data": category})
}

// DeleteCategory also removes the category's products and their transactions
// DELETE /api/v1/categories/:id
func (h *CategoryHandler) DeleteCategory(c *fiber.Ctx) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid category ID"})
	}

	if err := h.service.DeleteCategory(c.UserContext(), id, who); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Category deleted successfully"})
}
