package handler

import (
	"inventrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	service service.CatalogService
}

func NewProductHandler(s service.CatalogService) *ProductHandler {
	return &ProductHandler{service: s}
}

// GetProducts lists products with their category
// Query params: search, category, stock (low|out|available), page
// GET /api/v1/products
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	page, err := h.service.ListProducts(c.UserContext(), service.ProductQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Stock:    c.Query("stock"),
		Page:     c.QueryInt("page", 1),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetProduct returns the product with its transaction history
// GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": product})
}

// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req service.ProductRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	product, err := h.service.CreateProduct(c.UserContext(), &req, who)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created successfully", "data": product})
}

// PUT /api/v1/products/:id
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	var req service.ProductRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	product, err := h.service.UpdateProduct(c.UserContext(), id, &req, who)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated successfully", "data": product})
}

// UploadImage replaces the product image with the multipart "image" file
// POST /api/v1/products/:id/image
func (h *ProductHandler) UploadImage(c *fiber.Ctx) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	header, err := c.FormFile("image")
	if err != nil {
		return validationFailed(c, map[string]string{"image": "The image field is required."})
	}
	file, err := header.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer file.Close()

	product, err := h.service.SetProductImage(c.UserContext(), id, file, who)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product image updated successfully", "data": product})
}

// DeleteProduct also removes the product's transactions and image
// DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	if err := h.service.DeleteProduct(c.UserContext(), id, who); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}
