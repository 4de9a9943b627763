package handler

import (
	"inventrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

// InventoryHandler exposes the stock ledger
type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

// GetTransactions lists stock movements, newest first
// Query params: type, product, from_date, to_date (YYYY-MM-DD), page
// GET /api/v1/transactions
func (h *InventoryHandler) GetTransactions(c *fiber.Ctx) error {
	page, err := h.service.ListTransactions(c.UserContext(), service.TransactionQuery{
		Type:      c.Query("type"),
		ProductID: c.Query("product"),
		FromDate:  c.Query("from_date"),
		ToDate:    c.Query("to_date"),
		Page:      c.QueryInt("page", 1),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/transactions/:id
func (h *InventoryHandler) GetTransaction(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}
	tx, err := h.service.GetTransaction(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": tx})
}

// CreateTransaction applies a stock movement
// POST /api/v1/transactions
func (h *InventoryHandler) CreateTransaction(c *fiber.Ctx) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req service.MovementRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.service.RecordTransaction(c.UserContext(), &req, who)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Transaction recorded successfully", "data": result})
}

// DeleteTransaction reverses the movement's effect on stock
// DELETE /api/v1/transactions/:id
func (h *InventoryHandler) DeleteTransaction(c *fiber.Ctx) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	result, err := h.service.DeleteTransaction(c.UserContext(), id, who)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transaction deleted successfully", "data": result})
}
