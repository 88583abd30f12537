package handler

import (
	"log/slog"
	"storefront/app/domain"
	"storefront/app/handler/api/response"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	productUsecase domain.ProductUsecase
	validator      *validator.Validate
}

func NewProductHandler(productUsecase domain.ProductUsecase, validator *validator.Validate) *ProductHandler {
	return &ProductHandler{productUsecase, validator}
}

func (h *ProductHandler) GetAll(c *fiber.Ctx) error {
	products, err := h.productUsecase.GetAll(c.Context())
	if err != nil {
		slog.ErrorContext(c.Context(), "[productHandler] GetAll", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(products))
}

func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	id, ok := productID(c, "GetByID")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	product, err := h.productUsecase.GetByID(c.Context(), id)
	if err != nil {
		slog.ErrorContext(c.Context(), "[productHandler] GetByID", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(product))
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	req, ok := h.parseRequest(c, "Create")
	if !ok {
		return nil
	}

	product, err := h.productUsecase.Create(c.Context(), req)
	if err != nil {
		slog.ErrorContext(c.Context(), "[productHandler] Create", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusCreated).JSON(response.Success(product))
}

// Update is the entry point of the price change flow. A 503 means the broker
// refused the event and the product row was left as it was.
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, ok := productID(c, "Update")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	req, ok := h.parseRequest(c, "Update")
	if !ok {
		return nil
	}

	if err := h.productUsecase.Update(c.Context(), id, req); err != nil {
		slog.ErrorContext(c.Context(), "[productHandler] Update", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, ok := productID(c, "Delete")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.productUsecase.Delete(c.Context(), id); err != nil {
		slog.ErrorContext(c.Context(), "[productHandler] Delete", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// parseRequest writes the 400 response itself and reports false when the body
// is unusable.
func (h *ProductHandler) parseRequest(c *fiber.Ctx, method string) (domain.ProductRequest, bool) {
	var req domain.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(c.Context(), "[productHandler] "+method, "bodyParser", err)
		_ = c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
		return req, false
	}

	if err := h.validator.Struct(req); err != nil {
		slog.ErrorContext(c.Context(), "[productHandler] "+method, "validation", err)
		_ = c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrValidation))
		return req, false
	}
	return req, true
}

func productID(c *fiber.Ctx, method string) (int64, bool) {
	idStr := c.Params("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		slog.ErrorContext(c.Context(), "[productHandler] "+method, "parseInt:"+idStr, err)
		return 0, false
	}
	return id, true
}
