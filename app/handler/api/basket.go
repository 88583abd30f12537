package handler

import (
	"log/slog"
	"storefront/app/domain"
	"storefront/app/handler/api/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type BasketHandler struct {
	basketUsecase domain.BasketUsecase
	validator     *validator.Validate
}

func NewBasketHandler(basketUsecase domain.BasketUsecase, validator *validator.Validate) *BasketHandler {
	return &BasketHandler{basketUsecase, validator}
}

func (h *BasketHandler) Get(c *fiber.Ctx) error {
	userName := c.Params("user_name")
	if userName == "" {
		slog.ErrorContext(c.Context(), "[basketHandler] Get", "userName", "missing")
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	cart, err := h.basketUsecase.GetBasket(c.Context(), userName)
	if err != nil {
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(domain.NewBasketResponse(cart)))
}

func (h *BasketHandler) Store(c *fiber.Ctx) error {
	var cart domain.ShoppingCart
	if err := c.BodyParser(&cart); err != nil {
		slog.ErrorContext(c.Context(), "[basketHandler] Store", "bodyParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.validator.Struct(cart); err != nil {
		slog.ErrorContext(c.Context(), "[basketHandler] Store", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrValidation))
	}

	stored, err := h.basketUsecase.UpdateBasket(c.Context(), cart)
	if err != nil {
		slog.ErrorContext(c.Context(), "[basketHandler] Store", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusCreated).JSON(response.Success(domain.NewBasketResponse(stored)))
}

func (h *BasketHandler) Delete(c *fiber.Ctx) error {
	userName := c.Params("user_name")
	if userName == "" {
		slog.ErrorContext(c.Context(), "[basketHandler] Delete", "userName", "missing")
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.basketUsecase.DeleteBasket(c.Context(), userName); err != nil {
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
