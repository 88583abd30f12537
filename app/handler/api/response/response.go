package response

import (
	"errors"
	"storefront/app/domain"

	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Success(data any) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

func Error(err error) *Response {
	return &Response{
		Success: false,
		Error:   err.Error(),
	}
}

func FromError(err error) (int, *Response) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, Error(err)
	case errors.Is(err, domain.ErrInvalidRequest):
		return fiber.StatusBadRequest, Error(err)
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, Error(err)
	case errors.Is(err, domain.ErrBadRequest):
		return fiber.StatusBadRequest, Error(err)
	case errors.Is(err, domain.ErrPublish):
		return fiber.StatusServiceUnavailable, Error(domain.ErrPublish)
	case errors.Is(err, domain.ErrBasketStore):
		return fiber.StatusServiceUnavailable, Error(domain.ErrBasketStore)
	case errors.Is(err, domain.ErrCorruptBasket):
		return fiber.StatusInternalServerError, Error(domain.ErrCorruptBasket)
	default:
		return fiber.StatusInternalServerError, Error(domain.ErrInternal)
	}
}
