package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidRequest = errors.New("invalid request")
	ErrValidation     = errors.New("validation error")
	ErrPublish        = errors.New("publish failed")
	ErrBasketStore    = errors.New("basket store unavailable")
	ErrCorruptBasket  = errors.New("basket data corrupt")
	ErrInternal       = errors.New("internal server error")
)
