package services

import "errors"

var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrEmptyBill          = errors.New("table has no open bill")
	ErrDrinkNotSellable   = errors.New("drink is not configured for sale (no price or recipe)")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("record is still referenced")
)
