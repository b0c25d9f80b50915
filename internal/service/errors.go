package service

import "errors"

// Ошибки сервиса планирования. Проверяются через errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrSchedulingConflict = errors.New("scheduling conflict")
	ErrAlreadyBooked      = errors.New("already booked")
)
