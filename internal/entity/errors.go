package entity

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrMalformedRow         = errors.New("malformed row")
	ErrAlreadyExists        = errors.New("already exists")
	ErrEmailRequired        = errors.New("email is required")
	ErrTenantRequired       = errors.New("tenant is required")
	ErrStatusNameRequired   = errors.New("status name is required")
	ErrDefaultStatus        = errors.New("default status cannot be removed")
	ErrLeadAlreadyConverted = errors.New("lead already converted")
)
