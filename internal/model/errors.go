package model

import "errors"

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("no such resource")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAlreadyInState   = errors.New("already in requested state")
	ErrParse            = errors.New("cannot parse generated result")
	ErrStore            = errors.New("store failure")
)
