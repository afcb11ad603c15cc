package domain

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrForbidden            = errors.New("session belongs to another owner")
	ErrOwnerRequired        = errors.New("owner id is required")
	ErrNameRequired         = errors.New("session name is required")
	ErrInvalidContextWindow = errors.New("context window must be at least 1")
	ErrInvalidRole          = errors.New("message role must be system, user or assistant")
)
