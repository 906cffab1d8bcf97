package monitor

import "errors"

var (
	ErrInvalidService       = errors.New("invalid service")
	ErrDuplicateService     = errors.New("service already exists")
	ErrServiceNotFound      = errors.New("service not found")
	ErrUnknownChannel       = errors.New("unknown notification channel")
	ErrChannelNotConfigured = errors.New("notification channel not configured")
)
