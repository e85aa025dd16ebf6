package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrSubscriptionExpired = errors.New("subscription expired")
	ErrInsufficientPages   = errors.New("insufficient pages")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrProviderFailure     = errors.New("provider failure")
	ErrDocumentNotReady    = errors.New("document not ready")
)
