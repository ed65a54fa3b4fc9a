package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// Purchase flow
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrMalformedMetadata  = errors.New("malformed payment metadata")
	ErrMissingSignature   = errors.New("missing webhook signature")
	ErrAuthenticity       = errors.New("webhook signature verification failed")
	ErrStorageUnavailable = errors.New("purchase storage unavailable")
	ErrGateway            = errors.New("payment gateway error")

	// Content catalog
	ErrContentNotFound    = errors.New("content not found")
	ErrCatalogUnavailable = errors.New("content catalog unavailable")
)
