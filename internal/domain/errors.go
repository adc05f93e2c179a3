package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidPreferences  = errors.New("invalid preferences")
	ErrUnknownOperation    = errors.New("unknown operation type")
	ErrOperationTerminal   = errors.New("operation already terminal")
	ErrAlreadyInFlight     = errors.New("operation already in flight")
	ErrAlreadyGenerated    = errors.New("reflection already generated this week")
	ErrAutoGenerateOff     = errors.New("automatic generation disabled")
	ErrProviderUnavailable = errors.New("provider unavailable")
)
