// Package errors holds the error taxonomy shared by the messaging core.
//
// ErrValidation and ErrTransport cover the durable path: a validation
// failure is never retried automatically, a transport failure is
// retryable by user action. ErrConnect, ErrConnectionLost and
// ErrNotConnected cover the best-effort live channel and are never fatal
// to the conversation.
package errors

import "fmt"

var (
	ErrValidation     = fmt.Errorf("validation failed")
	ErrTransport      = fmt.Errorf("transport failure")
	ErrConnect        = fmt.Errorf("channel handshake failed")
	ErrConnectionLost = fmt.Errorf("channel connection lost")
	ErrNotConnected   = fmt.Errorf("channel not connected")
	ErrNotFound       = fmt.Errorf("not found")

	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
)
