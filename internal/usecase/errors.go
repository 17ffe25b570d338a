package usecase

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindAuth       Kind = "AUTH_ERROR"
	KindForbidden  Kind = "FORBIDDEN"
	KindNotFound   Kind = "NOT_FOUND"
	KindGateway    Kind = "GATEWAY_ERROR"
	KindServer     Kind = "SERVER_ERROR"
)

type ErrValidation string

func (e ErrValidation) Error() string { return string(e) }

type ErrAuth string

func (e ErrAuth) Error() string { return string(e) }

type ErrForbidden string

func (e ErrForbidden) Error() string { return string(e) }

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

// GatewayError wraps a payment provider failure. It is always surfaced.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string { return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err) }

func (e *GatewayError) Unwrap() error { return e.Err }

// KindOf classifies err. Anything unrecognised is a server error.
func KindOf(err error) Kind {
	var (
		v  ErrValidation
		a  ErrAuth
		f  ErrForbidden
		nf ErrNotFound
		g  *GatewayError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &v):
		return KindValidation
	case errors.As(err, &a):
		return KindAuth
	case errors.As(err, &f):
		return KindForbidden
	case errors.As(err, &nf):
		return KindNotFound
	case errors.As(err, &g):
		return KindGateway
	}
	return KindServer
}
