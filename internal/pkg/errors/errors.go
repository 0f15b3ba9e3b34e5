package errors

import "errors"

var (
	ErrInvalid  = errors.New("invalid request")
	ErrNotFound = errors.New("challenge not found")
	ErrExpired  = errors.New("challenge expired")
	ErrMismatch = errors.New("challenge code mismatch")
	ErrUpstream = errors.New("upstream failure")
	ErrConfig   = errors.New("configuration error")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsExpired(err error) bool {
	return errors.Is(err, ErrExpired)
}

func IsMismatch(err error) bool {
	return errors.Is(err, ErrMismatch)
}
