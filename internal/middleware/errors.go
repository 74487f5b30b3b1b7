package middleware

import "errors"

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)
