package internal

import "errors"

var ErrInvalidCode = errors.New("unacceptable code")
var ErrInvalidURL = errors.New("invalid redirect url")
var ErrCodeExists = errors.New("code already in use")
var ErrLinkNotFound = errors.New("link not found")
var ErrMissingParameter = errors.New("link requires a parameter")
