package models

import "errors"

// ErrInvalidRequest marks a request that is missing required fields.
var ErrInvalidRequest = errors.New("invalid request")
