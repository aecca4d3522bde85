package http

import "errors"

var (
	ErrEmptyAuthorizationHeader = errors.New("authorization header is not set")
	ErrNotAuthenticated         = errors.New("request is not authenticated")
	ErrPrimaryDeviceRequired    = errors.New("operation requires the primary device")
)
