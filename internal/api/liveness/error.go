package liveness

import (
	"LivenessGolang/pkg/response"
	"net/http"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrBadRequest          = response.NewError(http.StatusBadRequest, "bad request")
	ErrInvalidFrame        = response.NewError(http.StatusBadRequest, "invalid frame")
	ErrSessionNotFound     = response.NewError(http.StatusNotFound, "liveness session not found")
	ErrInvalidToken        = response.NewError(http.StatusUnauthorized, "invalid liveness token")
	ErrTokenUnavailable    = response.NewError(http.StatusServiceUnavailable, "liveness tokens are not enabled")
)
