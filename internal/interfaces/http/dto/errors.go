package dto

import (
	"errors"
	"net/http"

	"github.com/bizdocs/backend/internal/domain/finance"
	"github.com/bizdocs/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeInvalidTransition = "ERR_INVALID_TRANSITION"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeBodyTooLarge = "ERR_BODY_TOO_LARGE"
)

// Gateway error codes
const (
	ErrCodeGatewayUnavailable   = "ERR_GATEWAY_UNAVAILABLE"
	ErrCodeGatewayRejected      = "ERR_GATEWAY_REJECTED"
	ErrCodeGatewaySignature     = "ERR_GATEWAY_SIGNATURE"
	ErrCodeGatewayNotConfigured = "ERR_GATEWAY_NOT_CONFIGURED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeBodyTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeGatewayUnavailable:   http.StatusServiceUnavailable,
	ErrCodeGatewayRejected:      http.StatusPaymentRequired,
	ErrCodeGatewaySignature:     http.StatusUnauthorized,
	ErrCodeGatewayNotConfigured: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// kindErrorCode maps a domain error kind to its category code.
var kindErrorCode = map[shared.ErrorKind]string{
	shared.KindValidation:        ErrCodeValidation,
	shared.KindInvalidState:      ErrCodeInvalidState,
	shared.KindInvalidTransition: ErrCodeInvalidTransition,
	shared.KindNotFound:          ErrCodeNotFound,
	shared.KindConflict:          ErrCodeConcurrencyConflict,
	shared.KindDuplicate:         ErrCodeAlreadyExists,
}

// MappedError is the HTTP rendering of an application error.
type MappedError struct {
	Status int
	Info   ErrorInfo
}

// MapError classifies err into a status and error body. Domain errors keep
// their own code in details["reason"] so clients can branch on it.
func MapError(err error) MappedError {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code, ok := kindErrorCode[domainErr.Kind]
		if !ok {
			code = ErrCodeInvalidState
		}
		details := make(map[string]string, len(domainErr.Details)+1)
		for k, v := range domainErr.Details {
			details[k] = v
		}
		if domainErr.Code != "" && domainErr.Code != code {
			details["reason"] = domainErr.Code
		}
		if len(details) == 0 {
			details = nil
		}
		return MappedError{
			Status: GetHTTPStatus(code),
			Info:   ErrorInfo{Code: code, Message: domainErr.Message, Details: details},
		}
	}

	if gwErr, ok := finance.AsGatewayError(err); ok {
		code := ErrCodeGatewayRejected
		switch {
		case errors.Is(err, finance.ErrGatewayInvalidSignature):
			code = ErrCodeGatewaySignature
		case errors.Is(err, finance.ErrGatewayNotConfigured):
			code = ErrCodeGatewayNotConfigured
		case gwErr.Retryable:
			code = ErrCodeGatewayUnavailable
		}
		var details map[string]string
		if gwErr.Code != "" {
			details = map[string]string{"reason": gwErr.Code}
		}
		return MappedError{
			Status: GetHTTPStatus(code),
			Info:   ErrorInfo{Code: code, Message: gwErr.Error(), Details: details},
		}
	}

	return MappedError{
		Status: http.StatusInternalServerError,
		Info:   ErrorInfo{Code: ErrCodeInternal, Message: "An unexpected error occurred"},
	}
}
