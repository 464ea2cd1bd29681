package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"trade-envelope/pkg/envelope"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Envelope (ENV) ----

func ErrDecode(err error) *AppError {
	return Wrap("ENV_001", "Malformed TradeInfo ciphertext", http.StatusBadRequest, err)
}

func ErrInvalidVariant(err error) *AppError {
	return Wrap("ENV_002", "Unknown checksum variant", http.StatusBadRequest, err)
}

func ErrTypeMismatch(err error) *AppError {
	return Wrap("ENV_003", "Payload shape does not match checksum variant", http.StatusUnprocessableEntity, err)
}

func ErrInvalidCredentials(err error) *AppError {
	return Wrap("ENV_004", "Invalid HashKey or HashIV", http.StatusBadRequest, err)
}

// FromEnvelope maps an error returned by the envelope engine.
func FromEnvelope(err error) *AppError {
	switch {
	case errors.Is(err, envelope.ErrDecode):
		return ErrDecode(err)
	case errors.Is(err, envelope.ErrInvalidVariant):
		return ErrInvalidVariant(err)
	case errors.Is(err, envelope.ErrTypeMismatch):
		return ErrTypeMismatch(err)
	case errors.Is(err, envelope.ErrKeySize):
		return ErrInvalidCredentials(err)
	default:
		return InternalError(err)
	}
}

// ---- Security (SEC) ----

func ErrChecksumMismatch() *AppError {
	return New("SEC_001", "TradeSha verification failed", http.StatusUnauthorized)
}

func ErrNotificationReplayed() *AppError {
	return New("SEC_002", "Notification has already been processed", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_002", "Token is not allowed to access this resource", http.StatusForbidden)
}

// ---- Merchant (MER) ----

func ErrNotFound(entity string) *AppError {
	return New("MER_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrMerchantSuspended() *AppError {
	return New("MER_002", "Merchant account is suspended", http.StatusForbidden)
}

func ErrMerchantExists() *AppError {
	return New("MER_003", "Gateway merchant ID already registered", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_002", "Credential encryption failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a REQ_001 request validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}

// ErrPayloadTooLarge returns a REQ_002 error for a body over the size limit.
func ErrPayloadTooLarge(err error) *AppError {
	return Wrap("REQ_002", "Request body too large", http.StatusRequestEntityTooLarge, err)
}
