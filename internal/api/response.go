// Package api exposes the decision engine and backtester over HTTP.
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "pivot-trader/internal/errors"
)

// APIResponse represents standard API response.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// DataResponse writes API response with status and data.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse writes bad request error.
func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// AppErrorResponse maps an error to its HTTP status and writes it.
func AppErrorResponse(c echo.Context, err error) error {
	appErr := classify(err)
	if appErr.Status >= http.StatusInternalServerError {
		return DataResponse(c, appErr.Status, "Something went wrong")
	}
	return DataResponse(c, appErr.Status, []*AppError{appErr})
}

// classify maps domain errors onto HTTP errors.
func classify(err error) *AppError {
	var appErr *AppError
	if apperrors.As(err, &appErr) {
		return appErr
	}

	var pre *apperrors.PreconditionError
	switch {
	case apperrors.As(err, &pre):
		return NewAppError("ERR_INVALID_CANDLES", pre.Field, err.Error(), http.StatusUnprocessableEntity).withErr(err)
	case apperrors.Is(err, apperrors.ErrInvalidHorizon):
		return NewAppError("ERR_INVALID_HORIZON", "horizon", err.Error(), http.StatusBadRequest).withErr(err)
	case apperrors.Is(err, apperrors.ErrInsufficientData):
		return NewAppError("ERR_INSUFFICIENT_DATA", "candles", err.Error(), http.StatusUnprocessableEntity).withErr(err)
	case apperrors.Is(err, apperrors.ErrInvalidCandles):
		return NewAppError("ERR_INVALID_CANDLES", "candles", err.Error(), http.StatusUnprocessableEntity).withErr(err)
	case apperrors.Is(err, apperrors.ErrInputValidation):
		return NewAppError("ERR_BAD_REQUEST", "", err.Error(), http.StatusBadRequest).withErr(err)
	case apperrors.Is(err, apperrors.ErrDataNotFound):
		return NewAppError("ERR_NOT_FOUND", "symbol", err.Error(), http.StatusNotFound).withErr(err)
	}
	return NewAppError("ERR_INTERNAL", "", "internal error", http.StatusInternalServerError).withErr(err)
}

func (e *AppError) withErr(err error) *AppError {
	e.Err = err
	return e
}
