package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
)

type ErrorCode string

const (
	CodeFileNotFound ErrorCode = "FILE_NOT_FOUND"
	CodeParse        ErrorCode = "PARSE_ERROR"
	CodeSchema       ErrorCode = "SCHEMA_ERROR"
	CodeLookup       ErrorCode = "LOOKUP_ERROR"
	CodeIO           ErrorCode = "IO_ERROR"

	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCode(code),
		Timestamp:  time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCode(code),
		Cause:      err,
		Timestamp:  time.Now().UTC(),
	}
}

func FileNotFound(path string, err error) *AppError {
	return Wrap(err, CodeFileNotFound, fmt.Sprintf("input file %s does not exist", path))
}

func Parse(message string) *AppError {
	return New(CodeParse, message)
}

func ParseWrap(err error, message string) *AppError {
	return Wrap(err, CodeParse, message)
}

// Schema reports columns required by a stage that the input lacks.
func Schema(missing []string) *AppError {
	e := New(CodeSchema, "missing required columns")
	e.Details = strings.Join(missing, ", ")
	return e
}

// Lookup reports a named value (category, size sentinel, product, label)
// absent from the data it was looked up in.
func Lookup(kind, key string) *AppError {
	return New(CodeLookup, fmt.Sprintf("%s %q not present in data", kind, key))
}

func IOWrap(err error, message string) *AppError {
	return Wrap(err, CodeIO, message)
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

func ServiceUnavailable(message string) *AppError {
	return New(CodeServiceUnavail, message)
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func getStatusCode(code ErrorCode) int {
	switch code {
	case CodeBadRequest, CodeParse, CodeSchema:
		return http.StatusBadRequest
	case CodeNotFound, CodeFileNotFound, CodeLookup:
		return http.StatusNotFound
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeServiceUnavail:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, requestID string) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = InternalWrap(err, "An unexpected error occurred")
	}

	appErr.RequestID = requestID

	render.Status(r, appErr.StatusCode)
	render.JSON(w, r, ErrorResponse{
		Error:   appErr,
		Success: false,
	})

	logLevel := slog.LevelError
	if appErr.StatusCode < 500 {
		logLevel = slog.LevelWarn
	}

	logger.Log(r.Context(), logLevel, "request failed",
		"error_code", appErr.Code,
		"error_message", appErr.Message,
		"status_code", appErr.StatusCode,
		"request_id", requestID,
		"cause", appErr.Cause,
	)
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

func WriteSuccess(w http.ResponseWriter, r *http.Request, data any) {
	render.JSON(w, r, SuccessResponse{
		Data:    data,
		Success: true,
	})
}

func WriteSuccessWithHeaders(w http.ResponseWriter, r *http.Request, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, r, data)
}
