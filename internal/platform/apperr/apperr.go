package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeDuplicate       Code = "DUPLICATE"
	CodeExternalLookup  Code = "EXTERNAL_LOOKUP"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeInternal        Code = "INTERNAL"
)

// APIError carries the code rendered to the client plus the entity kind and
// key it refers to, when there is one.
type APIError struct {
	Code    Code
	Message string
	Entity  string
	Key     string
	cause   error
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func (e *APIError) Unwrap() error { return e.cause }

func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func ErrUnauthorized(msg string) *APIError {
	return &APIError{Code: CodeUnauthorized, Message: msg}
}

func ErrForbidden(msg string) *APIError {
	return &APIError{Code: CodeForbidden, Message: msg}
}

func ErrNotFound(entity string, key any) *APIError {
	k := fmt.Sprint(key)
	return &APIError{Code: CodeNotFound, Message: entity + " not found: " + k, Entity: entity, Key: k}
}

func ErrDuplicate(entity string, key any) *APIError {
	k := fmt.Sprint(key)
	return &APIError{Code: CodeDuplicate, Message: entity + " already exists: " + k, Entity: entity, Key: k}
}

func ErrExternalLookup(msg string, cause error) *APIError {
	return &APIError{Code: CodeExternalLookup, Message: msg, cause: cause}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code == code
	}
	return false
}

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeUnauthorized:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict, CodeDuplicate:
			return http.StatusConflict
		case CodeExternalLookup:
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// ===== JSON envelope =====

type ErrDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
		Entity  string `json:"entity,omitempty"`
		Key     string `json:"key,omitempty"`
	} `json:"error"`
}

func Body(code Code, msg string) ErrDTO {
	var e ErrDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

// From renders any error. Non-APIError values are reported as INTERNAL
// without leaking their text.
func From(err error) ErrDTO {
	var api *APIError
	if errors.As(err, &api) {
		e := Body(api.Code, api.Message)
		e.Error.Entity = api.Entity
		e.Error.Key = api.Key
		return e
	}
	return Body(CodeInternal, "internal error")
}
