// Package problem はドメインエラーと HTTP の problem-detail レスポンスの対応付けを持つ。
package problem

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT" // 一意制約違反など
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func Invalid(msg string) *APIError      { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func NotFound(msg string) *APIError     { return &APIError{Code: CodeNotFound, Message: msg} }
func Conflict(msg string) *APIError     { return &APIError{Code: CodeConflict, Message: msg} }
func Unauthorized(msg string) *APIError { return &APIError{Code: CodeUnauthorized, Message: msg} }
func Forbidden(msg string) *APIError    { return &APIError{Code: CodeForbidden, Message: msg} }
func Internal(msg string) *APIError     { return &APIError{Code: CodeInternal, Message: msg} }

func Invalidf(format string, args ...any) *APIError  { return Invalid(fmt.Sprintf(format, args...)) }
func NotFoundf(format string, args ...any) *APIError { return NotFound(fmt.Sprintf(format, args...)) }
func Conflictf(format string, args ...any) *APIError { return Conflict(fmt.Sprintf(format, args...)) }

// ItemNotFound is the detail used for missing books, applications and loans.
func ItemNotFound(id string) *APIError { return NotFoundf("Item with id %s not found.", id) }

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		case CodeUnauthorized:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// Details is the RFC 9457 response body.
type Details struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Code   Code   `json:"code,omitempty"`
}

var typeByStatus = map[int]string{
	http.StatusBadRequest:          "https://tools.ietf.org/html/rfc9110#section-15.5.1",
	http.StatusUnauthorized:        "https://tools.ietf.org/html/rfc9110#section-15.5.2",
	http.StatusForbidden:           "https://tools.ietf.org/html/rfc9110#section-15.5.4",
	http.StatusNotFound:            "https://tools.ietf.org/html/rfc9110#section-15.5.5",
	http.StatusConflict:            "https://tools.ietf.org/html/rfc9110#section-15.5.10",
	http.StatusInternalServerError: "https://tools.ietf.org/html/rfc9110#section-15.6.1",
}

func From(err error) Details {
	status := ToHTTPStatus(err)
	d := Details{
		Type:   typeByStatus[status],
		Title:  http.StatusText(status),
		Status: status,
		Code:   CodeInternal,
	}
	var api *APIError
	if errors.As(err, &api) {
		d.Code = api.Code
		d.Detail = api.Message
	}
	// 想定外のエラーは中身を返さない
	if status == http.StatusInternalServerError {
		d.Detail = "An unexpected error occurred."
	}
	return d
}

// Write renders err as a problem-detail body. The error is attached to the gin
// context so the request logger can report it.
func Write(c *gin.Context, err error) {
	_ = c.Error(err)
	d := From(err)
	c.Header("Content-Type", "application/problem+json")
	c.JSON(d.Status, d)
}

// Abort は middleware 用。後続ハンドラを止めてから書く。
func Abort(c *gin.Context, err error) {
	c.Abort()
	Write(c, err)
}
