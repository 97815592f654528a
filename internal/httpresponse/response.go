// Package httpresponse is the envelope shape used by the local status
// server's non-streaming endpoints.
package httpresponse

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the standard response body: either Data or Error is set.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo carries a machine-readable code alongside a human message.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OK sends a 200 with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created sends a 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Fail sends an error envelope at statusCode with an explicit machine
// code, for callers whose code isn't the one the shorthand helpers below
// look up in codesByStatus.
func Fail(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Envelope{Success: false, Error: &ErrorInfo{Code: code, Message: message}})
}

// FailStatus sends an error envelope whose machine code is looked up
// from statusCode in codesByStatus, falling back to "ERROR" for any
// status the table doesn't name.
func FailStatus(c *gin.Context, statusCode int, message string) {
	code, ok := codesByStatus[statusCode]
	if !ok {
		code = "ERROR"
	}
	Fail(c, statusCode, code, message)
}

var codesByStatus = map[int]string{
	http.StatusBadRequest:          "BAD_REQUEST",
	http.StatusUnauthorized:        "UNAUTHORIZED",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusConflict:            "CONFLICT",
	http.StatusInternalServerError: "INTERNAL_ERROR",
}

// BadRequest sends a 400 error envelope.
func BadRequest(c *gin.Context, message string) { FailStatus(c, http.StatusBadRequest, message) }

// NotFound sends a 404 error envelope.
func NotFound(c *gin.Context, message string) { FailStatus(c, http.StatusNotFound, message) }

// Conflict sends a 409 error envelope.
func Conflict(c *gin.Context, message string) { FailStatus(c, http.StatusConflict, message) }

// Unauthorized sends a 401 error envelope.
func Unauthorized(c *gin.Context, message string) { FailStatus(c, http.StatusUnauthorized, message) }

// InternalError sends a 500 error envelope.
func InternalError(c *gin.Context, message string) {
	FailStatus(c, http.StatusInternalServerError, message)
}
