// Package respond writes the API's uniform success envelope. Errors are left
// to echo's HTTP error handling, which emits {"message": ...}.
package respond

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope wraps every successful response body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// JSON writes data inside the success envelope with the given status.
func JSON(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

// OK writes a 200 success envelope.
func OK(c echo.Context, data interface{}) error {
	return JSON(c, http.StatusOK, data)
}

// Created writes a 201 success envelope.
func Created(c echo.Context, data interface{}) error {
	return JSON(c, http.StatusCreated, data)
}
