package common

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Error codes
const (
	CodeClientError    = "CLIENT_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeServerError    = "SERVER_ERROR"
	CodeTableNotLoaded = "TABLE_NOT_LOADED"
	CodeInvalidSource  = "INVALID_SOURCE"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse(CodeClientError, message, nil))
}

func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse(CodeServerError, message, nil))
}

func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse(CodeNotFound, fmt.Sprintf("%s not found", resource), nil))
}

func SendConflictError(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, CreateErrorResponse(CodeConflict, message, nil))
}

// SendUnavailableError reports that no inventory table could be loaded
func SendUnavailableError(c echo.Context, err error) error {
	return c.JSON(http.StatusServiceUnavailable, CreateErrorResponse(CodeTableNotLoaded, "Inventory table is not available", map[string]string{
		"cause": err.Error(),
	}))
}

// HTTPErrorHandler renders echo errors in the ErrorResponse shape
func HTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			message = fmt.Sprint(he.Message)
		} else {
			logger.Error("unhandled request error", "method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
		}

		resp := CreateErrorResponse(errorCode(code), message, nil)
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, resp)
		}
		if err != nil {
			logger.Error("failed to write error response", "error", err)
		}
	}
}

func errorCode(status int) string {
	switch {
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusServiceUnavailable:
		return CodeTableNotLoaded
	case status >= 500:
		return CodeServerError
	default:
		return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}
