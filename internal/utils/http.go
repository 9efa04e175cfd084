package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the envelope every TrackWash endpoint answers with
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse is the failure form of Response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
}

// fallbackMessages fill in an empty error message
var fallbackMessages = map[int]string{
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Resource not found",
	http.StatusBadGateway:          "Upstream provider unavailable",
	http.StatusInternalServerError: "Internal server error",
}

// SuccessResponse writes data inside a success envelope
func SuccessResponse(c echo.Context, statusCode int, message string, data interface{}) error {
	return c.JSON(statusCode, Response{Success: true, Message: message, Data: data})
}

// ErrorResponseHandler writes a failure envelope. An empty message is
// replaced by a per-status default.
func ErrorResponseHandler(c echo.Context, statusCode int, errorMessage string) error {
	if errorMessage == "" {
		errorMessage = fallbackMessages[statusCode]
		if errorMessage == "" {
			errorMessage = http.StatusText(statusCode)
		}
	}
	return c.JSON(statusCode, ErrorResponse{Error: errorMessage, Code: statusCode})
}

func BadRequestResponse(c echo.Context, msg string) error {
	return ErrorResponseHandler(c, http.StatusBadRequest, msg)
}

func UnauthorizedResponse(c echo.Context, msg string) error {
	return ErrorResponseHandler(c, http.StatusUnauthorized, msg)
}

func ForbiddenResponse(c echo.Context, msg string) error {
	return ErrorResponseHandler(c, http.StatusForbidden, msg)
}

func NotFoundResponse(c echo.Context, msg string) error {
	return ErrorResponseHandler(c, http.StatusNotFound, msg)
}

// ConflictResponse covers illegal transitions and in-flight payments
func ConflictResponse(c echo.Context, msg string) error {
	return ErrorResponseHandler(c, http.StatusConflict, msg)
}

// BadGatewayResponse is used when Daraja or another provider failed
func BadGatewayResponse(c echo.Context, msg string) error {
	return ErrorResponseHandler(c, http.StatusBadGateway, msg)
}

func InternalServerErrorResponse(c echo.Context, msg string) error {
	return ErrorResponseHandler(c, http.StatusInternalServerError, msg)
}

// ParseJSONResponse unwraps a Response envelope into target. A failed
// envelope becomes an error carrying its message.
func ParseJSONResponse(body []byte, target interface{}) error {
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	switch {
	case !envelope.Success && envelope.Error != "":
		return errors.New(envelope.Error)
	case !envelope.Success:
		return errors.New("request was not successful")
	case len(envelope.Data) == 0 || string(envelope.Data) == "null" || target == nil:
		return nil
	}
	return json.Unmarshal(envelope.Data, target)
}
