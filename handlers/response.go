package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/utils"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeValidationError = "VALIDATION_ERROR"
	CodeCreateError     = "CREATE_ERROR"
	CodeServerError     = "SERVER_ERROR"
	CodeConflict        = "CONFLICT"
	CodeKeyReused       = "IDEMPOTENCY_KEY_REUSED"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, code string, message string, details any) {
	body := &ErrorBody{Code: code, Message: message}
	if !config.IsProduction() {
		body.Details = details
	}
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: body})
}

// respondFailure maps err onto the envelope. Errors that are neither
// not-found nor validation get fallbackCode with a generic message.
func respondFailure(c *gin.Context, err error, fallbackCode string, fallbackMessage string) {
	var ve *utils.ValidationError
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		respondError(c, http.StatusNotFound, CodeNotFound, "Escrow not found", nil)
	case errors.Is(err, utils.ErrorChecklistItemNotFound):
		respondError(c, http.StatusNotFound, CodeNotFound, "Checklist item not found", nil)
	case errors.Is(err, utils.ErrorIdempotencyInProgress):
		respondError(c, http.StatusConflict, CodeConflict, err.Error(), nil)
	case errors.Is(err, utils.ErrorIdempotencyKeyReused):
		respondError(c, http.StatusUnprocessableEntity, CodeKeyReused, err.Error(), nil)
	case errors.As(err, &ve):
		respondValidation(c, ve.Fields)
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, fallbackCode, fallbackMessage, err.Error())
	}
}

// respondValidation returns field failures in every environment; they
// describe the request, not the server.
func respondValidation(c *gin.Context, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{Success: false, Error: &ErrorBody{
		Code:    CodeValidationError,
		Message: "Invalid request",
		Details: fields,
	}})
}

func respondBadRequest(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, CodeValidationError, "Invalid request body", err.Error())
}
