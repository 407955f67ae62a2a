package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tsdip/backend/internal/apperr"
)

// Body is the standard API response envelope.
type Body struct {
	Code        string      `json:"code"`
	Status      string      `json:"status"` // SUCCESS | INFO | ERROR | WARN
	Data        interface{} `json:"data,omitempty"`
	Description string      `json:"description,omitempty"`
}

// OK sends a 200 SUCCESS response.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Code: "SUCCESS", Status: "SUCCESS", Data: data})
}

// Created sends a 201 SUCCESS response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Code: "SUCCESS", Status: "SUCCESS", Data: data})
}

// Accepted sends a 202 SUCCESS response.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Body{Code: "SUCCESS", Status: "SUCCESS", Data: data})
}

// BadRequest sends a 400 WARN response for input the route layer rejected.
func BadRequest(c *gin.Context, description string) {
	c.JSON(http.StatusBadRequest, Body{Code: "PARAM_SCHEMA_WARN", Status: "WARN", Description: description})
}

// Unauthorized sends a 401 WARN response.
func Unauthorized(c *gin.Context, description string) {
	c.JSON(http.StatusUnauthorized, Body{Code: "AUTH_TOKEN_WARN", Status: "WARN", Description: description})
}

// Forbidden sends a 403 WARN response.
func Forbidden(c *gin.Context, description string) {
	c.JSON(http.StatusForbidden, Body{Code: "AUTH_API_TOKEN_ERROR", Status: "WARN", Description: description})
}

// Error maps a typed workflow error onto the envelope and HTTP status.
func Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	respStatus := "ERROR"

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
		respStatus = "WARN"
	case apperr.KindDuplicateField:
		status = http.StatusConflict
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindPermissionDenied:
		status = http.StatusForbidden
		respStatus = "WARN"
	case apperr.KindNotApproved:
		status = http.StatusConflict
	}

	c.JSON(status, Body{
		Code:        apperr.CodeOf(err),
		Status:      respStatus,
		Description: apperr.MessageOf(err),
	})
}
