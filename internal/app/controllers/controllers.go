// Package controllers holds the gin HTTP handlers. Controllers bind and
// validate requests, delegate to the services and translate errors
// through middleware.HandleAPIError.
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/sistempim/pimserver/internal/app/models/dto"
	"github.com/sistempim/pimserver/internal/middleware"
)

// bindJSON binds the request body and writes the validation error
// envelope on failure. Returns false when the request was rejected.
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			details := dto.NewValidationErrors()
			for _, fieldErr := range validationErrs {
				details.AddError(fieldErr.Field(), middleware.FormatValidationError(fieldErr))
			}
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed").
				WithDetails(details.Errors)
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
			return false
		}
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format").
			WithDetails(err.Error())
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return false
	}
	return true
}

// currentUID returns the authenticated uid set by the JWT middleware.
func currentUID(c *gin.Context) string {
	return c.GetString(middleware.ContextUID)
}
