package utils

import (
	"github.com/gin-gonic/gin"
)

// FieldError names one offending request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorBody is the error envelope returned by every endpoint.
type ErrorBody struct {
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

// JSONResponse writes a successful payload as-is.
func JSONResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// ErrorResponse writes a generic error. Internal error text is never included.
func ErrorResponse(c *gin.Context, code int, detail string) {
	c.JSON(code, ErrorBody{Detail: detail})
}

// ValidationResponse writes a field-level validation failure.
func ValidationResponse(c *gin.Context, code int, detail string, fields []FieldError) {
	c.JSON(code, ErrorBody{
		Detail: detail,
		Errors: fields,
	})
}
