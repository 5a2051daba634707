package middleware

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/facturacion/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RequestIDKey is the header carrying the request correlation ID
const RequestIDKey = "X-Request-ID"

// SetupValidator makes binding errors report JSON field names instead of
// Go struct field names.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
}

// FormatValidationErrors turns validator errors into the response envelope
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   fe.Field(),
				Message: validationMessage(fe),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 with per-field validation details
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestIDFor(c)))
}

func requestIDFor(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

func validationMessage(fe validator.FieldError) string {
	isString := fe.Type().Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return "Must be at least " + fe.Param()
	case "max":
		if isString {
			return fmt.Sprintf("Must be at most %s characters", fe.Param())
		}
		return "Must be at most " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	case "lt":
		return "Must be less than " + fe.Param()
	case "lte":
		return "Must be less than or equal to " + fe.Param()
	case "numeric":
		return "Must be numeric"
	default:
		return "Invalid value"
	}
}
