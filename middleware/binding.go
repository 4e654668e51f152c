package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"pawnshop/internal/apperr"
)

func init() {
	// report json field names ("full_name") instead of Go names in binding errors
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// BadRequest answers a body that failed ShouldBindJSON. Binding tag failures
// and classified decode errors (an unknown role) name the offending field.
func BadRequest(err error) Response {
	msg := "Invalid JSON payload"

	var fields validator.ValidationErrors
	var classified *apperr.Error
	switch {
	case errors.As(err, &fields) && len(fields) > 0:
		msg = fieldMessage(fields[0])
	case errors.As(err, &classified):
		msg = classified.Msg
	}
	return Response{Code: http.StatusBadRequest, Message: msg, Error: err}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}
