package utils

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"worktravel-server/internal/apperrors"
)

// FieldErrors converts binding validation errors into per-field messages keyed
// by the lower-camel field name.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if name != "" {
			name = strings.ToLower(name[:1]) + name[1:]
		}
		switch fe.Tag() {
		case "required":
			fields[name] = "This field is required."
		case "min":
			fields[name] = "Ensure this value has at least " + fe.Param() + " characters."
		case "max":
			fields[name] = "Ensure this value has at most " + fe.Param() + " characters."
		case "email":
			fields[name] = "Enter a valid email address."
		case "eqfield":
			fields[name] = "Passwords must match."
		default:
			fields[name] = "Invalid value."
		}
	}
	return fields
}

// BindAndValidate binds the request body to a struct and validates its
// binding tags. If either fails, it sends a BadRequest response and returns
// false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		if fields := FieldErrors(err); fields != nil {
			RespondError(c, apperrors.InvalidFields(fields))
			return false
		}
		BadRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// ParamID reads a positive numeric path parameter. On failure it responds
// with 404 and returns false.
func ParamID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		NotFound(c, "Resource not found")
		return 0, false
	}
	return uint(id), true
}
