package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/jackwatters45/blog-api/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// conform applies the `mod` tags (trim, lcase) between binding and validation.
var conform = modifiers.New()

type fieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	if err := v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return primitive.IsValidObjectID(fl.Field().String())
	}); err != nil {
		logger.Error.Printf("register objectid validation: %v", err)
	}
}

// bind decodes the request into req, trims it and validates the trimmed
// values. It writes the 400 response itself and reports whether the
// handler may continue.
func bind(c *gin.Context, req any) bool {
	// Validation errors here are on untrimmed input; only decode errors count.
	if err := c.ShouldBind(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			respondBindError(c, err)
			return false
		}
	}
	if err := conform.Struct(c.Request.Context(), req); err != nil {
		respondBindError(c, err)
		return false
	}
	if err := binding.Validator.ValidateStruct(req); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		validationFailed(c, fieldError{Message: "Invalid request body"})
		return
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{Field: fe.Field(), Message: describe(fe)})
	}
	validationFailed(c, out...)
}

func validationFailed(c *gin.Context, errs ...fieldError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": errs})
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, fe.Param(), unit)
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, lowerFirst(fe.Param()))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "objectid":
		return field + " must be a valid id"
	}
	return field + " is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
