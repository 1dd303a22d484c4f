package httpgin

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/kirinyoku/cinema-go/internal/service/movie"
)

var registerOnce sync.Once

// registerValidations adds the custom binding rules to gin's validator.
func registerValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("notblank", validators.NotBlank)
		_ = v.RegisterValidation("releaseyear", validateReleaseYear)
	})
}

func validateReleaseYear(fl validator.FieldLevel) bool {
	year := int(fl.Field().Int())
	return year >= movie.FirstReleaseYear && year <= time.Now().Year()
}

func validationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "max":
		return "must be at most " + err.Param() + " characters long"
	case "releaseyear":
		return "must be a year between 1895 and the current year"
	default:
		return "is invalid"
	}
}
