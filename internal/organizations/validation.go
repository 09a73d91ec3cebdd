package organizations

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Slug must be lowercase alphanumeric and hyphens only, 2–64 chars.
var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

var registerOnce sync.Once

// RegisterValidators adds the "slug" tag to gin's validator engine.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
				return slugRegex.MatchString(fl.Field().String())
			})
		}
	})
}
