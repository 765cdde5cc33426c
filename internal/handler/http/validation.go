package http

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Scope and permission names look like "portfolio:read" or "trades.execute":
// lowercase segments joined by ':' or '.'.
var scopeNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*([:.][a-z0-9_]+)*$`)

var registerValidationsOnce sync.Once

func registerValidations() {
	registerValidationsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("scope_name", func(fl validator.FieldLevel) bool {
			return scopeNamePattern.MatchString(fl.Field().String())
		})
	})
}
