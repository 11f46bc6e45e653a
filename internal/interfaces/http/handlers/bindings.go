package handlers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/scripthub-inc/scripthub/internal/shared/id"
)

var registerBindingsOnce sync.Once

// RegisterBindings installs custom validations on gin's binding validator.
// Safe to call more than once.
func RegisterBindings() {
	registerBindingsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// licensekey checks the shk_ prefix shape before the request reaches
		// the engine. A key that cannot have been issued is rejected as a bad
		// request rather than looked up.
		_ = v.RegisterValidation("licensekey", func(fl validator.FieldLevel) bool {
			return id.ValidatePrefix(fl.Field().String(), id.PrefixLicenseKey) == nil
		})
	})
}
