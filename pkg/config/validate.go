package config

import (
	"github.com/entrhq/draftkeep/pkg/vault"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// groupname accepts anything the vault would accept as a directory name.
	err := v.RegisterValidation("groupname", func(fl validator.FieldLevel) bool {
		return vault.ValidateGroupName(fl.Field().String()) == nil
	})
	if err != nil {
		panic(err)
	}
	return v
}

// intValue accepts the numeric shapes a value may take after a JSON or YAML
// round trip.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
