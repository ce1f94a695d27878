package config

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Struct tag validation is declarative via go-playground/validator; rules
// that cannot be expressed in tags are checked below.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	targets := make(map[string]bool)

	for i, mount := range cfg.Mounts {
		if !filepath.IsAbs(mount.Source) {
			return fmt.Errorf("mounts[%d]: source %q must be an absolute path", i, mount.Source)
		}
		if !filepath.IsAbs(mount.Target) {
			return fmt.Errorf("mounts[%d]: target %q must be an absolute path", i, mount.Target)
		}

		if targets[mount.Target] {
			return fmt.Errorf("mounts[%d]: duplicate target %q", i, mount.Target)
		}
		targets[mount.Target] = true
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
