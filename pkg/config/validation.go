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

// Validate checks cfg using struct tags plus the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	for i, root := range cfg.Sandbox.Roots {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("sandbox.roots[%d]: must be an absolute path", i)
		}
	}

	if cfg.Mediator.Runner == "docker" && cfg.Mediator.Docker.Image == "" {
		return fmt.Errorf("mediator.docker.image: required when mediator.runner is docker")
	}

	if cfg.Audit.Backend != "none" && cfg.Audit.Path == "" {
		return fmt.Errorf("audit.path: required when audit.backend is %s", cfg.Audit.Backend)
	}
	return nil
}

// formatValidationError reports the first failing field.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
