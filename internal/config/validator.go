package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers gateway-specific validation rules.
// Must be called before validating GatewayConfig.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("framing", validateFraming); err != nil {
		return fmt.Errorf("failed to register framing validator: %w", err)
	}
	return nil
}

func validateFraming(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "json", "sse":
		return true
	default:
		return false
	}
}

// Validate validates the GatewayConfig using struct tags plus cross-field
// rules the tags alone can't express.
func (c *GatewayConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	for _, u := range c.Upstreams {
		if err := u.Validate(); err != nil {
			return err
		}
	}
	if err := c.validateUpstreamNames(); err != nil {
		return err
	}
	if err := c.validateUpstreamPrefixes(); err != nil {
		return err
	}

	return nil
}

// validateUpstreamNames enforces UpstreamConfig's "name is unique" invariant.
func (c *GatewayConfig) validateUpstreamNames() error {
	seen := make(map[string]struct{}, len(c.Upstreams))
	for _, u := range c.Upstreams {
		if _, dup := seen[u.Name]; dup {
			return fmt.Errorf("upstreams: duplicate name %q", u.Name)
		}
		seen[u.Name] = struct{}{}
	}
	return nil
}

// validateUpstreamPrefixes enforces UpstreamConfig's "prefix is unique
// across enabled upstreams" invariant.
func (c *GatewayConfig) validateUpstreamPrefixes() error {
	seen := make(map[string]string, len(c.Upstreams))
	for _, u := range c.Upstreams {
		if !u.Enabled {
			continue
		}
		if owner, dup := seen[u.Prefix]; dup {
			return fmt.Errorf("upstreams: prefix %q used by both %q and %q", u.Prefix, owner, u.Name)
		}
		seen[u.Prefix] = u.Name
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
