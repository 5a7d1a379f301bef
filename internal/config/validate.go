package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML names, e.g. "webware.url"
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Structural validation (struct tags)
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return describe(verrs[0])
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Semantic validation
	if !strings.HasPrefix(c.Webware.URL, "http://") && !strings.HasPrefix(c.Webware.URL, "https://") {
		return fmt.Errorf("webware.url must be a valid HTTP(S) URL")
	}
	if c.Limits.Burst > 0 && c.Limits.RequestsPerSecond == 0 {
		return fmt.Errorf("limits.burst requires limits.requests_per_second")
	}

	return nil
}

// describe renders a validation error with the YAML path of the field.
func describe(e validator.FieldError) error {
	field := e.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest // drop the root type name
	}

	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "required_with":
		return fmt.Errorf("%s is required when %s is set", field, yamlSibling(field, e.Param()))
	case "url":
		return fmt.Errorf("%s must be a valid HTTP(S) URL", field)
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", field, strings.ReplaceAll(e.Param(), " ", ", "))
	case "gt":
		return fmt.Errorf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Errorf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Errorf("%s should not exceed %s", field, e.Param())
	default:
		return fmt.Errorf("%s failed the %q rule", field, e.Tag())
	}
}

// yamlSibling maps a Go field name from a validator parameter to the YAML
// path of the field next to field.
func yamlSibling(field, goName string) string {
	names := map[string]string{"AppID": "app_id", "ServicePass": "service_pass"}
	sibling, ok := names[goName]
	if !ok {
		return goName
	}
	if i := strings.LastIndex(field, "."); i >= 0 {
		return field[:i+1] + sibling
	}
	return sibling
}
