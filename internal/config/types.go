// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultTokenEnv names the variable the control-plane token is read from.
	DefaultTokenEnv = "BV_ACCESS_TOKEN"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError collects field-level problems found after decoding.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the tool settings.
	Config struct {
		// OutputDir is where build writes archives, relative to the project root.
		OutputDir string `json:"output_dir" mapstructure:"output_dir"`
		// PublishDir is the root of the name/version-keyed publish store.
		PublishDir string `json:"publish_dir" mapstructure:"publish_dir"`
		// Interpreter is the base toolchain environments are created from.
		// Empty means the go binary found on PATH.
		Interpreter string `json:"interpreter" mapstructure:"interpreter"`
		// Orchestrator configures the control-plane client.
		Orchestrator OrchestratorConfig `json:"orchestrator" mapstructure:"orchestrator"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// OrchestratorConfig configures the control-plane client.
	OrchestratorConfig struct {
		// URL is used when the project descriptor declares none.
		URL string `json:"url" mapstructure:"url"`
		// TokenEnv names the environment variable holding the access token.
		TokenEnv string `json:"token_env" mapstructure:"token_env"`
		// TimeoutSeconds bounds one request.
		TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// ColorScheme sets the color scheme.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}
)

// DefaultConfig returns the default settings.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:  "dist",
		PublishDir: "published",
		Orchestrator: OrchestratorConfig{
			TokenEnv:       DefaultTokenEnv,
			TimeoutSeconds: 20,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Validate returns an error if the color scheme is not recognized.
func (c ColorScheme) Validate() error {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: c}
	}
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig and each field error.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Validate checks constraints the schema cannot express after defaults merge.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if strings.TrimSpace(c.PublishDir) == "" {
		errs = append(errs, errors.New("publish_dir must not be empty"))
	}
	if c.Orchestrator.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("orchestrator.timeout_seconds must be positive, got %d", c.Orchestrator.TimeoutSeconds))
	}
	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Timeout returns the orchestrator request timeout.
func (o OrchestratorConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}
