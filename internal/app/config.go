package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// EntryPoints are project files, solution files or directories to search
	// for project files.
	EntryPoints      []string          `yaml:"entry_points" validate:"required,min=1,dive,required"`
	GlobalProperties map[string]string `yaml:"global_properties" validate:"dive,keys,required,endkeys"`
	Parallelism      int               `yaml:"parallelism" validate:"gte=1"`

	LogFormat       string `yaml:"log_format" validate:"oneof=text json"`
	LogLevel        string `yaml:"log_level" validate:"oneof=debug info warn error"`
	HealthcheckPort int    `yaml:"healthcheck_port" validate:"gte=0,lte=65535"`

	EventsURL       string `yaml:"events_url" validate:"omitempty,url"`
	EventsNamespace string `yaml:"events_namespace"`

	OutputFormat string `yaml:"output" validate:"oneof=text json"`
	IgnoreFile   string `yaml:"ignore_file"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		GlobalProperties: map[string]string{},
		Parallelism:      runtime.NumCPU(),
		LogFormat:        "text",
		LogLevel:         "info",
		OutputFormat:     "text",
	}
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return fe.Namespace() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Namespace(), fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", fe.Namespace(), fe.Value())
	default:
		return fmt.Sprintf("%s failed the %q constraint", fe.Namespace(), fe.Tag())
	}
}

// LoadConfigFile decodes the YAML file at path over cfg. Unknown keys are
// rejected.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}
