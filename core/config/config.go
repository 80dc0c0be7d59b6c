package config

import (
	_ "embed"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"
)

//go:embed default/anvil.yaml
var defaultConfigData []byte

const (
	// ConfigurationName is the file the shell looks for in its
	// configuration directory.
	ConfigurationName = "anvil.yaml"
	// EventLogName is the default statement log file.
	EventLogName = "events.jsonl"
)

// Configuration is the shell's startup configuration.
type Configuration struct {
	// Prompt is the prompt template; \u, \h, \w and \$ expand to the
	// user, host, working directory and a literal $.
	Prompt string `json:"prompt" validate:"required"`

	// Aliases maps a command name to the command line it stands for.
	// Alias words splice in before the invocation's own arguments.
	Aliases map[string]string `json:"aliases"`

	// DisabledBuiltins are unregistered at startup; their names then
	// resolve as external commands.
	DisabledBuiltins []string `json:"disabled_builtins" validate:"unique"`

	// Pipefail makes the first failing stage decide a pipeline's
	// status instead of the final stage.
	Pipefail bool `json:"pipefail"`

	// InheritEnv seeds the session environment from the parent
	// process.
	InheritEnv bool `json:"inherit_env"`

	// Vars are shell variables bound at the top level before the
	// first prompt. Values are parsed like source literals.
	Vars map[string]string `json:"vars"`

	// EventLog is the statement log path, relative to the
	// configuration directory; empty disables logging.
	EventLog string `json:"event_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built-in configuration.
func Default() *Configuration {
	return defaultConfig()
}
