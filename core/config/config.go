package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// ConfigurationName is the name of the shell's configuration file.
	ConfigurationName = "msh.yaml"
	// AppLogName is the name of the newline delimited JSON event log.
	AppLogName = "msh.log"
)

const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

// Limits holds the capacity safety limits for the shell. They're validation
// checks rather than hard ceilings; exceeding one fails the offending
// operation with an error.
type Limits struct {
	// MaxStages is the largest number of commands in a single pipeline.
	MaxStages int `json:"max_stages" validate:"gte=1"`
	// MaxArgs is the largest number of arguments for a single command,
	// counted after wildcard expansion.
	MaxArgs int `json:"max_args" validate:"gte=1"`
	// MaxPathLen is the longest path recursive file operations will compose.
	MaxPathLen int `json:"max_path_len" validate:"gte=1"`
	// MaxDepth is the recursion bound for recursive file operations.
	MaxDepth int `json:"max_depth" validate:"gte=1"`
	// HistorySize is the number of retained input history entries.
	HistorySize int `json:"history_size" validate:"gte=0"`
}

type Configuration struct {
	// Color controls prompt/message coloring (always|auto|never).
	Color string `json:"color" validate:"oneof=always auto never"`

	Limits Limits `json:"limits"`
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

// Default returns the built-in configuration used when no file is present.
func Default() *Configuration {
	return &Configuration{
		Color: ColorAuto,
		Limits: Limits{
			MaxStages:   10,
			MaxArgs:     64,
			MaxPathLen:  512,
			MaxDepth:    100,
			HistorySize: 100,
		},
	}
}
