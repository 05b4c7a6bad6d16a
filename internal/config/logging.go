package config

import (
	"github.com/rshade/ecolife/internal/logging"
)

// ToLoggingConfig converts the logging section for the logging package.
//
// A configured File switches the output to "file"; otherwise logs go to
// stderr. Level and Format are copied as-is.
func (lc *LoggingConfig) ToLoggingConfig() logging.Config {
	output := logging.OutputStderr
	if lc.File != "" {
		output = outputTypeFile
	}

	return logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: output,
		File:   lc.File,
	}
}

// GetLoggingConfig returns a copy of the global logging section. Flag
// overrides such as --debug are applied by the caller.
func GetLoggingConfig() LoggingConfig {
	cfg := GetGlobalConfig()
	return cfg.Logging
}
