package logger

import "github.com/kbukum/httpkit/validation"

// Config contains logging configuration.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"` // json, console
	Output    string `yaml:"output" mapstructure:"output"` // stdout, stderr
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	c.Timestamp = true
}

var (
	validLevels  = []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	validFormats = []string{FormatJSON, FormatConsole}
)

// Validate validates logging configuration.
func (c *Config) Validate() error {
	return validation.New().
		Required("logging.level", c.Level).
		OneOf("logging.level", c.Level, validLevels).
		Required("logging.format", c.Format).
		OneOf("logging.format", c.Format, validFormats).
		Err()
}
