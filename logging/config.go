package logging

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

// Config defines the "logging" section of pmd.yml.
type Config struct {
	// Level is the minimum log level to output (e.g., "debug", "info", "warn", "error").
	// Can be overridden by the PMD_LOG_LEVEL environment variable.
	Level string `yaml:"level" jsonschema:"description=Minimum log level,enum=trace,enum=debug,enum=info,enum=warn,enum=error"`

	// ReportCaller, if true, includes the file, line, and function name in the log output.
	// Can be enabled with the PMD_LOG_CALLER=true environment variable.
	ReportCaller bool `yaml:"report_caller" jsonschema:"description=Include file and line of the log call"`

	// File configures logging to a file.
	File FileSinkConfig `yaml:"file" jsonschema:"description=File sink"`

	// Format configures the appearance of the log output.
	Format FormatConfig `yaml:"format" jsonschema:"description=Output format"`
}

// FileSinkConfig configures the file logging sink.
type FileSinkConfig struct {
	Enabled bool `yaml:"enabled" jsonschema:"description=Write logs to a file"`
	// Path is the full path to the log file. Defaults to the pmd state
	// directory.
	Path string `yaml:"path" jsonschema:"description=Log file path"`
}

// FormatConfig controls the log output format.
type FormatConfig struct {
	// Preset can be "default" (rich text), "simple" (minimal text), or "json".
	Preset string `yaml:"preset" jsonschema:"enum=default,enum=simple,enum=json"`
	// DisableTimestamp disables the timestamp from the "default" and "simple" formats.
	DisableTimestamp bool `yaml:"disable_timestamp"`
	// DisableComponent disables the component name from the "default" and "simple" formats.
	DisableComponent bool `yaml:"disable_component"`
	// StructuredToStderr controls when structured logs are sent to stderr.
	// Can be "auto" (default), "always", or "never".
	StructuredToStderr string `yaml:"structured_to_stderr" jsonschema:"enum=auto,enum=always,enum=never"`
}
