// Package config handles configuration loading, validation, and management for mledit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete mledit configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Scan configuration for the periodic document sweep.
	Scan ScanConfig `toml:"scan" json:"scan" yaml:"scan"`

	// Match holds the rules that locate host-application elements.
	Match MatchConfig `toml:"match" json:"match" yaml:"match"`

	// Editor configuration for the overlay editor.
	Editor EditorConfig `toml:"editor" json:"editor" yaml:"editor"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// ScanConfig holds sweep timing and thresholds.
type ScanConfig struct {
	// IntervalMs is the time between sweeps in milliseconds.
	IntervalMs int `toml:"interval_ms" json:"interval_ms" yaml:"interval_ms"`

	// MinCellTextLength is the shortest cell text considered for a View
	// affordance. Shorter text cannot plausibly wrap to several lines.
	MinCellTextLength int `toml:"min_cell_text_length" json:"min_cell_text_length" yaml:"min_cell_text_length"`

	// MinLineCount is the estimated line count at which a cell gets a View
	// affordance.
	MinLineCount int `toml:"min_line_count" json:"min_line_count" yaml:"min_line_count"`
}

// MatchConfig holds the element matching rules. These are data: they change
// with the host application's markup, not with mledit's logic.
type MatchConfig struct {
	// LabelText is the visible label of editable fields.
	LabelText string `toml:"label_text" json:"label_text" yaml:"label_text"`

	// LabelTextSelector picks the label's text node container when present.
	LabelTextSelector string `toml:"label_text_selector" json:"label_text_selector" yaml:"label_text_selector"`

	// AriaLabel is the accessibility label of editable fields.
	AriaLabel string `toml:"aria_label" json:"aria_label" yaml:"aria_label"`

	// FormControlSelector locates the container shared by a label and its input.
	FormControlSelector string `toml:"form_control_selector" json:"form_control_selector" yaml:"form_control_selector"`

	// InputSelector locates the input inside a form control.
	InputSelector string `toml:"input_selector" json:"input_selector" yaml:"input_selector"`

	// RowSelector locates table rows considered for the View affordance.
	RowSelector string `toml:"row_selector" json:"row_selector" yaml:"row_selector"`

	// CellIndex is the zero-based index of the cell within a row.
	CellIndex int `toml:"cell_index" json:"cell_index" yaml:"cell_index"`

	// CellContentSelector locates the rendered text block inside a cell.
	CellContentSelector string `toml:"cell_content_selector" json:"cell_content_selector" yaml:"cell_content_selector"`

	// CellValueAttr names the cell attribute carrying the full raw value.
	CellValueAttr string `toml:"cell_value_attr" json:"cell_value_attr" yaml:"cell_value_attr"`

	// MarkerAttr is the attribute set on augmented elements.
	MarkerAttr string `toml:"marker_attr" json:"marker_attr" yaml:"marker_attr"`
}

// EditorConfig holds overlay editor configuration.
type EditorConfig struct {
	// TabWidth is the number of spaces inserted for a tab key press.
	TabWidth int `toml:"tab_width" json:"tab_width" yaml:"tab_width"`

	// SchemaPath is an optional JSON schema checked against structured values.
	SchemaPath string `toml:"schema_path" json:"schema_path" yaml:"schema_path"`

	// CacheSize is the number of classifications kept in memory.
	CacheSize int `toml:"cache_size" json:"cache_size" yaml:"cache_size"`

	// HighlightStyle is the syntax highlighting style for terminal output.
	HighlightStyle string `toml:"highlight_style" json:"highlight_style" yaml:"highlight_style"`

	// Command is the external editor used by the CLI. Empty uses $EDITOR.
	Command string `toml:"command" json:"command" yaml:"command"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output includes a file).
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is the maximum age of log files in days.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress determines whether to compress rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// DefaultConfig returns a configuration matching the host application's
// current markup.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Scan: ScanConfig{
			IntervalMs:        1000,
			MinCellTextLength: 10,
			MinLineCount:      3,
		},
		Match: MatchConfig{
			LabelText:           "Default Value",
			LabelTextSelector:   "span",
			AriaLabel:           "Value",
			FormControlSelector: ".MuiFormControl-root",
			InputSelector:       `input[type="text"]`,
			RowSelector:         "tr.MuiTableRow-root",
			CellIndex:           1,
			CellContentSelector: "div",
			CellValueAttr:       "value",
			MarkerAttr:          "data-mle-augmented",
		},
		Editor: EditorConfig{
			TabWidth:       4,
			CacheSize:      256,
			HighlightStyle: "monokai",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(PlatformLogDir(), "mledit.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// ScanInterval returns the sweep period.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scan.IntervalMs) * time.Millisecond
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	if v := os.Getenv("MLEDIT_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with MLEDIT_ and use underscores.
func (c *Config) ApplyEnvOverrides() {
	// Scan overrides
	if v := os.Getenv("MLEDIT_SCAN_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scan.IntervalMs = n
		}
	}

	// Match overrides
	if v := os.Getenv("MLEDIT_LABEL_TEXT"); v != "" {
		c.Match.LabelText = v
	}
	if v := os.Getenv("MLEDIT_ARIA_LABEL"); v != "" {
		c.Match.AriaLabel = v
	}

	// Editor overrides
	if v := os.Getenv("MLEDIT_SCHEMA_PATH"); v != "" {
		c.Editor.SchemaPath = v
	}
	if v := os.Getenv("MLEDIT_EDITOR"); v != "" {
		c.Editor.Command = v
	}

	// Logging overrides
	if v := os.Getenv("MLEDIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MLEDIT_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
}

// Clone returns a copy of the configuration. Config has no reference fields,
// so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
