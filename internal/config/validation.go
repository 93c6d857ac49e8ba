package config

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateScan(&c.Scan)...)
	errs = append(errs, validateMatch(&c.Match)...)
	errs = append(errs, validateEditor(&c.Editor)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateScan(s *ScanConfig) ValidationErrors {
	var errs ValidationErrors

	if s.IntervalMs < 50 {
		errs = append(errs, ValidationError{
			Field:   "scan.interval_ms",
			Message: "interval must be at least 50ms",
		})
	}
	if s.IntervalMs > 60000 {
		errs = append(errs, ValidationError{
			Field:   "scan.interval_ms",
			Message: "interval cannot exceed 60000ms (1 minute)",
		})
	}
	if s.MinCellTextLength < 0 {
		errs = append(errs, ValidationError{
			Field:   "scan.min_cell_text_length",
			Message: "minimum text length cannot be negative",
		})
	}
	if s.MinLineCount < 1 {
		errs = append(errs, ValidationError{
			Field:   "scan.min_line_count",
			Message: "minimum line count must be at least 1",
		})
	}

	return errs
}

func validateMatch(m *MatchConfig) ValidationErrors {
	var errs ValidationErrors

	if m.LabelText == "" && m.AriaLabel == "" {
		errs = append(errs, ValidationError{
			Field:   "match",
			Message: "at least one of label_text and aria_label is required",
		})
	}

	selectors := []struct {
		field    string
		value    string
		required bool
	}{
		{"match.label_text_selector", m.LabelTextSelector, false},
		{"match.form_control_selector", m.FormControlSelector, true},
		{"match.input_selector", m.InputSelector, true},
		{"match.row_selector", m.RowSelector, true},
		{"match.cell_content_selector", m.CellContentSelector, true},
	}
	for _, s := range selectors {
		if s.value == "" {
			if s.required {
				errs = append(errs, RequiredFieldError(s.field))
			}
			continue
		}
		if !isValidSelector(s.value) {
			errs = append(errs, ValidationError{
				Field:   s.field,
				Message: fmt.Sprintf("invalid CSS selector: %s", s.value),
			})
		}
	}

	if m.CellIndex < 0 {
		errs = append(errs, ValidationError{
			Field:   "match.cell_index",
			Message: "cell index cannot be negative",
		})
	}
	if m.MarkerAttr == "" {
		errs = append(errs, RequiredFieldError("match.marker_attr"))
	}

	return errs
}

func validateEditor(e *EditorConfig) ValidationErrors {
	var errs ValidationErrors

	if e.TabWidth < 1 || e.TabWidth > 16 {
		errs = append(errs, *RangeError("editor.tab_width", 1, 16))
	}
	if e.CacheSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "editor.cache_size",
			Message: "cache size cannot be negative",
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output includes a file",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}
	if l.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_age_days",
			Message: "max age cannot be negative",
		})
	}

	return errs
}

func isValidSelector(sel string) bool {
	_, err := cascadia.Compile(sel)
	return err == nil
}

// RequiredFieldError creates a validation error for a missing required field.
func RequiredFieldError(field string) ValidationError {
	return ValidationError{
		Field:   field,
		Message: "field is required",
	}
}

// RangeError creates a validation error for a value out of range.
func RangeError(field string, min, max interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
