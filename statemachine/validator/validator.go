// Package validator lints declarative machine configurations. It goes beyond
// statemachine.Config.Validate, which only checks shape: it reports bindings
// that would fail at construction and states that cannot be reached or have
// no handler.
package validator

import (
	"fmt"
	"strings"

	"github.com/amp-labs/amp-fsm/statemachine"
)

// ValidationResult contains the results of validating a machine config.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ValidationError represents a validation error with an optional fix.
type ValidationError struct {
	Code     string   // Error code like "UNKNOWN_BINDING_STATE"
	Message  string   // Human-readable error message
	Location Location // Where the error occurred
	Fix      *Fix     // Optional auto-fix suggestion
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
	Fix      *Fix
}

// Location identifies where an issue occurred.
type Location struct {
	File    string // Config file path
	State   string // State name if applicable
	Handler string // Handler name if applicable
	Rule    int    // Rule index within the handler, -1 if not applicable
}

// Validate runs the default rules against a config.
func Validate(config *statemachine.Config) ValidationResult {
	return ValidateWithRules(config, DefaultRules())
}

// ValidateFile loads a config from a file and validates it.
func ValidateFile(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, false)
}

// ValidateFileWithOptions loads a config from a file and validates it,
// treating warnings as errors when strict is set.
func ValidateFileWithOptions(path string, strict bool) (ValidationResult, error) {
	config, err := statemachine.LoadConfig(path)
	if err != nil {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Code:     "CONFIG_LOAD_FAILED",
					Message:  fmt.Sprintf("Failed to load config: %v", err),
					Location: Location{File: path, Rule: -1},
				},
			},
		}, err
	}

	var result ValidationResult
	if strict {
		result = ValidateWithRulesStrict(config, DefaultRules())
	} else {
		result = Validate(config)
	}

	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result, nil
}

// ValidateWithRules validates using custom rules.
func ValidateWithRules(config *statemachine.Config, rules []Rule) ValidationResult {
	var result ValidationResult

	for _, rule := range rules {
		ruleResult := rule.Check(config)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	result.Valid = len(result.Errors) == 0

	return result
}

// ValidateWithRulesStrict validates with strict mode (treats warnings as errors).
func ValidateWithRulesStrict(config *statemachine.Config, rules []Rule) ValidationResult {
	result := ValidateWithRules(config, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError(warning))
	}

	result.Warnings = nil
	result.Valid = len(result.Errors) == 0

	return result
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Codes returns the codes of all errors followed by all warnings.
func (r ValidationResult) Codes() []string {
	codes := make([]string, 0, len(r.Errors)+len(r.Warnings))
	for _, err := range r.Errors {
		codes = append(codes, err.Code)
	}

	for _, warn := range r.Warnings {
		codes = append(codes, warn.Code)
	}

	return codes
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("Configuration is valid\n")
	} else {
		fmt.Fprintf(&sb, "Configuration has %d error(s)\n", len(r.Errors))

		for _, err := range r.Errors {
			writeIssue(&sb, err.Code, err.Message, err.Fix)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "%d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			writeIssue(&sb, warn.Code, warn.Message, warn.Fix)
		}
	}

	return sb.String()
}

func writeIssue(sb *strings.Builder, code, message string, fix *Fix) {
	fmt.Fprintf(sb, "  [%s] %s\n", code, message)

	if fix != nil {
		fmt.Fprintf(sb, "    Fix: %s\n", fix.Description)
	}
}
