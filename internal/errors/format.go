package errors

import (
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ge, ok := err.(*GraphError)
	if !ok {
		// Wrap standard error
		ge = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Error: %s\n", ge.Message))

	if ge.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ge.Suggestion))
	}

	sb.WriteString(fmt.Sprintf("  Code: %s\n", ge.Code))

	return sb.String()
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	ge, ok := err.(*GraphError)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": ge.Code,
		"message":    ge.Message,
		"category":   string(ge.Category),
		"severity":   string(ge.Severity),
		"retryable":  ge.Retryable,
	}

	if ge.Cause != nil {
		result["cause"] = ge.Cause.Error()
	}

	if ge.Suggestion != "" {
		result["suggestion"] = ge.Suggestion
	}

	for k, v := range ge.Details {
		result["detail_"+k] = v
	}

	return result
}
